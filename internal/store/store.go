// Package store is the document storage contract shared by the session,
// matchmaking and rank packages. Documents are DynamoDB attribute maps in
// every backend so entities carry a single set of dynamodbav tags.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	RoomsCollection       = "rooms"
	QueueCollection       = "matchmaking_queue"
	SeasonRanksCollection = "season_ranks"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict means a document read by a transaction changed before
	// it could commit. Nothing was written.
	ErrConflict = errors.New("transaction conflict")
	// ErrUnreadWrite is returned when a transaction writes a key it never
	// read, which would skip the version check.
	ErrUnreadWrite = errors.New("write to a key not read in this transaction")
)

type Key struct {
	Collection string
	Id         string
}

func (k Key) String() string {
	return k.Collection + "/" + k.Id
}

func RoomKey(id string) Key       { return Key{Collection: RoomsCollection, Id: id} }
func QueueKey(id string) Key      { return Key{Collection: QueueCollection, Id: id} }
func SeasonRankKey(id string) Key { return Key{Collection: SeasonRanksCollection, Id: id} }

// Snapshot is a document as of one committed version. Version 0 means the
// document does not exist.
type Snapshot struct {
	Key     Key
	Version int64
	Item    map[string]types.AttributeValue
}

func (s Snapshot) Exists() bool {
	return s.Version > 0
}

func (s Snapshot) Decode(out interface{}) error {
	if !s.Exists() {
		return fmt.Errorf("%s: %w", s.Key, ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(s.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", s.Key, err)
	}
	return nil
}

// Encode marshals v into an attribute map.
func Encode(v interface{}) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal map: %w", err)
	}
	return item, nil
}

// Tx buffers writes until the transaction function returns.
type Tx interface {
	// Get reads key and records its version. A missing document is not an
	// error; the snapshot has Version 0.
	Get(ctx context.Context, key Key) (Snapshot, error)
	Set(key Key, v interface{}) error
	Delete(key Key) error
}

type TxFunc func(ctx context.Context, tx Tx) error

type Store interface {
	Get(ctx context.Context, key Key) (Snapshot, error)
	List(ctx context.Context, collection string) ([]Snapshot, error)
	Set(ctx context.Context, key Key, v interface{}) error
	Delete(ctx context.Context, key Key) error

	// RunTransaction runs fn once. If fn returns an error nothing is
	// written and the error is returned as is. Otherwise the buffered
	// writes commit only if every key read is still at the version seen,
	// else ErrConflict. There is no retry.
	RunTransaction(ctx context.Context, fn TxFunc) error

	// Subscribe delivers the current snapshot of key and then later
	// committed snapshots in commit order until ctx ends or the returned
	// function is called.
	Subscribe(ctx context.Context, key Key, fn func(Snapshot)) (func(), error)
}
