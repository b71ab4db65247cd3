// Package memory is an in-process store.Store. It backs local play and the
// tests of every package built on the store contract.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tictacthree/tictacthree/internal/store"
)

type document struct {
	version int64
	item    map[string]types.AttributeValue
}

type Store struct {
	mu   sync.Mutex
	docs map[store.Key]document
	// seq survives deletes so a recreated document never reuses a version.
	seq  map[store.Key]int64
	subs map[store.Key]map[*subscription]struct{}
}

func New() *Store {
	return &Store{
		docs: make(map[store.Key]document),
		seq:  make(map[store.Key]int64),
		subs: make(map[store.Key]map[*subscription]struct{}),
	}
}

func (s *Store) snapshotLocked(key store.Key) store.Snapshot {
	d, ok := s.docs[key]
	if !ok {
		return store.Snapshot{Key: key}
	}
	return store.Snapshot{Key: key, Version: d.version, Item: d.item}
}

func (s *Store) versionLocked(key store.Key) int64 {
	return s.docs[key].version
}

func (s *Store) putLocked(key store.Key, item map[string]types.AttributeValue) {
	s.seq[key]++
	s.docs[key] = document{version: s.seq[key], item: item}
	s.publishLocked(key)
}

func (s *Store) deleteLocked(key store.Key) {
	if _, ok := s.docs[key]; !ok {
		return
	}
	s.seq[key]++
	delete(s.docs, key)
	s.publishLocked(key)
}

func (s *Store) Get(ctx context.Context, key store.Key) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(key), nil
}

func (s *Store) List(ctx context.Context, collection string) ([]store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	snapshots := make([]store.Snapshot, 0)
	for key := range s.docs {
		if key.Collection == collection {
			snapshots = append(snapshots, s.snapshotLocked(key))
		}
	}
	s.mu.Unlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Key.Id < snapshots[j].Key.Id
	})
	return snapshots, nil
}

func (s *Store) Set(ctx context.Context, key store.Key, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item, err := store.Encode(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, item)
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)
	return nil
}

type write struct {
	item    map[string]types.AttributeValue
	deleted bool
}

type tx struct {
	s      *Store
	reads  map[store.Key]int64
	writes map[store.Key]write
	order  []store.Key
}

func (t *tx) Get(ctx context.Context, key store.Key) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, err
	}
	if w, ok := t.writes[key]; ok {
		if w.deleted {
			return store.Snapshot{Key: key}, nil
		}
		return store.Snapshot{Key: key, Version: t.reads[key] + 1, Item: w.item}, nil
	}

	t.s.mu.Lock()
	snap := t.s.snapshotLocked(key)
	t.s.mu.Unlock()

	if _, seen := t.reads[key]; !seen {
		t.reads[key] = snap.Version
	}
	return snap, nil
}

func (t *tx) stage(key store.Key, w write) error {
	if _, ok := t.reads[key]; !ok {
		return store.ErrUnreadWrite
	}
	if _, ok := t.writes[key]; !ok {
		t.order = append(t.order, key)
	}
	t.writes[key] = w
	return nil
}

func (t *tx) Set(key store.Key, v interface{}) error {
	item, err := store.Encode(v)
	if err != nil {
		return err
	}
	return t.stage(key, write{item: item})
}

func (t *tx) Delete(key store.Key) error {
	return t.stage(key, write{deleted: true})
}

func (s *Store) RunTransaction(ctx context.Context, fn store.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{
		s:      s,
		reads:  make(map[store.Key]int64),
		writes: make(map[store.Key]write),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if len(t.writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, version := range t.reads {
		if s.versionLocked(key) != version {
			return store.ErrConflict
		}
	}
	for _, key := range t.order {
		w := t.writes[key]
		if w.deleted {
			s.deleteLocked(key)
		} else {
			s.putLocked(key, w.item)
		}
	}
	return nil
}
