package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/utils"
)

type write struct {
	item    map[string]types.AttributeValue
	deleted bool
}

type tx struct {
	client *Client
	reads  map[store.Key]int64
	writes map[store.Key]write
	order  []store.Key
}

func (t *tx) Get(ctx context.Context, key store.Key) (store.Snapshot, error) {
	if w, ok := t.writes[key]; ok {
		if w.deleted {
			return store.Snapshot{Key: key}, nil
		}
		return store.Snapshot{Key: key, Version: t.reads[key] + 1, Item: w.item}, nil
	}
	snap, err := t.client.Get(ctx, key)
	if err != nil {
		return store.Snapshot{}, err
	}
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

// condition requires the item to still be at version, where 0 means absent.
func condition(version int64) (*string, map[string]string, map[string]types.AttributeValue) {
	if version == 0 {
		return aws.String("attribute_not_exists(#id)"),
			map[string]string{"#id": idAttribute},
			nil
	}
	return aws.String("#version = :version"),
		map[string]string{"#version": versionAttribute},
		map[string]types.AttributeValue{
			":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
		}
}

func (t *tx) items() ([]types.TransactWriteItem, error) {
	items := make([]types.TransactWriteItem, 0, len(t.reads))
	for _, key := range t.order {
		table, err := t.client.tableName(key.Collection)
		if err != nil {
			return nil, err
		}
		expr, names, values := condition(t.reads[key])
		w := t.writes[key]
		if w.deleted {
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName:                 table,
				Key:                       keyAttributes(key.Id),
				ConditionExpression:       expr,
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			}})
			continue
		}
		item := make(map[string]types.AttributeValue, len(w.item)+2)
		for k, v := range w.item {
			item[k] = v
		}
		item[idAttribute] = &types.AttributeValueMemberS{Value: key.Id}
		item[versionAttribute] = &types.AttributeValueMemberN{
			Value: strconv.FormatInt(t.reads[key]+1, 10),
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName:                 table,
			Item:                      item,
			ConditionExpression:       expr,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}})
	}
	for key, version := range t.reads {
		if _, written := t.writes[key]; written {
			continue
		}
		table, err := t.client.tableName(key.Collection)
		if err != nil {
			return nil, err
		}
		expr, names, values := condition(version)
		items = append(items, types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:                 table,
			Key:                       keyAttributes(key.Id),
			ConditionExpression:       expr,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}})
	}
	return items, nil
}

func isConflict(err error) bool {
	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return true
	}
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		switch aws.ToString(reason.Code) {
		case "ConditionalCheckFailed", "TransactionConflict":
			return true
		}
	}
	return false
}

// RunTransaction commits the staged writes in one TransactWriteItems call.
// Every key read is conditioned on its version, so a concurrent commit
// cancels the whole call.
func (client *Client) RunTransaction(ctx context.Context, fn store.TxFunc) error {
	t := &tx{
		client: client,
		reads:  make(map[store.Key]int64),
		writes: make(map[store.Key]write),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if len(t.writes) == 0 {
		return nil
	}

	items, err := t.items()
	if err != nil {
		return err
	}
	_, err = client.dynamodb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems:      items,
		ClientRequestToken: aws.String(utils.GenerateUUID()),
	})
	if err != nil {
		if isConflict(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("failed to transact write items: %w", err)
	}

	for _, key := range t.order {
		if t.writes[key].deleted {
			client.publish(ctx, key, 0)
		} else {
			client.publish(ctx, key, t.reads[key]+1)
		}
	}
	return nil
}
