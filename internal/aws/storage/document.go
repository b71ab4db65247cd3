package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

func keyAttributes(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		idAttribute: &types.AttributeValueMemberS{Value: id},
	}
}

func versionOf(item map[string]types.AttributeValue) int64 {
	v, ok := item[versionAttribute].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func snapshotOf(key store.Key, item map[string]types.AttributeValue) store.Snapshot {
	if item == nil {
		return store.Snapshot{Key: key}
	}
	version := versionOf(item)
	if version == 0 {
		// Items written outside the store have no version yet.
		version = 1
	}
	return store.Snapshot{Key: key, Version: version, Item: item}
}

func (client *Client) Get(ctx context.Context, key store.Key) (store.Snapshot, error) {
	table, err := client.tableName(key.Collection)
	if err != nil {
		return store.Snapshot{}, err
	}
	output, err := client.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      table,
		Key:            keyAttributes(key.Id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to get item: %w", err)
	}
	return snapshotOf(key, output.Item), nil
}

func (client *Client) List(ctx context.Context, collection string) ([]store.Snapshot, error) {
	table, err := client.tableName(collection)
	if err != nil {
		return nil, err
	}
	paginator := dynamodb.NewScanPaginator(client.dynamodb, &dynamodb.ScanInput{
		TableName:      table,
		ConsistentRead: aws.Bool(true),
	})
	snapshots := make([]store.Snapshot, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		for _, item := range page.Items {
			id, ok := item[idAttribute].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			snapshots = append(snapshots, snapshotOf(store.Key{Collection: collection, Id: id.Value}, item))
		}
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Key.Id < snapshots[j].Key.Id
	})
	return snapshots, nil
}

// Set replaces the document unconditionally and bumps its version.
func (client *Client) Set(ctx context.Context, key store.Key, v interface{}) error {
	table, err := client.tableName(key.Collection)
	if err != nil {
		return err
	}
	item, err := store.Encode(v)
	if err != nil {
		return err
	}

	names := map[string]string{"#version": versionAttribute}
	values := map[string]types.AttributeValue{
		":one": &types.AttributeValueMemberN{Value: "1"},
	}
	attrs := make([]string, 0, len(item))
	for name := range item {
		if name != idAttribute && name != versionAttribute {
			attrs = append(attrs, name)
		}
	}
	sort.Strings(attrs)
	assignments := make([]string, 0, len(attrs))
	for i, name := range attrs {
		n, val := fmt.Sprintf("#a%d", i), fmt.Sprintf(":a%d", i)
		names[n] = name
		values[val] = item[name]
		assignments = append(assignments, n+" = "+val)
	}
	updateExpression := "ADD #version :one"
	if len(assignments) > 0 {
		updateExpression = "SET " + strings.Join(assignments, ", ") + " " + updateExpression
	}

	output, err := client.dynamodb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 table,
		Key:                       keyAttributes(key.Id),
		UpdateExpression:          aws.String(updateExpression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	client.publish(ctx, key, versionOf(output.Attributes))
	return nil
}

func (client *Client) Delete(ctx context.Context, key store.Key) error {
	table, err := client.tableName(key.Collection)
	if err != nil {
		return err
	}
	_, err = client.dynamodb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: table,
		Key:       keyAttributes(key.Id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	client.publish(ctx, key, 0)
	return nil
}

func (client *Client) publish(ctx context.Context, key store.Key, version int64) {
	if client.notifier == nil {
		return
	}
	if err := client.notifier.Publish(ctx, key, version); err != nil {
		logging.Warn("failed to publish change",
			zap.String("key", key.String()),
			zap.Error(err))
	}
}
