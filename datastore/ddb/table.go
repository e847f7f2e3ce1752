/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/internal/retry"
	"github.com/suparena/cloudstore/storagemodels"
)

// Table is a DynamoDB table keyed by PartitionKey (hash) and RowKey (range).
type Table struct {
	client  API
	name    string
	log     *zap.Logger
	waitFor time.Duration
}

var _ datastore.TableStore = (*Table)(nil)

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Ensure creates the table on demand and waits until it is active.
func (t *Table) Ensure(ctx context.Context) error {
	_, err := ensureTable(ctx, t.client, t.log, t.waitFor, &sdk.CreateTableInput{
		TableName: aws.String(t.name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(storagemodels.AttrPartitionKey), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(storagemodels.AttrRowKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(storagemodels.AttrPartitionKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(storagemodels.AttrRowKey), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

// Get performs a consistent GetItem on the key.
func (t *Table) Get(ctx context.Context, partitionKey, rowKey string) (storagemodels.Item, bool, error) {
	out, err := t.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            storagemodels.KeyItem(partitionKey, rowKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, classify("GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	return out.Item, true, nil
}

// ScanPage runs a GetItem when the filter names one entity, a Query when it names
// a partition and a Scan otherwise.
func (t *Table) ScanPage(ctx context.Context, filter storagemodels.KeyFilter, start storagemodels.Item, opts storagemodels.ScanOptions) ([]storagemodels.Item, storagemodels.Item, error) {
	if len(start) == 0 {
		start = nil
	}

	if filter.IsPointRead() {
		// a point read is a single page
		if start != nil {
			return nil, nil, nil
		}
		item, found, err := t.Get(ctx, filter.PartitionKey, filter.RowKey)
		if err != nil || !found {
			return nil, nil, err
		}
		return []storagemodels.Item{item}, nil, nil
	}

	if filter.PartitionKey != "" {
		cond, names, values := keyCondition(filter)
		out, err := t.client.Query(ctx, &sdk.QueryInput{
			TableName:                 aws.String(t.name),
			KeyConditionExpression:    aws.String(cond),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         start,
			Limit:                     limit(opts.PageSize),
			ConsistentRead:            aws.Bool(opts.ConsistentRead),
		})
		if err != nil {
			return nil, nil, classify("Query", err)
		}
		return out.Items, lastKey(out.LastEvaluatedKey), nil
	}

	out, err := t.client.Scan(ctx, &sdk.ScanInput{
		TableName:         aws.String(t.name),
		ExclusiveStartKey: start,
		Limit:             limit(opts.PageSize),
		ConsistentRead:    aws.Bool(opts.ConsistentRead),
	})
	if err != nil {
		return nil, nil, classify("Scan", err)
	}
	return out.Items, lastKey(out.LastEvaluatedKey), nil
}

// Merge upserts item with UpdateItem so attributes it does not carry survive.
func (t *Table) Merge(ctx context.Context, item storagemodels.Item) error {
	expr, err := buildMergeExpression(item)
	if err != nil {
		return retry.Permanent(err)
	}

	in := &sdk.UpdateItemInput{
		TableName: aws.String(t.name),
		Key:       expr.key,
	}
	if expr.update != "" {
		in.UpdateExpression = aws.String(expr.update)
		in.ExpressionAttributeNames = expr.names
		in.ExpressionAttributeValues = expr.values
	}
	if _, err := t.client.UpdateItem(ctx, in); err != nil {
		return classify("UpdateItem", err)
	}
	return nil
}

// Delete removes the item. DynamoDB treats a missing key as success.
func (t *Table) Delete(ctx context.Context, partitionKey, rowKey string) error {
	_, err := t.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       storagemodels.KeyItem(partitionKey, rowKey),
	})
	if err != nil {
		return classify("DeleteItem", err)
	}
	return nil
}

func limit(pageSize int32) *int32 {
	if pageSize <= 0 {
		return nil
	}
	return aws.Int32(pageSize)
}

func lastKey(k map[string]types.AttributeValue) storagemodels.Item {
	if len(k) == 0 {
		return nil
	}
	return k
}

// ensureTable creates the table described by in unless it exists, then waits for it
// to become active. created is false when the table was already there.
func ensureTable(ctx context.Context, client API, log *zap.Logger, waitFor time.Duration, in *sdk.CreateTableInput) (created bool, err error) {
	name := aws.ToString(in.TableName)

	_, err = client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: in.TableName})
	switch {
	case err == nil:
		return false, nil
	case !isNotFound(err):
		return false, classify("DescribeTable", err)
	}

	if _, err := client.CreateTable(ctx, in); err != nil && !isInUse(err) {
		return false, classify("CreateTable", err)
	}

	waiter := sdk.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: in.TableName}, waitFor); err != nil {
		return false, fmt.Errorf("waiting for table %s: %w", name, err)
	}
	log.Info("table created", zap.String("table", name))
	return true, nil
}
