/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suparena/cloudstore/datastore"
	"github.com/suparena/cloudstore/storagemodels"
)

// Queue attribute names. expiresAtEpoch holds seconds for DynamoDB TTL; every other
// time is Unix nanoseconds so conditions compare exactly.
const (
	attrID           = "id"
	attrTTL          = "expiresAtEpoch"
	batchWriteMax    = 25
	maxPurgeAttempts = 5
)

// messageItem is the stored form of a queue message.
type messageItem struct {
	ID             string `dynamodbav:"id"`
	Payload        string `dynamodbav:"payload"`
	DequeueCount   int    `dynamodbav:"dequeueCount"`
	InsertedAt     int64  `dynamodbav:"insertedAt"`
	VisibleAt      int64  `dynamodbav:"visibleAt"`
	ExpiresAt      int64  `dynamodbav:"expiresAt"`
	ExpiresAtEpoch int64  `dynamodbav:"expiresAtEpoch"`
	Receipt        string `dynamodbav:"receipt,omitempty"`
}

func (m messageItem) message() *storagemodels.Message {
	return &storagemodels.Message{
		ID:            m.ID,
		Payload:       m.Payload,
		DequeueCount:  m.DequeueCount,
		InsertedAt:    fromNanos(m.InsertedAt),
		ExpiresAt:     fromNanos(m.ExpiresAt),
		NextVisibleAt: fromNanos(m.VisibleAt),
		Receipt:       m.Receipt,
	}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func num(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func str(s string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: s}
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attrID: str(id)}
}

// Queue is a message queue stored in its own DynamoDB table keyed by message id.
// Leases are conditional updates on the receipt and visibility time.
type Queue struct {
	client  API
	name    string
	log     *zap.Logger
	waitFor time.Duration
}

var _ datastore.QueueStore = (*Queue)(nil)

// Name returns the queue name, which is also the table name.
func (q *Queue) Name() string {
	return q.name
}

// Ensure creates the queue table and turns on TTL for expired messages.
func (q *Queue) Ensure(ctx context.Context) error {
	created, err := ensureTable(ctx, q.client, q.log, q.waitFor, &sdk.CreateTableInput{
		TableName: aws.String(q.name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil || !created {
		return err
	}

	_, err = q.client.UpdateTimeToLive(ctx, &sdk.UpdateTimeToLiveInput{
		TableName: aws.String(q.name),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(attrTTL),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		// Expiry is enforced by every read; TTL only reclaims space.
		q.log.Warn("could not enable TTL on queue table", zap.String("queue", q.name), zap.Error(err))
	}
	return nil
}

// Send stores a new message.
func (q *Queue) Send(ctx context.Context, req storagemodels.SendRequest) (*storagemodels.Message, error) {
	expires := req.Now.Add(req.TTL)
	m := messageItem{
		ID:             uuid.NewString(),
		Payload:        req.Payload,
		InsertedAt:     req.Now.UnixNano(),
		VisibleAt:      req.Now.Add(req.Delay).UnixNano(),
		ExpiresAt:      expires.UnixNano(),
		ExpiresAtEpoch: expires.Unix(),
	}
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = q.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           aws.String(q.name),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return nil, classify("PutItem", err)
	}
	return m.message(), nil
}

// Receive scans for visible messages and leases the oldest one it wins. Losing the
// conditional update to another consumer moves on to the next candidate.
func (q *Queue) Receive(ctx context.Context, now time.Time, visibility time.Duration) (*storagemodels.Message, error) {
	candidates, err := q.scan(ctx, &sdk.ScanInput{
		TableName:        aws.String(q.name),
		FilterExpression: aws.String("visibleAt <= :now AND expiresAt > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": num(now.UnixNano()),
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(candidates, func(a, b messageItem) int {
		return cmp.Or(
			cmp.Compare(a.VisibleAt, b.VisibleAt),
			cmp.Compare(a.InsertedAt, b.InsertedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})

	until := now.Add(visibility).UnixNano()
	for _, c := range candidates {
		out, err := q.client.UpdateItem(ctx, &sdk.UpdateItemInput{
			TableName:           aws.String(q.name),
			Key:                 idKey(c.ID),
			UpdateExpression:    aws.String("SET visibleAt = :until, receipt = :receipt, dequeueCount = dequeueCount + :one"),
			ConditionExpression: aws.String("visibleAt = :seen AND dequeueCount = :count"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":until":   num(until),
				":receipt": str(uuid.NewString()),
				":one":     num(1),
				":seen":    num(c.VisibleAt),
				":count":   num(int64(c.DequeueCount)),
			},
			ReturnValues: types.ReturnValueAllNew,
		})
		if isConditionFailed(err) {
			continue
		}
		if err != nil {
			return nil, classify("UpdateItem", err)
		}

		var leased messageItem
		if err := attributevalue.UnmarshalMap(out.Attributes, &leased); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		return leased.message(), nil
	}
	return nil, nil
}

// ChangeVisibility moves a live lease and rotates its receipt.
func (q *Queue) ChangeVisibility(ctx context.Context, id, receipt string, now time.Time, visibility time.Duration) (string, time.Time, error) {
	until := now.Add(visibility)
	next := uuid.NewString()

	_, err := q.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:           aws.String(q.name),
		Key:                 idKey(id),
		UpdateExpression:    aws.String("SET visibleAt = :until, receipt = :next"),
		ConditionExpression: aws.String(leaseCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":until":   num(until.UnixNano()),
			":next":    str(next),
			":receipt": str(receipt),
			":now":     num(now.UnixNano()),
		},
	})
	if err != nil {
		return "", time.Time{}, handleError("UpdateItem", err)
	}
	return next, until.UTC(), nil
}

// Delete removes a message whose lease is still held under receipt.
func (q *Queue) Delete(ctx context.Context, id, receipt string, now time.Time) error {
	_, err := q.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:           aws.String(q.name),
		Key:                 idKey(id),
		ConditionExpression: aws.String(leaseCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":receipt": str(receipt),
			":now":     num(now.UnixNano()),
		},
	})
	if err != nil {
		return handleError("DeleteItem", err)
	}
	return nil
}

// leaseCondition holds while receipt is current and its lease has not run out.
// A missing item fails it too.
const leaseCondition = "receipt = :receipt AND visibleAt > :now AND expiresAt > :now"

// ApproximateCount counts unexpired messages with a COUNT scan.
func (q *Queue) ApproximateCount(ctx context.Context, now time.Time) (int, error) {
	p := sdk.NewScanPaginator(q.client, &sdk.ScanInput{
		TableName:        aws.String(q.name),
		Select:           types.SelectCount,
		FilterExpression: aws.String("expiresAt > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": num(now.UnixNano()),
		},
	})

	total := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, classify("Scan", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

// Purge deletes every message in batches of 25.
func (q *Queue) Purge(ctx context.Context) error {
	ids, err := q.scan(ctx, &sdk.ScanInput{
		TableName:            aws.String(q.name),
		ProjectionExpression: aws.String(attrID),
	})
	if err != nil {
		return err
	}

	for batch := range slices.Chunk(ids, batchWriteMax) {
		requests := make([]types.WriteRequest, 0, len(batch))
		for _, m := range batch {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: idKey(m.ID)},
			})
		}
		if err := q.batchDelete(ctx, requests); err != nil {
			return err
		}
	}

	q.log.Debug("queue purged", zap.String("queue", q.name), zap.Int("deleted", len(ids)))
	return nil
}

func (q *Queue) batchDelete(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{q.name: requests}
	for range maxPurgeAttempts {
		out, err := q.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return classify("BatchWriteItem", err)
		}
		if len(out.UnprocessedItems[q.name]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems
	}
	return fmt.Errorf("BatchWriteItem: %d deletes left unprocessed", len(pending[q.name]))
}

// scan reads every page of in into message items.
func (q *Queue) scan(ctx context.Context, in *sdk.ScanInput) ([]messageItem, error) {
	var items []messageItem
	p := sdk.NewScanPaginator(q.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify("Scan", err)
		}
		var decoded []messageItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &decoded); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
		items = append(items, decoded...)
	}
	return items, nil
}
