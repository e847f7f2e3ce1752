/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// fakeAPI scripts the DynamoDB calls a test cares about and records their inputs.
// Calls without a script panic through the nil embedded API.
type fakeAPI struct {
	API

	mu      sync.Mutex
	updates []*sdk.UpdateItemInput
	deletes []*sdk.DeleteItemInput
	batches []*sdk.BatchWriteItemInput
	scans   []*sdk.ScanInput

	scan       func(in *sdk.ScanInput) (*sdk.ScanOutput, error)
	updateItem func(in *sdk.UpdateItemInput) (*sdk.UpdateItemOutput, error)
	deleteItem func(in *sdk.DeleteItemInput) (*sdk.DeleteItemOutput, error)
	batchWrite func(in *sdk.BatchWriteItemInput) (*sdk.BatchWriteItemOutput, error)
	query      func(in *sdk.QueryInput) (*sdk.QueryOutput, error)
	getItem    func(in *sdk.GetItemInput) (*sdk.GetItemOutput, error)
	describe   func(in *sdk.DescribeTableInput) (*sdk.DescribeTableOutput, error)
}

func (f *fakeAPI) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	f.scans = append(f.scans, in)
	f.mu.Unlock()
	return f.scan(in)
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	f.updates = append(f.updates, in)
	f.mu.Unlock()
	if f.updateItem == nil {
		return &sdk.UpdateItemOutput{}, nil
	}
	return f.updateItem(in)
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	f.deletes = append(f.deletes, in)
	f.mu.Unlock()
	if f.deleteItem == nil {
		return &sdk.DeleteItemOutput{}, nil
	}
	return f.deleteItem(in)
}

func (f *fakeAPI) BatchWriteItem(_ context.Context, in *sdk.BatchWriteItemInput, _ ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	f.mu.Lock()
	f.batches = append(f.batches, in)
	f.mu.Unlock()
	if f.batchWrite == nil {
		return &sdk.BatchWriteItemOutput{}, nil
	}
	return f.batchWrite(in)
}

func (f *fakeAPI) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	return f.query(in)
}

func (f *fakeAPI) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	return f.getItem(in)
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	return f.describe(in)
}
