/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// Attribute names every stored entity carries.
const (
	AttrPartitionKey = "PartitionKey"
	AttrRowKey       = "RowKey"
	AttrTimestamp    = "Timestamp"
)

// Record is the identity every table entity carries. Embed it in an entity struct:
//
//	type Employee struct {
//	    storagemodels.Record
//	    Name string
//	}
//
// (PartitionKey, RowKey) identifies the entity within its table and must not be
// changed once the entity has been stored.
type Record struct {
	// PartitionKey groups entities stored together.
	PartitionKey string `dynamodbav:"PartitionKey" json:"partitionKey" yaml:"partitionKey" validate:"required,max=1024,excludesall=/\\#?"`
	// RowKey is unique within the partition.
	RowKey string `dynamodbav:"RowKey" json:"rowKey" yaml:"rowKey" validate:"required,max=1024,excludesall=/\\#?"`
	// Timestamp is set by the repository on every write (UTC).
	Timestamp time.Time `dynamodbav:"Timestamp" json:"timestamp" yaml:"timestamp"`
}

// NewRecord returns a Record in the given partition with a freshly generated row key.
func NewRecord(partitionKey string) Record {
	return Record{
		PartitionKey: partitionKey,
		RowKey:       uuid.NewString(),
	}
}

// TableRecord returns the record itself; it makes any *T embedding Record an Entity.
func (r *Record) TableRecord() *Record {
	return r
}

// Key returns the "partition|row" form used in error messages and logs.
func (r *Record) Key() string {
	return r.PartitionKey + "|" + r.RowKey
}

// Entity is implemented by pointers to structs embedding Record.
type Entity interface {
	TableRecord() *Record
}

// Item is the attribute map every table backend stores.
type Item = map[string]types.AttributeValue

// KeyFilter is the part of a query a table backend evaluates on its side.
// An empty PartitionKey means a full table scan; RowKey is only honoured
// together with a PartitionKey.
type KeyFilter struct {
	PartitionKey string
	RowKey       string
}

// IsPointRead reports whether the filter names exactly one entity.
func (f KeyFilter) IsPointRead() bool {
	return f.PartitionKey != "" && f.RowKey != ""
}

// Page is one slice of an ordered query result.
type Page[T any] struct {
	Items      []*T
	PageIndex  int
	PageSize   int
	TotalCount int
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool {
	if p.PageSize < 1 || p.TotalCount == 0 {
		return false
	}
	return p.PageIndex < (p.TotalCount-1)/p.PageSize
}
