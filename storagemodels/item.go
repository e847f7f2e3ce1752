/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MarshalItem converts an entity into the attribute map stored by every table
// backend. Fields implementing encoding.TextMarshaler (strfmt.DateTime, time.Time)
// are stored as strings.
func MarshalItem(v any) (Item, error) {
	return attributevalue.MarshalMapWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.UseEncodingMarshalers = true
	})
}

// UnmarshalItem is the inverse of MarshalItem.
func UnmarshalItem(item Item, v any) error {
	return attributevalue.UnmarshalMapWithOptions(item, v, func(o *attributevalue.DecoderOptions) {
		o.UseEncodingUnmarshalers = true
	})
}

// KeyOf returns the partition and row key stored in item.
func KeyOf(item Item) (pk, rk string, ok bool) {
	var r Record
	if err := UnmarshalItem(item, &r); err != nil {
		return "", "", false
	}
	return r.PartitionKey, r.RowKey, r.PartitionKey != "" && r.RowKey != ""
}

// KeyItem returns the key attributes of the item identified by pk and rk.
func KeyItem(pk, rk string) Item {
	return Item{
		AttrPartitionKey: &types.AttributeValueMemberS{Value: pk},
		AttrRowKey:       &types.AttributeValueMemberS{Value: rk},
	}
}
