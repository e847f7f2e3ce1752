/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/cloudstore/storagemodels"
)

// mergeExpression splits item into its key and a "SET #f0 = :v0, ..." expression
// over every other attribute. Names are placeholders so reserved words are safe.
// update is empty when item carries nothing but its key.
type mergeExpression struct {
	key    storagemodels.Item
	update string
	names  map[string]string
	values map[string]types.AttributeValue
}

func buildMergeExpression(item storagemodels.Item) (mergeExpression, error) {
	pk, rk, ok := storagemodels.KeyOf(item)
	if !ok {
		return mergeExpression{}, fmt.Errorf("item has no %s/%s", storagemodels.AttrPartitionKey, storagemodels.AttrRowKey)
	}
	expr := mergeExpression{key: storagemodels.KeyItem(pk, rk)}

	fields := slices.Sorted(maps.Keys(item))
	clauses := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == storagemodels.AttrPartitionKey || field == storagemodels.AttrRowKey {
			continue
		}
		if expr.names == nil {
			expr.names = make(map[string]string)
			expr.values = make(map[string]types.AttributeValue)
		}
		name, value := fmt.Sprintf("#f%d", len(clauses)), fmt.Sprintf(":v%d", len(clauses))
		clauses = append(clauses, name+" = "+value)
		expr.names[name] = field
		expr.values[value] = item[field]
	}
	if len(clauses) > 0 {
		expr.update = "SET " + strings.Join(clauses, ", ")
	}
	return expr, nil
}

// keyCondition builds the Query key condition for a whole partition. Point reads
// go through GetItem instead.
func keyCondition(f storagemodels.KeyFilter) (string, map[string]string, map[string]types.AttributeValue) {
	names := map[string]string{"#pk": storagemodels.AttrPartitionKey}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: f.PartitionKey},
	}
	return "#pk = :pk", names, values
}
