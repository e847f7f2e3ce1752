/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ordering

import (
	"slices"
	"strings"

	"github.com/suparena/cloudstore/errors"
)

// Direction is the sort direction of a clause. The zero value is Ascending.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts asc/ascending and desc/descending, case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, errors.NewSourcedValidationError("ordering.ParseDirection", "direction",
		"must be asc or desc, got "+s)
}

// OrderBy is one sort clause. Property is a dot-separated field path such as
// "Address.City".
type OrderBy struct {
	Property  string    `json:"property" yaml:"property"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// Asc orders by property ascending.
func Asc(property string) OrderBy {
	return OrderBy{Property: property, Direction: Ascending}
}

// Desc orders by property descending.
func Desc(property string) OrderBy {
	return OrderBy{Property: property, Direction: Descending}
}

func (o OrderBy) String() string {
	return o.Property + " " + o.Direction.String()
}

// Effective returns the clauses that take part in ordering. The list is cut at the
// first clause with an empty property: that clause and every clause after it are
// dropped. dropped is the number of discarded clauses.
func Effective(clauses []OrderBy) (kept []OrderBy, dropped int) {
	for i, c := range clauses {
		if strings.TrimSpace(c.Property) == "" {
			return slices.Clone(clauses[:i]), len(clauses) - i
		}
	}
	return slices.Clone(clauses), 0
}
