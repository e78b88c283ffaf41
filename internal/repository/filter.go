package repository

import (
	"fmt"

	"github.com/sakif/book-catalog/internal/apperror"
)

// Field names a filterable book column.
type Field string

const (
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
	FieldGenre  Field = "genre"
)

func (f Field) valid() bool {
	switch f {
	case FieldTitle, FieldAuthor, FieldGenre:
		return true
	}
	return false
}

// Op tags which variant a Condition is.
type Op int

const (
	// OpEquals is an exact, case-sensitive match.
	OpEquals Op = iota + 1
	// OpContains is a case-insensitive substring match. The value is literal
	// text, never a pattern.
	OpContains
	// OpAnyOf is satisfied when at least one nested condition is.
	OpAnyOf
)

// Condition is a tagged variant: Field/Value are used by OpEquals and
// OpContains, Any by OpAnyOf. Build them with Equals, Contains and AnyOf.
type Condition struct {
	Op    Op
	Field Field
	Value string
	Any   []Condition
}

func Equals(field Field, value string) Condition {
	return Condition{Op: OpEquals, Field: field, Value: value}
}

func Contains(field Field, value string) Condition {
	return Condition{Op: OpContains, Field: field, Value: value}
}

func AnyOf(conds ...Condition) Condition {
	return Condition{Op: OpAnyOf, Any: conds}
}

// BookFilter is a conjunction of conditions. The zero value matches every book.
type BookFilter struct {
	All []Condition
}

// Where appends a condition and returns the filter for chaining.
func (f BookFilter) Where(c Condition) BookFilter {
	f.All = append(append([]Condition(nil), f.All...), c)
	return f
}

// Validate rejects filters the store must never see: unknown fields, empty
// values, and AnyOf groups that are empty or nest another AnyOf.
func (f BookFilter) Validate() error {
	for _, c := range f.All {
		if err := c.validate(true); err != nil {
			return err
		}
	}
	return nil
}

func (c Condition) validate(top bool) error {
	switch c.Op {
	case OpEquals, OpContains:
		if !c.Field.valid() {
			return apperror.ValidationFailed(string(c.Field),
				fmt.Sprintf("cannot filter on field %q", c.Field))
		}
		if c.Value == "" {
			return apperror.ValidationFailed(string(c.Field),
				fmt.Sprintf("filter value for %s must not be empty", c.Field))
		}
		return nil
	case OpAnyOf:
		if !top {
			return apperror.ValidationFailed("filter", "nested any-of filters are not supported")
		}
		if len(c.Any) == 0 {
			return apperror.ValidationFailed("filter", "any-of filter needs at least one condition")
		}
		for _, sub := range c.Any {
			if err := sub.validate(false); err != nil {
				return err
			}
		}
		return nil
	default:
		return apperror.ValidationFailed("filter", fmt.Sprintf("unknown filter operator %d", c.Op))
	}
}
