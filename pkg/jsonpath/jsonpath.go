// Package jsonpath navigates JSON columns: array items and slices, object
// fields, array length and membership. The Accessor picks a Postgres or
// BigQuery strategy once, when it is constructed.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

// Key selects part of a JSON value: Index, Field or Slice.
type Key interface {
	isKey()
}

// Index is a 0-based array position; negative counts from the end.
type Index int

// Field is an object key.
type Field string

// Slice is the array range [Start:Stop). Either bound may be nil. Step is
// not supported and must be zero.
type Slice struct {
	Start Bound
	Stop  Bound
	Step  int
}

func (Index) isKey() {}
func (Field) isKey() {}
func (Slice) isKey() {}

// Bound is one end of a Slice: Offset or Match.
type Bound interface {
	isBound()
}

// Offset is an array position; negative counts from the end.
type Offset int

// Match selects by content: the first array element whose object fields
// contain all of these pairs starts a slice, and the last such element
// ends one (inclusive). Only meaningful for arrays of objects; the
// database reports an error otherwise.
type Match map[string]any

func (Offset) isBound() {}
func (Match) isBound()  {}

// strategy generates the dialect-specific SQL. Arguments are already
// validated by the Accessor.
type strategy interface {
	arrayItem(col *series.Series, index int) expr.Expression
	slice(col *series.Series, start, stop Bound) (expr.Expression, error)
	getValue(col *series.Series, key string, asText bool) expr.Expression
	arrayLength(col *series.Series) expr.Expression
	arrayContains(col *series.Series, item any) (expr.Expression, error)
}

// Accessor navigates one JSON column.
type Accessor struct {
	col       *series.Series
	impl      strategy
	flattener Flattener
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithFlattener replaces the dialect's default array flattener.
func WithFlattener(f Flattener) Option {
	return func(a *Accessor) { a.flattener = f }
}

// New returns an accessor for a json or json_postgres column. A
// json_postgres column is converted to json first.
func New(col *series.Series, opts ...Option) (*Accessor, error) {
	if err := col.Require("json access", dtype.JSON, dtype.JSONPostgres); err != nil {
		return nil, err
	}
	if col.Dtype() == dtype.JSONPostgres {
		converted, err := col.AsType(dtype.JSON)
		if err != nil {
			return nil, err
		}
		col = converted
	}

	a := &Accessor{col: col}
	impl, err := dialect.Choose(col.Dialect(),
		func() (strategy, error) { return postgresStrategy{}, nil },
		func() (strategy, error) { return bigqueryStrategy{}, nil },
	)
	if err != nil {
		return nil, err
	}
	a.impl = impl
	a.flattener = defaultFlattener(col.Dialect())
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Column returns the (json typed) column being navigated.
func (a *Accessor) Column() *series.Series { return a.col }

// Item returns the array item, object field or array slice selected by key.
// Items and fields stay json typed; a missing item is NULL.
func (a *Accessor) Item(key Key) (*series.Series, error) {
	switch k := key.(type) {
	case Index:
		return a.json(a.impl.arrayItem(a.col, int(k)))
	case Field:
		return a.GetValue(string(k), false)
	case Slice:
		if k.Step != 0 {
			return nil, &core.ValueError{Value: fmt.Sprint(k.Step), Reason: "slice step is not implemented", Err: core.ErrSliceStep}
		}
		if err := checkBound(k.Start); err != nil {
			return nil, err
		}
		if err := checkBound(k.Stop); err != nil {
			return nil, err
		}
		e, err := a.impl.slice(a.col, k.Start, k.Stop)
		if err != nil {
			return nil, err
		}
		return a.json(e)
	}
	return nil, &core.KeyKindError{Got: fmt.Sprintf("%T", key)}
}

func checkBound(b Bound) error {
	switch v := b.(type) {
	case nil, Offset:
		return nil
	case Match:
		for k := range v {
			if err := checkKey(k); err != nil {
				return err
			}
		}
		return nil
	}
	return &core.KeyKindError{Got: fmt.Sprintf("%T", b)}
}

func checkKey(key string) error {
	if strings.Contains(key, `"`) {
		return &core.ValueError{Value: key, Reason: "key values containing double quotes are not supported", Err: core.ErrQuotedKey}
	}
	return nil
}

// GetValue returns an object field. With asText the result is a string
// column holding the bare text of a JSON string value.
func (a *Accessor) GetValue(key string, asText bool) (*series.Series, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	e := a.impl.getValue(a.col, key, asText)
	if asText {
		return a.col.CopyOverride(series.WithExpression(e)).CopyOverrideType(dtype.String)
	}
	return a.json(e)
}

// ArrayLength returns the length of a top-level array.
func (a *Accessor) ArrayLength() (*series.Series, error) {
	return a.col.CopyOverride(series.WithExpression(a.impl.arrayLength(a.col))).CopyOverrideType(dtype.Int64)
}

// ArrayContains tests whether a top-level array holds a scalar. A NULL
// column yields NULL.
func (a *Accessor) ArrayContains(item any) (*series.Series, error) {
	switch item.(type) {
	case nil, string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
	default:
		return nil, &core.KeyKindError{Got: fmt.Sprintf("%T", item)}
	}
	e, err := a.impl.arrayContains(a.col, item)
	if err != nil {
		return nil, err
	}
	return a.col.CopyOverride(series.WithExpression(e)).CopyOverrideType(dtype.Bool)
}

// FlattenArray returns one row per array element: the element and its
// 0-based offset. Both columns belong to a new relation node.
func (a *Accessor) FlattenArray() (elements, offsets *series.Series, err error) {
	return a.flattener.Flatten(a.col)
}

func (a *Accessor) json(e expr.Expression) (*series.Series, error) {
	return a.col.CopyOverride(series.WithExpression(e)), nil
}

// canonicalLiteral is the canonical JSON text of v as a string literal.
func canonicalLiteral(v any) (expr.Expression, error) {
	out, err := dtype.CanonicalJSON(v)
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.StringValue(string(out)), nil
}
