// Package series provides the typed column the fragment generators work
// on: a dtype tag, an expression and the dialect both are bound to.
package series

import (
	"fmt"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
)

// Node identifies the relation a column's rows come from. Columns that
// share a Node share row identity.
type Node struct {
	Name string
	From expr.Expression
}

// Series is an immutable typed column. Every rebinding returns a copy;
// the dialect never changes over a column's lifetime.
type Series struct {
	dtype    string
	expr     expr.Expression
	dialect  *dialect.Dialect
	name     string
	registry *dtype.Registry
	node     *Node
}

// Option configures a Series in New and CopyOverride.
type Option func(*Series)

// WithExpression replaces the column's expression.
func WithExpression(e expr.Expression) Option {
	return func(s *Series) { s.expr = e }
}

// WithName sets the output name of the column.
func WithName(name string) Option {
	return func(s *Series) { s.name = name }
}

// WithNode binds the column to a relation.
func WithNode(n *Node) Option {
	return func(s *Series) { s.node = n }
}

// WithRegistry sets the dtype registry. The default is dtype.Builtin().
func WithRegistry(r *dtype.Registry) Option {
	return func(s *Series) { s.registry = r }
}

// New returns a column of the given dtype. The dtype is resolved to its
// canonical name and must have a physical type on d.
func New(d *dialect.Dialect, dt string, e expr.Expression, opts ...Option) (*Series, error) {
	s := &Series{expr: e, dialect: d, registry: dtype.Builtin()}
	for _, opt := range opts {
		opt(s)
	}
	canonical, err := s.registry.Canonical(dt)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.registry.PhysicalType(d, canonical); err != nil {
		return nil, err
	}
	s.dtype = canonical
	return s, nil
}

// Column is New for a named column reference.
func Column(d *dialect.Dialect, name, dt string, opts ...Option) (*Series, error) {
	return New(d, dt, expr.Identifier(name), append([]Option{WithName(name)}, opts...)...)
}

// FromValue returns a constant column holding value, bound like base.
// An empty dtype infers it from the Go type of value.
func FromValue(base *Series, value any, dt string) (*Series, error) {
	if dt == "" {
		inferred, err := base.registry.DtypeForValue(value)
		if err != nil {
			return nil, err
		}
		dt = inferred
	}
	e, err := base.registry.ValueToExpression(base.dialect, value, dt)
	if err != nil {
		return nil, err
	}
	return New(base.dialect, dt, e, WithRegistry(base.registry), WithNode(base.node))
}

// Dtype returns the canonical dtype name.
func (s *Series) Dtype() string { return s.dtype }

// Expression implements expr.Expressioner.
func (s *Series) Expression() expr.Expression { return s.expr }

// Dialect returns the dialect the column is bound to.
func (s *Series) Dialect() *dialect.Dialect { return s.dialect }

// Name returns the output name, which may be empty.
func (s *Series) Name() string { return s.name }

// Node returns the relation the column belongs to, or nil.
func (s *Series) Node() *Node { return s.node }

// Registry returns the dtype registry the column resolves types with.
func (s *Series) Registry() *dtype.Registry { return s.registry }

// CopyOverride returns a copy with the options applied.
func (s *Series) CopyOverride(opts ...Option) *Series {
	c := *s
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// CopyOverrideType returns a copy tagged with another dtype. The
// expression is kept as is; use AsType to convert it.
func (s *Series) CopyOverrideType(dt string) (*Series, error) {
	canonical, err := s.registry.Canonical(dt)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.registry.PhysicalType(s.dialect, canonical); err != nil {
		return nil, err
	}
	c := *s
	c.dtype = canonical
	return &c, nil
}

// AsType converts the column to dt through the registry's cast rules.
func (s *Series) AsType(dt string) (*Series, error) {
	canonical, err := s.registry.Canonical(dt)
	if err != nil {
		return nil, err
	}
	e, err := s.registry.Cast(s.dialect, s.dtype, canonical, s.expr)
	if err != nil {
		return nil, err
	}
	c := *s
	c.dtype = canonical
	c.expr = e
	return &c, nil
}

// Apply builds a new column of dtype dt from template, with s in the
// first slot and others after it. The result keeps s's binding.
func (s *Series) Apply(template, dt string, others ...expr.Expressioner) (*Series, error) {
	args := append([]expr.Expressioner{s}, others...)
	e, err := expr.Build(template, args...)
	if err != nil {
		return nil, err
	}
	return s.CopyOverride(WithExpression(e)).CopyOverrideType(dt)
}

// SQL renders the column's expression for its dialect.
func (s *Series) SQL() string {
	return s.expr.Render(s.dialect)
}

// Require returns a *core.ValueError unless the column's dtype is one of dts.
func (s *Series) Require(op string, dts ...string) error {
	for _, dt := range dts {
		if s.dtype == dt {
			return nil
		}
	}
	return &core.ValueError{
		Value:  s.dtype,
		Reason: fmt.Sprintf("%s is not supported on dtype %s (want one of %v)", op, s.dtype, dts),
		Err:    core.ErrInvalidDtype,
	}
}

// String describes the column for logs.
func (s *Series) String() string {
	name := s.name
	if name == "" {
		name = "<expr>"
	}
	return fmt.Sprintf("%s %s [%s]", name, s.dtype, s.SQL())
}
