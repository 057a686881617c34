// Package dtype is the registry of logical column types: how each type is
// spelled, which physical type it maps to per dialect, how a Go value
// becomes a literal fragment and how a fragment of one type is cast to
// another.
package dtype

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/expr"
)

// Physical is the column type a logical type maps to on one dialect.
// A type with Native false has no column type of its own and is stored
// as Name (the dialect's generic string type).
type Physical struct {
	Name   string
	Native bool
}

// Descriptor declares one logical type. Descriptors are values; a
// Registry keeps its own copies and never changes them.
type Descriptor struct {
	Name    string
	Aliases []string

	// Physical maps each supported dialect to its column type. A dialect
	// missing from the map does not support the type.
	Physical map[core.DialectKind]Physical

	// Sources lists the types Cast accepts as input, besides Name itself.
	Sources []string

	// Literal encodes a non-nil Go value as a literal fragment.
	Literal func(d *dialect.Dialect, value any) (expr.Expression, error)

	// BareLiterals marks types whose literal fragments are already typed
	// (numbers, booleans, strings); only NULL gets a cast.
	BareLiterals bool

	// Convert overrides the default cast template for an allowed source.
	Convert func(d *dialect.Dialect, from string, e expr.Expression) (expr.Expression, error)

	// Matches reports whether a Go value is naturally of this type.
	Matches func(value any) bool
}

// Registry is an immutable table of descriptors, safe for concurrent use.
type Registry struct {
	byName map[string]*Descriptor
	alias  map[string]string
	order  []string
}

// NewRegistry builds a registry. Names and aliases must be unique, and
// every cast source must itself be registered.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Descriptor, len(descs)),
		alias:  make(map[string]string),
	}
	claim := func(key, owner string) error {
		if _, ok := r.byName[key]; ok {
			return fmt.Errorf("dtype %q: name %q is already registered", owner, key)
		}
		if prev, ok := r.alias[key]; ok {
			return fmt.Errorf("dtype %q: alias %q is already used by %q", owner, key, prev)
		}
		return nil
	}

	for i := range descs {
		desc := cloneDescriptor(descs[i])
		if desc.Name == "" {
			return nil, fmt.Errorf("dtype at position %d has no name", i)
		}
		if desc.Literal == nil {
			return nil, fmt.Errorf("dtype %q has no literal rule", desc.Name)
		}
		if err := claim(desc.Name, desc.Name); err != nil {
			return nil, err
		}
		r.byName[desc.Name] = &desc
		r.order = append(r.order, desc.Name)
		for _, a := range desc.Aliases {
			if err := claim(a, desc.Name); err != nil {
				return nil, err
			}
			r.alias[a] = desc.Name
		}
	}

	for _, name := range r.order {
		for _, src := range r.byName[name].Sources {
			if _, ok := r.byName[src]; !ok {
				return nil, fmt.Errorf("dtype %q: cast source %q is not registered", name, src)
			}
		}
	}
	return r, nil
}

func cloneDescriptor(d Descriptor) Descriptor {
	d.Aliases = slices.Clone(d.Aliases)
	d.Sources = slices.Clone(d.Sources)
	phys := make(map[core.DialectKind]Physical, len(d.Physical))
	for k, v := range d.Physical {
		phys[k] = v
	}
	d.Physical = phys
	return d
}

// Lookup returns the descriptor for a name or alias.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	desc, err := r.lookup(name)
	if err != nil {
		return Descriptor{}, err
	}
	return cloneDescriptor(*desc), nil
}

func (r *Registry) lookup(name string) (*Descriptor, error) {
	key := strings.TrimSpace(name)
	if canonical, ok := r.alias[key]; ok {
		key = canonical
	}
	if desc, ok := r.byName[key]; ok {
		return desc, nil
	}
	return nil, &core.ValueError{Value: name, Reason: "unknown dtype", Err: core.ErrUnknownDtype}
}

// Canonical resolves an alias to the canonical dtype name.
func (r *Registry) Canonical(name string) (string, error) {
	desc, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return desc.Name, nil
}

// Names returns the canonical names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Aliases returns the aliases of a dtype, sorted.
func (r *Registry) Aliases(name string) []string {
	desc, err := r.lookup(name)
	if err != nil {
		return nil
	}
	out := slices.Clone(desc.Aliases)
	sort.Strings(out)
	return out
}

// PhysicalType returns the column type of dtype on d. native is false
// when the type has no native representation and rides on the dialect's
// string type. A dialect that does not support the type at all yields a
// *core.DatabaseNotSupportedError.
func (r *Registry) PhysicalType(d *dialect.Dialect, dtype string) (name string, native bool, err error) {
	desc, err := r.lookup(dtype)
	if err != nil {
		return "", false, err
	}
	if err := dialect.Supported(d); err != nil {
		return "", false, err
	}
	p, ok := desc.Physical[d.Kind]
	if !ok {
		return "", false, &core.DatabaseNotSupportedError{Dialect: d.Name, Feature: "dtype " + desc.Name}
	}
	if !p.Native && p.Name == "" {
		return d.StringType, false, nil
	}
	return p.Name, p.Native, nil
}

// LiteralFor encodes value as a literal fragment of dtype. A nil value is NULL.
func (r *Registry) LiteralFor(d *dialect.Dialect, value any, dtype string) (expr.Expression, error) {
	desc, err := r.lookup(dtype)
	if err != nil {
		return expr.Expression{}, err
	}
	if _, _, err := r.PhysicalType(d, desc.Name); err != nil {
		return expr.Expression{}, err
	}
	if isNil(value) {
		return expr.Null(), nil
	}
	return desc.Literal(d, value)
}

// ValueToExpression encodes value as a fragment that the database types as
// dtype: the literal, cast to the physical type unless the literal is
// already typed or the type rides on the string type.
func (r *Registry) ValueToExpression(d *dialect.Dialect, value any, dtype string) (expr.Expression, error) {
	lit, err := r.LiteralFor(d, value, dtype)
	if err != nil {
		return expr.Expression{}, err
	}
	desc, _ := r.lookup(dtype)
	phys, native, _ := r.PhysicalType(d, desc.Name)
	if desc.BareLiterals && !isNil(value) {
		return lit, nil
	}
	if !native && !isNil(value) {
		return lit, nil
	}
	return castTo(phys, lit), nil
}

// Cast converts fragment e of type from into type to. Casting a type to
// itself returns e unchanged. A source outside the target's allow-list is
// a *core.ConversionError naming both types.
func (r *Registry) Cast(d *dialect.Dialect, from, to string, e expr.Expression) (expr.Expression, error) {
	src, err := r.lookup(from)
	if err != nil {
		return expr.Expression{}, err
	}
	dst, err := r.lookup(to)
	if err != nil {
		return expr.Expression{}, err
	}
	if src.Name == dst.Name {
		return e, nil
	}
	phys, _, err := r.PhysicalType(d, dst.Name)
	if err != nil {
		return expr.Expression{}, err
	}
	if !slices.Contains(dst.Sources, src.Name) {
		return expr.Expression{}, &core.ConversionError{From: src.Name, To: dst.Name}
	}
	if dst.Convert != nil {
		return dst.Convert(d, src.Name, e)
	}
	return castTo(phys, e), nil
}

// DtypeForValue returns the dtype a Go value is naturally encoded as.
func (r *Registry) DtypeForValue(value any) (string, error) {
	if isNil(value) {
		return "", &core.ValueError{Value: "<nil>", Reason: "cannot infer dtype of nil", Err: core.ErrInvalidDtype}
	}
	for _, name := range r.order {
		if m := r.byName[name].Matches; m != nil && m(value) {
			return name, nil
		}
	}
	return "", &core.ValueError{Value: fmt.Sprintf("%T", value), Reason: "no dtype for Go type", Err: core.ErrInvalidDtype}
}

func castTo(physical string, e expr.Expression) expr.Expression {
	return expr.Construct("cast({} as {})", e, expr.Raw(physical))
}
