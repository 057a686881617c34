// Package plan loads YAML operation plans: typed sample columns plus a list
// of operations over them. A plan is evaluated against one dialect into
// rendered SQL fragments.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapseries/pkg/dtype"
)

// Plan is a parsed plan file.
type Plan struct {
	Columns    []Column    `yaml:"columns"`
	Operations []Operation `yaml:"operations"`

	// Path is the file the plan was loaded from, empty for Parse.
	Path string `yaml:"-"`
}

// Column declares a source column and optional sample rows.
type Column struct {
	Name   string `yaml:"name"`
	Dtype  string `yaml:"dtype"`
	Values []any  `yaml:"values"`

	Line int `yaml:"-"`
}

// Operation applies Op to Column. Args are decoded per op.
type Operation struct {
	Name   string         `yaml:"name"`
	Column string         `yaml:"column"`
	Op     string         `yaml:"op"`
	Args   map[string]any `yaml:"args"`

	Line int `yaml:"-"`
}

// checkKeys rejects mapping keys outside allowed. Node.Decode does not
// inherit the decoder's KnownFields setting.
func checkKeys(value *yaml.Node, allowed ...string) error {
	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(value.Content); i += 2 {
		key := value.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return fmt.Errorf("line %d: unknown field %q", key.Line, key.Value)
		}
	}
	return nil
}

// UnmarshalYAML records the line of the column entry.
func (c *Column) UnmarshalYAML(value *yaml.Node) error {
	if err := checkKeys(value, "name", "dtype", "values"); err != nil {
		return err
	}
	type raw Column
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}
	*c = Column(r)
	c.Line = value.Line
	return nil
}

// UnmarshalYAML records the line of the operation entry.
func (o *Operation) UnmarshalYAML(value *yaml.Node) error {
	if err := checkKeys(value, "name", "column", "op", "args"); err != nil {
		return err
	}
	type raw Operation
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}
	*o = Operation(r)
	o.Line = value.Line
	return nil
}

// Error locates a failure in a plan.
type Error struct {
	Path string
	Line int
	Name string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(":")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:", e.Line)
	}
	if sb.Len() > 0 {
		sb.WriteString(" ")
	}
	if e.Name != "" {
		fmt.Fprintf(&sb, "%q: ", e.Name)
	}
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrEmptyPlan is returned for a plan without operations.
var ErrEmptyPlan = errors.New("plan has no operations")

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // plan paths come from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	p, err := decode(data)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	p.Path = path
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes and validates a plan document.
func Parse(data []byte) (*Plan, error) {
	p, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decode(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPlan
		}
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}

// Validate checks names, references, dtypes and op arguments against the
// builtin registry.
func (p *Plan) Validate() error {
	return p.ValidateWith(dtype.Builtin())
}

// ValidateWith is Validate against reg.
func (p *Plan) ValidateWith(reg *dtype.Registry) error {
	if len(p.Operations) == 0 {
		return &Error{Path: p.Path, Err: ErrEmptyPlan}
	}

	known := make(map[string]bool)
	for _, c := range p.Columns {
		fail := func(format string, args ...any) error {
			return &Error{Path: p.Path, Line: c.Line, Name: c.Name, Err: fmt.Errorf(format, args...)}
		}
		switch {
		case c.Name == "":
			return fail("column name is required")
		case known[c.Name]:
			return fail("duplicate name")
		case c.Dtype == "":
			return fail("dtype is required")
		}
		if _, err := reg.Canonical(c.Dtype); err != nil {
			return &Error{Path: p.Path, Line: c.Line, Name: c.Name, Err: err}
		}
		known[c.Name] = true
	}

	for _, o := range p.Operations {
		fail := func(err error) error {
			return &Error{Path: p.Path, Line: o.Line, Name: o.Name, Err: err}
		}
		switch {
		case o.Name == "":
			return fail(errors.New("operation name is required"))
		case strings.Contains(o.Name, "."):
			return fail(errors.New("operation names cannot contain '.'"))
		case known[o.Name]:
			return fail(errors.New("duplicate name"))
		case !refersTo(known, o.Column):
			return fail(fmt.Errorf("unknown column %q", o.Column))
		}
		def, ok := ops[o.Op]
		if !ok {
			return fail(&UnknownOpError{Op: o.Op})
		}
		if _, err := def.decode(o.Args); err != nil {
			return fail(err)
		}
		known[o.Name] = true
	}
	return nil
}

// refersTo accepts a known name, or name.output of an earlier operation.
func refersTo(known map[string]bool, ref string) bool {
	if known[ref] {
		return true
	}
	prefix, _, ok := strings.Cut(ref, ".")
	return ok && known[prefix]
}

// UnknownOpError names an op that is not implemented.
type UnknownOpError struct {
	Op string
}

func (e *UnknownOpError) Error() string {
	return fmt.Sprintf("unknown op %q (available: %s)", e.Op, strings.Join(OpNames(), ", "))
}
