package plan

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

// Result is one rendered output column.
type Result struct {
	Name    string `json:"name"`
	Op      string `json:"op"`
	Dialect string `json:"dialect"`
	Dtype   string `json:"dtype"`
	SQL     string `json:"sql"`
	// From is the relation an output joins in, e.g. a flattened array.
	From string `json:"from,omitempty"`

	expr expr.Expression
	from expr.Expression
}

// Option configures evaluation.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger logs each operation at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// binding resolves names to columns bound to one dialect.
type binding struct {
	columns map[string]*series.Series
}

func (b *binding) column(name string) (*series.Series, error) {
	if c, ok := b.columns[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown column %q", name)
}

func newBinding(p *Plan, d *dialect.Dialect, reg *dtype.Registry) (*binding, error) {
	b := &binding{columns: make(map[string]*series.Series, len(p.Columns))}
	for _, c := range p.Columns {
		col, err := series.Column(d, c.Name, c.Dtype, series.WithRegistry(reg))
		if err != nil {
			return nil, &Error{Path: p.Path, Line: c.Line, Name: c.Name, Err: err}
		}
		b.columns[c.Name] = col
	}
	return b, nil
}

// Evaluate renders every operation for d. Each output is also bound under
// its name, so later operations can build on it. A nil reg uses the
// builtin dtypes.
func (p *Plan) Evaluate(d *dialect.Dialect, reg *dtype.Registry, opts ...Option) ([]Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if reg == nil {
		reg = dtype.Builtin()
	}
	if err := dialect.Supported(d); err != nil {
		return nil, err
	}

	b, err := newBinding(p, d, reg)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, op := range p.Operations {
		fail := func(err error) error {
			return &Error{Path: p.Path, Line: op.Line, Name: op.Name, Err: err}
		}
		def, ok := ops[op.Op]
		if !ok {
			return nil, fail(&UnknownOpError{Op: op.Op})
		}
		col, err := b.column(op.Column)
		if err != nil {
			return nil, fail(err)
		}
		args, err := def.decode(op.Args)
		if err != nil {
			return nil, fail(err)
		}
		outs, err := def.eval(b, col, args)
		if err != nil {
			return nil, fail(err)
		}

		for _, out := range outs {
			name := op.Name
			if out.suffix != "" {
				name += "." + out.suffix
			}
			r := Result{
				Name:    name,
				Op:      op.Op,
				Dialect: d.Name,
				Dtype:   out.col.Dtype(),
				SQL:     out.col.SQL(),
				expr:    out.col.Expression(),
			}
			if n := out.col.Node(); n != nil {
				r.from = n.From
				r.From = n.From.Render(d)
			}
			o.logger.Debug("evaluated operation",
				slog.String("name", name),
				slog.String("op", op.Op),
				slog.String("dialect", d.Name),
				slog.String("dtype", r.Dtype),
			)
			b.columns[name] = out.col
			results = append(results, r)
		}
	}
	return results, nil
}

// Rows returns the number of sample rows: the longest values list, at
// least one.
func (p *Plan) Rows() int {
	n := 1
	for _, c := range p.Columns {
		n = max(n, len(c.Values))
	}
	return n
}

// Source builds a row source from the sample values: one SELECT per row,
// joined with UNION ALL. Missing values are NULL.
func (p *Plan) Source(d *dialect.Dialect, reg *dtype.Registry) (expr.Expression, error) {
	if reg == nil {
		reg = dtype.Builtin()
	}
	if len(p.Columns) == 0 {
		return expr.Raw("SELECT 1 AS one"), nil
	}

	rows := make([]expr.Expression, 0, p.Rows())
	for i := range p.Rows() {
		cells := make([]expr.Expression, 0, len(p.Columns))
		for _, c := range p.Columns {
			var v any
			if i < len(c.Values) {
				v = c.Values[i]
			}
			lit, err := reg.ValueToExpression(d, v, c.Dtype)
			if err != nil {
				return expr.Expression{}, &Error{Path: p.Path, Line: c.Line, Name: c.Name, Err: fmt.Errorf("row %d: %w", i+1, err)}
			}
			cells = append(cells, expr.Construct("{} AS {}", lit, expr.Identifier(c.Name)))
		}
		rows = append(rows, expr.Construct("SELECT {}", expr.Join(cells, ", ")))
	}
	return expr.Join(rows, " UNION ALL "), nil
}

// CheckQuery is the query that evaluates r over source on d, one text value
// per row.
func CheckQuery(d *dialect.Dialect, source expr.Expression, r Result) expr.Expression {
	q := expr.Construct("SELECT cast(({}) as {}) AS value FROM ({}) t", r.expr, expr.Raw(d.StringType), source)
	if !r.from.IsEmpty() {
		q = expr.Construct("{} {}", q, r.from)
	}
	return q
}
