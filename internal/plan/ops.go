package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapseries/pkg/jsonpath"
	"github.com/leapstack-labs/leapseries/pkg/series"
	"github.com/leapstack-labs/leapseries/pkg/temporal"
)

// output is one named column produced by an operation. An empty suffix
// is the operation's own name.
type output struct {
	suffix string
	col    *series.Series
}

type opDef struct {
	decode func(raw map[string]any) (any, error)
	eval   func(b *binding, col *series.Series, args any) ([]output, error)
}

// op ties an argument struct to its evaluator.
func op[A any](eval func(b *binding, col *series.Series, args *A) ([]output, error)) opDef {
	return opDef{
		decode: func(raw map[string]any) (any, error) {
			var a A
			if err := decodeArgs(raw, &a); err != nil {
				return nil, err
			}
			if v, ok := any(&a).(interface{ validate() error }); ok {
				if err := v.validate(); err != nil {
					return nil, err
				}
			}
			return &a, nil
		},
		eval: func(b *binding, col *series.Series, args any) ([]output, error) {
			return eval(b, col, args.(*A))
		},
	}
}

func decodeArgs(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}

func single(s *series.Series, err error) ([]output, error) {
	if err != nil {
		return nil, err
	}
	return []output{{col: s}}, nil
}

type noArgs struct{}

type patternArgs struct {
	Pattern string `mapstructure:"pattern"`
}

func (a *patternArgs) validate() error {
	if a.Pattern == "" {
		return errors.New("args.pattern is required")
	}
	return nil
}

type strftimeArgs struct {
	Format string `mapstructure:"format"`
}

func (a *strftimeArgs) validate() error {
	if a.Format == "" {
		return errors.New("args.format is required")
	}
	return nil
}

type truncArgs struct {
	Part string `mapstructure:"part"`
}

func (a *truncArgs) validate() error {
	if a.Part == "" {
		return errors.New("args.part is required")
	}
	return nil
}

type castArgs struct {
	To string `mapstructure:"to"`
}

func (a *castArgs) validate() error {
	if a.To == "" {
		return errors.New("args.to is required")
	}
	return nil
}

type itemArgs struct {
	Index *int    `mapstructure:"index"`
	Key   *string `mapstructure:"key"`
	Start any     `mapstructure:"start"`
	Stop  any     `mapstructure:"stop"`
	Step  int     `mapstructure:"step"`
}

func (a *itemArgs) validate() error {
	set := 0
	if a.Index != nil {
		set++
	}
	if a.Key != nil {
		set++
	}
	if a.Start != nil || a.Stop != nil || a.Step != 0 {
		set++
	}
	if set > 1 {
		return errors.New("args take one of index, key or start/stop")
	}
	return nil
}

// key builds the jsonpath key. No arguments selects the whole array.
func (a *itemArgs) key() (jsonpath.Key, error) {
	switch {
	case a.Index != nil:
		return jsonpath.Index(*a.Index), nil
	case a.Key != nil:
		return jsonpath.Field(*a.Key), nil
	}
	start, err := bound(a.Start)
	if err != nil {
		return nil, fmt.Errorf("args.start: %w", err)
	}
	stop, err := bound(a.Stop)
	if err != nil {
		return nil, fmt.Errorf("args.stop: %w", err)
	}
	return jsonpath.Slice{Start: start, Stop: stop, Step: a.Step}, nil
}

func bound(v any) (jsonpath.Bound, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case int:
		return jsonpath.Offset(b), nil
	case map[string]any:
		return jsonpath.Match(b), nil
	}
	return nil, fmt.Errorf("expected an integer or a mapping, got %T", v)
}

type getArgs struct {
	Key    string `mapstructure:"key"`
	AsText bool   `mapstructure:"as_text"`
}

func (a *getArgs) validate() error {
	if a.Key == "" {
		return errors.New("args.key is required")
	}
	return nil
}

type containsArgs struct {
	Item any `mapstructure:"item"`
}

// operandArgs names the right-hand operand: another column, or a constant
// value of value_dtype (inferred when empty).
type operandArgs struct {
	Other      string `mapstructure:"other"`
	Value      any    `mapstructure:"value"`
	ValueDtype string `mapstructure:"value_dtype"`
}

func (a *operandArgs) validate() error {
	if (a.Other == "") == (a.Value == nil) {
		return errors.New("args take exactly one of other or value")
	}
	if a.Other != "" && a.ValueDtype != "" {
		return errors.New("args.value_dtype requires args.value")
	}
	return nil
}

func (a *operandArgs) operand(b *binding, col *series.Series) (*series.Series, error) {
	if a.Other != "" {
		return b.column(a.Other)
	}
	return series.FromValue(col, a.Value, a.ValueDtype)
}

func dateTime(col *series.Series, f func(*temporal.DateTimeOps) (*series.Series, error)) ([]output, error) {
	ops, err := temporal.DateTime(col)
	if err != nil {
		return nil, err
	}
	return single(f(ops))
}

func timedelta(col *series.Series, f func(*temporal.TimedeltaOps) (*series.Series, error)) ([]output, error) {
	ops, err := temporal.Timedelta(col)
	if err != nil {
		return nil, err
	}
	return single(f(ops))
}

func jsonAccess(col *series.Series, f func(*jsonpath.Accessor) ([]output, error)) ([]output, error) {
	a, err := jsonpath.New(col)
	if err != nil {
		return nil, err
	}
	return f(a)
}

func binary(f func(a, b *series.Series) (*series.Series, error)) opDef {
	return op(func(b *binding, col *series.Series, args *operandArgs) ([]output, error) {
		other, err := args.operand(b, col)
		if err != nil {
			return nil, err
		}
		return single(f(col, other))
	})
}

var ops = map[string]opDef{
	"sql_format": op(func(_ *binding, col *series.Series, a *patternArgs) ([]output, error) {
		return dateTime(col, func(o *temporal.DateTimeOps) (*series.Series, error) { return o.SQLFormat(a.Pattern) })
	}),
	"strftime": op(func(_ *binding, col *series.Series, a *strftimeArgs) ([]output, error) {
		return dateTime(col, func(o *temporal.DateTimeOps) (*series.Series, error) { return o.Strftime(a.Format) })
	}),
	"date_trunc": op(func(_ *binding, col *series.Series, a *truncArgs) ([]output, error) {
		return dateTime(col, func(o *temporal.DateTimeOps) (*series.Series, error) { return o.DateTrunc(a.Part) })
	}),
	"total_seconds": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return timedelta(col, (*temporal.TimedeltaOps).TotalSeconds)
	}),
	"days": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return timedelta(col, (*temporal.TimedeltaOps).Days)
	}),
	"seconds": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return timedelta(col, (*temporal.TimedeltaOps).Seconds)
	}),
	"microseconds": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return timedelta(col, (*temporal.TimedeltaOps).Microseconds)
	}),
	"components": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		o, err := temporal.Timedelta(col)
		if err != nil {
			return nil, err
		}
		parts, err := o.Components()
		if err != nil {
			return nil, err
		}
		out := make([]output, 0, len(parts))
		for _, p := range parts {
			out = append(out, output{suffix: p.Name(), col: p})
		}
		return out, nil
	}),
	"sum": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return timedelta(col, (*temporal.TimedeltaOps).Sum)
	}),
	"mean": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return timedelta(col, (*temporal.TimedeltaOps).Mean)
	}),
	"from_total_seconds": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return single(temporal.FromTotalSeconds(col))
	}),
	"cast": op(func(_ *binding, col *series.Series, a *castArgs) ([]output, error) {
		return single(col.AsType(a.To))
	}),
	"json_item": op(func(_ *binding, col *series.Series, a *itemArgs) ([]output, error) {
		key, err := a.key()
		if err != nil {
			return nil, err
		}
		return jsonAccess(col, func(acc *jsonpath.Accessor) ([]output, error) { return single(acc.Item(key)) })
	}),
	"json_get": op(func(_ *binding, col *series.Series, a *getArgs) ([]output, error) {
		return jsonAccess(col, func(acc *jsonpath.Accessor) ([]output, error) { return single(acc.GetValue(a.Key, a.AsText)) })
	}),
	"json_length": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return jsonAccess(col, func(acc *jsonpath.Accessor) ([]output, error) { return single(acc.ArrayLength()) })
	}),
	"json_contains": op(func(_ *binding, col *series.Series, a *containsArgs) ([]output, error) {
		return jsonAccess(col, func(acc *jsonpath.Accessor) ([]output, error) { return single(acc.ArrayContains(a.Item)) })
	}),
	"json_flatten": op(func(_ *binding, col *series.Series, _ *noArgs) ([]output, error) {
		return jsonAccess(col, func(acc *jsonpath.Accessor) ([]output, error) {
			elements, offsets, err := acc.FlattenArray()
			if err != nil {
				return nil, err
			}
			return []output{{suffix: "elements", col: elements}, {suffix: "offsets", col: offsets}}, nil
		})
	}),
	"add":    binary(temporal.Add),
	"sub":    binary(temporal.Sub),
	"scale":  binary(temporal.Scale),
	"divide": binary(temporal.Divide),
}

// OpNames returns the supported op names, sorted.
func OpNames() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
