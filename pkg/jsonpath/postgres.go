package jsonpath

import (
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

type postgresStrategy struct{}

// jsonb's -> already counts negative indexes from the end and yields
// NULL out of range.
func (postgresStrategy) arrayItem(col *series.Series, index int) expr.Expression {
	return expr.Construct("{}->{}", col, expr.Int(int64(index)))
}

func (postgresStrategy) getValue(col *series.Series, key string, asText bool) expr.Expression {
	if asText {
		return expr.Construct("{}->>{}", col, expr.StringValue(key))
	}
	return expr.Construct("{}->{}", col, expr.StringValue(key))
}

func (postgresStrategy) arrayLength(col *series.Series) expr.Expression {
	return expr.Construct("jsonb_array_length({})", col)
}

func (postgresStrategy) arrayContains(col *series.Series, item any) (expr.Expression, error) {
	needle, err := canonicalLiteral([]any{item})
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.Construct("{} @> cast({} as jsonb)", col, needle), nil
}

// slice filters on the 0-based ordinal with inclusive bounds.
func (p postgresStrategy) slice(col *series.Series, start, stop Bound) (expr.Expression, error) {
	var lo, hi expr.Expression
	var err error
	if start != nil {
		if lo, err = p.bound(col, start, false); err != nil {
			return expr.Expression{}, err
		}
	}
	if stop != nil {
		if hi, err = p.bound(col, stop, true); err != nil {
			return expr.Expression{}, err
		}
	}

	var where expr.Expression
	switch {
	case start != nil && stop != nil:
		where = expr.Construct("between {} and {}", lo, hi)
	case start != nil:
		where = expr.Construct(">= {}", lo)
	case stop != nil:
		where = expr.Construct("<= {}", hi)
	default:
		where = expr.Raw("is not null")
	}
	return expr.Construct(
		"coalesce((select jsonb_agg(x.value order by x.ordinality) "+
			"from jsonb_array_elements({}) with ordinality x "+
			"where x.ordinality - 1 {}), '[]'::jsonb)",
		col, where,
	), nil
}

// bound resolves a slice bound to an inclusive 0-based position. An
// exclusive integer stop n becomes n - 1.
func (postgresStrategy) bound(col *series.Series, b Bound, isStop bool) (expr.Expression, error) {
	switch v := b.(type) {
	case Offset:
		n := int64(v)
		if isStop {
			n--
		}
		if v >= 0 {
			return expr.Int(n), nil
		}
		return expr.Construct("(jsonb_array_length({}) - {})", col, expr.Int(-n)), nil
	case Match:
		needle, err := canonicalLiteral(map[string]any(v))
		if err != nil {
			return expr.Expression{}, err
		}
		agg := "min"
		if isStop {
			agg = "max"
		}
		return expr.Construct(
			"(select "+agg+"(case when cast({} as jsonb) <@ value then ordinality end) - 1 "+
				"from jsonb_array_elements({}) with ordinality)",
			needle, col,
		), nil
	}
	return expr.Expression{}, nil
}
