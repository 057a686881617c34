package jsonpath

import (
	"fmt"
	"math"
	"sort"

	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

type bigqueryStrategy struct{}

const stripQuotes = `REGEXP_REPLACE({}, r'(^"|"$)', '')`

// fieldPath is the JSONPath of an object key, $."key". Keys never hold a
// double quote; the Accessor rejects them.
func fieldPath(key string) expr.Expression {
	return expr.StringValue(`$."` + key + `"`)
}

// BigQuery has no negative subscript: the array is reversed and indexed
// from the front. SAFE_ORDINAL yields NULL out of range.
func (bigqueryStrategy) arrayItem(col *series.Series, index int) expr.Expression {
	if index < 0 {
		return expr.Construct("ARRAY_REVERSE(JSON_QUERY_ARRAY({}))[SAFE_ORDINAL({})]", col, expr.Int(-int64(index)))
	}
	return expr.Construct("JSON_QUERY({}, {})", col, expr.StringValue(fmt.Sprintf("$[%d]", index)))
}

func (bigqueryStrategy) getValue(col *series.Series, key string, asText bool) expr.Expression {
	e := expr.Construct("JSON_QUERY({}, {})", col, fieldPath(key))
	if asText {
		return expr.Construct(stripQuotes, e)
	}
	return e
}

func (bigqueryStrategy) arrayLength(col *series.Series) expr.Expression {
	return expr.Construct("ARRAY_LENGTH(JSON_QUERY_ARRAY({}))", col)
}

// arrayContains compares the needle's JSON text with each element's.
func (bigqueryStrategy) arrayContains(col *series.Series, item any) (expr.Expression, error) {
	needle, err := canonicalLiteral(item)
	if err != nil {
		return expr.Expression{}, err
	}
	in := expr.Construct("(SELECT {} IN UNNEST(JSON_QUERY_ARRAY({})))", needle, col)
	return expr.Construct("IF({} IS NULL, NULL, {})", col, in), nil
}

// slice filters on the 0-based offset: start inclusive, stop exclusive.
func (b bigqueryStrategy) slice(col *series.Series, start, stop Bound) (expr.Expression, error) {
	lo := expr.Int(0)
	hi := expr.Int(math.MaxInt64)
	var err error
	if start != nil {
		if lo, err = b.bound(col, start, false); err != nil {
			return expr.Expression{}, err
		}
	}
	if stop != nil {
		if hi, err = b.bound(col, stop, true); err != nil {
			return expr.Expression{}, err
		}
	}
	return expr.Construct(
		"'[' || ARRAY_TO_STRING(ARRAY(select val from unnest(JSON_QUERY_ARRAY({}, '$')) val "+
			"with offset as pos where pos >= {} and pos < {} order by pos), ', ') || ']'",
		col, lo, hi,
	), nil
}

func (bigqueryStrategy) bound(col *series.Series, b Bound, isStop bool) (expr.Expression, error) {
	switch v := b.(type) {
	case Offset:
		if v >= 0 {
			return expr.Int(int64(v)), nil
		}
		return expr.Construct("(ARRAY_LENGTH(JSON_QUERY_ARRAY({})) - {})", col, expr.Int(-int64(v))), nil
	case Match:
		cond, err := matchCondition(v)
		if err != nil {
			return expr.Expression{}, err
		}
		agg := "min(case when {} then pos end)"
		if isStop {
			agg = "1 + max(case when {} then pos end)"
		}
		return expr.Construct(
			"(select "+agg+" from unnest(JSON_QUERY_ARRAY({}, '$')) element with offset as pos)",
			cond, col,
		), nil
	}
	return expr.Expression{}, nil
}

// matchCondition tests every pair of m against the current element.
// String values are compared as bare text, others as canonical JSON.
func matchCondition(m Match) (expr.Expression, error) {
	if len(m) == 0 {
		return expr.Raw("true"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]expr.Expression, 0, len(keys))
	for _, k := range keys {
		field := expr.Construct("JSON_QUERY(element, {})", fieldPath(k))
		if s, ok := m[k].(string); ok {
			conds = append(conds, expr.Construct("{} = {}", expr.Construct(stripQuotes, field), expr.StringValue(s)))
			continue
		}
		lit, err := canonicalLiteral(m[k])
		if err != nil {
			return expr.Expression{}, err
		}
		conds = append(conds, expr.Construct("{} = {}", field, lit))
	}
	return expr.Join(conds, " AND "), nil
}
