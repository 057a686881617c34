package jsonpath

import (
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

// Flattener turns a JSON array column into one row per element.
type Flattener interface {
	Flatten(col *series.Series) (elements, offsets *series.Series, err error)
}

// FlattenerFunc adapts a function to Flattener.
type FlattenerFunc func(col *series.Series) (elements, offsets *series.Series, err error)

// Flatten implements Flattener.
func (f FlattenerFunc) Flatten(col *series.Series) (*series.Series, *series.Series, error) {
	return f(col)
}

// lateralFlattener joins the array elements in as a new relation. The
// relation alias is unique per call so several flattens can share a query.
type lateralFlattener struct {
	postgres bool
	alias    func() string
}

func defaultFlattener(d *dialect.Dialect) Flattener {
	return lateralFlattener{postgres: d.IsPostgres(), alias: newAlias}
}

func newAlias() string {
	return "flat_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (f lateralFlattener) Flatten(col *series.Series) (*series.Series, *series.Series, error) {
	alias := f.alias()
	rel := expr.Identifier(alias)

	var (
		from          expr.Expression
		element, axis expr.Expression
	)
	if f.postgres {
		from = expr.Construct("cross join lateral jsonb_array_elements({}) with ordinality as {}(value, ordinality)", col, rel)
		element = expr.Construct("{}.value", rel)
		axis = expr.Construct("{}.ordinality - 1", rel)
	} else {
		el := expr.Identifier(alias + "_element")
		pos := expr.Identifier(alias + "_offset")
		from = expr.Construct("cross join unnest(JSON_QUERY_ARRAY({})) as {} with offset as {}", col, el, pos)
		element, axis = el, pos
	}

	node := &series.Node{Name: alias, From: from}
	elements := col.CopyOverride(series.WithExpression(element), series.WithNode(node), series.WithName(col.Name()))
	offsets, err := col.CopyOverride(
		series.WithExpression(axis), series.WithNode(node), series.WithName(col.Name()+"_offset"),
	).CopyOverrideType(dtype.Int64)
	if err != nil {
		return nil, nil, err
	}
	return elements, offsets, nil
}
