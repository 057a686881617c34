package temporal

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

type arithKey struct {
	op          byte
	left, right string
}

// arithResults maps the supported operand pairs to the result dtype.
var arithResults = map[arithKey]string{
	{'+', dtype.Timestamp, dtype.Timedelta}: dtype.Timestamp,
	{'+', dtype.Date, dtype.Timedelta}:      dtype.Date,
	{'+', dtype.Timedelta, dtype.Date}:      dtype.Date,
	{'+', dtype.Timedelta, dtype.Timedelta}: dtype.Timedelta,
	{'+', dtype.Timedelta, dtype.Timestamp}: dtype.Timestamp,

	{'-', dtype.Timestamp, dtype.Timedelta}: dtype.Timestamp,
	{'-', dtype.Timestamp, dtype.Timestamp}: dtype.Timedelta,
	{'-', dtype.Date, dtype.Date}:           dtype.Timedelta,
	{'-', dtype.Date, dtype.Timedelta}:      dtype.Date,
	{'-', dtype.Timedelta, dtype.Timedelta}: dtype.Timedelta,
}

// Add returns a + b for the temporal operand pairs that have a result type.
func Add(a, b *series.Series) (*series.Series, error) {
	return arith('+', a, b)
}

// Sub returns a - b for the temporal operand pairs that have a result type.
func Sub(a, b *series.Series) (*series.Series, error) {
	return arith('-', a, b)
}

func arith(op byte, a, b *series.Series) (*series.Series, error) {
	if err := sameDialect(a, b); err != nil {
		return nil, err
	}
	result, ok := arithResults[arithKey{op, a.Dtype(), b.Dtype()}]
	if !ok {
		return nil, &core.ConversionError{
			From: fmt.Sprintf("%s %c %s", a.Dtype(), op, b.Dtype()),
			To:   "a temporal result",
		}
	}

	if op == '-' && a.Dtype() == dtype.Date && b.Dtype() == dtype.Date {
		return dateDiff(a, b)
	}

	e := expr.Construct("({}) "+string(op)+" ({})", a, b)
	if result == dtype.Date {
		var err error
		if e, err = roundToDate(a, e); err != nil {
			return nil, err
		}
	}
	return a.CopyOverride(series.WithExpression(e)).CopyOverrideType(result)
}

// dateDiff subtracts two dates as timestamps so the result is an
// interval on both dialects.
func dateDiff(a, b *series.Series) (*series.Series, error) {
	reg := a.Registry()
	ta, err := reg.Cast(a.Dialect(), dtype.Date, dtype.Timestamp, a.Expression())
	if err != nil {
		return nil, err
	}
	tb, err := reg.Cast(b.Dialect(), dtype.Date, dtype.Timestamp, b.Expression())
	if err != nil {
		return nil, err
	}
	interval, _, err := reg.PhysicalType(a.Dialect(), dtype.Timedelta)
	if err != nil {
		return nil, err
	}
	e := expr.Construct("cast({} - ({}) as {})", ta, tb, expr.Raw(interval))
	return a.CopyOverride(series.WithExpression(e)).CopyOverrideType(dtype.Timedelta)
}

// roundToDate turns date plus interval, which both dialects widen to a
// timestamp, back into a date. Half a day is added first so an interval
// that lands just short of midnight rounds to the nearest day.
func roundToDate(base *series.Series, e expr.Expression) (expr.Expression, error) {
	half, err := base.Registry().ValueToExpression(base.Dialect(), 12*time.Hour, dtype.Timedelta)
	if err != nil {
		return expr.Expression{}, err
	}
	date, _, err := base.Registry().PhysicalType(base.Dialect(), dtype.Date)
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.Construct("cast({} + {} as {})", e, half, expr.Raw(date)), nil
}

// Scale multiplies an interval by an int64 or float64 column.
func Scale(td, factor *series.Series) (*series.Series, error) {
	return scale('*', td, factor)
}

// Divide divides an interval by an int64 or float64 column.
func Divide(td, divisor *series.Series) (*series.Series, error) {
	return scale('/', td, divisor)
}

// BigQuery intervals only multiply by integers and do not divide, so
// everything but integer scaling goes through float seconds there.
func scale(op byte, td, n *series.Series) (*series.Series, error) {
	if err := sameDialect(td, n); err != nil {
		return nil, err
	}
	ops, err := Timedelta(td)
	if err != nil {
		return nil, err
	}
	if n.Dtype() != dtype.Int64 && n.Dtype() != dtype.Float64 {
		return nil, &core.ConversionError{From: fmt.Sprintf("timedelta %c %s", op, n.Dtype()), To: dtype.Timedelta}
	}

	if td.Dialect().IsPostgres() || (op == '*' && n.Dtype() == dtype.Int64) {
		e := expr.Construct("({}) "+string(op)+" ({})", td, n)
		return td.CopyOverride(series.WithExpression(e)), nil
	}
	secs, err := ops.TotalSeconds()
	if err != nil {
		return nil, err
	}
	scaled, err := secs.Apply("({}) "+string(op)+" ({})", dtype.Float64, n)
	if err != nil {
		return nil, err
	}
	return FromTotalSeconds(scaled)
}

func sameDialect(a, b *series.Series) error {
	if a.Dialect().Kind != b.Dialect().Kind {
		return &core.ValueError{
			Value:  b.Dialect().Name,
			Reason: "operand is bound to " + b.Dialect().Name + ", not " + a.Dialect().Name,
			Err:    core.ErrDialectMismatch,
		}
	}
	return nil
}
