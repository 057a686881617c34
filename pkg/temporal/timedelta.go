package temporal

import (
	"time"

	"github.com/leapstack-labs/leapseries/pkg/datepart"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

// epochAnchor is the fixed timestamp BigQuery interval arithmetic is
// measured against.
const epochAnchor = "CAST('1970-01-01' AS TIMESTAMP)"

// TimedeltaOps holds the interval operations.
type TimedeltaOps struct {
	DateTimeOps
}

// Timedelta returns the operations for a timedelta column.
func Timedelta(col *series.Series) (*TimedeltaOps, error) {
	if err := col.Require("timedelta operations", dtype.Timedelta); err != nil {
		return nil, err
	}
	return &TimedeltaOps{DateTimeOps{col: col}}, nil
}

func (o *TimedeltaOps) derive(e expr.Expression, dt, name string) (*series.Series, error) {
	s, err := o.col.CopyOverride(series.WithExpression(e)).CopyOverrideType(dt)
	if err != nil {
		return nil, err
	}
	if name != "" {
		s = s.CopyOverride(series.WithName(name))
	}
	return s, nil
}

// totalSeconds is the float seconds expression of the interval.
func (o *TimedeltaOps) totalSeconds() (expr.Expression, error) {
	return dialect.Pick(o.col.Dialect(),
		expr.Construct("extract(epoch from {})", o.col),
		expr.Construct("UNIX_MICROS("+epochAnchor+" + {}) * {}", o.col, expr.Float(datepart.Microsecond.Seconds())),
	)
}

// totalMicros is the exact integer microseconds of the interval.
func (o *TimedeltaOps) totalMicros() (expr.Expression, error) {
	return dialect.Pick(o.col.Dialect(),
		expr.Construct("cast(extract(epoch from {}) * 1000000 as bigint)", o.col),
		expr.Construct("UNIX_MICROS("+epochAnchor+" + {})", o.col),
	)
}

// TotalSeconds converts the interval to float seconds.
func (o *TimedeltaOps) TotalSeconds() (*series.Series, error) {
	e, err := o.totalSeconds()
	if err != nil {
		return nil, err
	}
	return o.derive(e, dtype.Float64, "")
}

// Days, Seconds and Microseconds split the interval's total microseconds,
// rounded once, so they always agree with Components: days is floored,
// seconds is in [0, 86400) and microseconds in [0, 1000000).

// Days is floor(total seconds / 86400).
func (o *TimedeltaOps) Days() (*series.Series, error) {
	us, err := o.totalMicros()
	if err != nil {
		return nil, err
	}
	day := expr.Int(datepart.Day.Micros())
	return o.derive(o.intDiv(expr.Construct("{} - {}", us, o.floorMod(us, day)), day), dtype.Int64, "days")
}

// Seconds is the whole seconds left after removing whole days.
func (o *TimedeltaOps) Seconds() (*series.Series, error) {
	us, err := o.totalMicros()
	if err != nil {
		return nil, err
	}
	rest := o.floorMod(us, expr.Int(datepart.Day.Micros()))
	return o.derive(o.intDiv(rest, expr.Int(datepart.Second.Micros())), dtype.Int64, "seconds")
}

// Microseconds is the fractional second in whole microseconds.
func (o *TimedeltaOps) Microseconds() (*series.Series, error) {
	us, err := o.totalMicros()
	if err != nil {
		return nil, err
	}
	return o.derive(o.floorMod(us, expr.Int(datepart.Second.Micros())), dtype.Int64, "microseconds")
}

// floorMod is the integer modulo with the sign of f, which is positive.
func (o *TimedeltaOps) floorMod(a expr.Expressioner, f expr.Expression) expr.Expression {
	return o.mod(expr.Construct("{} + {}", o.mod(a, f), f), f)
}

func (o *TimedeltaOps) mod(a expr.Expressioner, f expr.Expression) expr.Expression {
	if o.col.Dialect().IsBigQuery() {
		return expr.Construct("MOD({}, {})", a, f)
	}
	return expr.Construct("mod({}, {})", a, f)
}

// intDiv divides integers; callers pass an exact multiple or a
// non-negative dividend, so truncation is floor.
func (o *TimedeltaOps) intDiv(a expr.Expressioner, f expr.Expression) expr.Expression {
	if o.col.Dialect().IsBigQuery() {
		return expr.Construct("DIV({}, {})", a, f)
	}
	return expr.Construct("({}) / {}", a, f)
}

// Components is one int64 column per date part, indexed by datepart.DatePart.
type Components [datepart.Count]*series.Series

// Components decomposes the interval into justified parts, coarsest first.
// For each part the total microseconds are aligned down to whole units of
// it; a part's value is the distance from the previous part's aligned
// value. Only days can be negative. The arithmetic is exact on integer
// microseconds and matches datepart.Justify.
func (o *TimedeltaOps) Components() (Components, error) {
	var out Components
	us, err := o.totalMicros()
	if err != nil {
		return out, err
	}
	var prev expr.Expression
	for i, p := range datepart.All() {
		f := expr.Int(p.Micros())
		justified := expr.Construct("({} - {})", us, o.floorMod(us, f))
		var value expr.Expression
		if i == 0 {
			value = o.intDiv(justified, f)
		} else {
			value = o.intDiv(expr.Construct("{} - {}", justified, prev), f)
		}
		prev = justified

		s, err := o.derive(value, dtype.Int64, p.String())
		if err != nil {
			return out, err
		}
		out[p] = s
	}
	return out, nil
}

// Sum aggregates the intervals.
func (o *TimedeltaOps) Sum() (*series.Series, error) {
	e, err := dialect.Pick(o.col.Dialect(),
		expr.Construct("sum({})", o.col),
		expr.Construct("SUM({})", o.col),
	)
	if err != nil {
		return nil, err
	}
	return o.derive(e, dtype.Timedelta, "")
}

// Mean averages the intervals. BigQuery's AVG keeps nanosecond residue
// its INTERVAL type cannot round trip, so the result is reassembled from
// its fields with the fraction rounded to six digits.
func (o *TimedeltaOps) Mean() (*series.Series, error) {
	e, err := dialect.Choose(o.col.Dialect(),
		func() (expr.Expression, error) {
			return expr.Construct("avg({})", o.col), nil
		},
		func() (expr.Expression, error) {
			return repairIntervalPrecision(expr.Construct("AVG({})", o.col)), nil
		},
	)
	if err != nil {
		return nil, err
	}
	return o.derive(e, dtype.Timedelta, "")
}

func repairIntervalPrecision(avg expr.Expression) expr.Expression {
	fields := []expr.Expression{}
	for _, part := range []string{"YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND"} {
		fields = append(fields, expr.Construct("EXTRACT("+part+" FROM {})", avg))
	}
	fields = append(fields, expr.Construct("EXTRACT(NANOSECOND FROM {}) / 1000", avg))
	formatted := expr.Construct("format({}, {})", expr.StringValue("%d-%d %d %d:%d:%d.%06.0f"), expr.Join(fields, ", "))
	return expr.Construct("cast({} as INTERVAL)", formatted)
}

// FromTotalSeconds builds an interval column from float seconds, rounded
// to whole microseconds. Aggregates that cannot run on intervals directly
// compute in seconds and come back through here.
func FromTotalSeconds(seconds *series.Series) (*series.Series, error) {
	if err := seconds.Require("from_total_seconds", dtype.Float64, dtype.Int64); err != nil {
		return nil, err
	}
	factor := expr.Float(datepart.Microsecond.Seconds())
	e, err := dialect.Pick(seconds.Dialect(),
		expr.Construct("cast(round(cast(({}) / {} as numeric)) as bigint) * interval '1 microsecond'", seconds, factor),
		expr.Construct("TIMESTAMP_MICROS(CAST(ROUND(({}) / {}) AS INT64)) - "+epochAnchor, seconds, factor),
	)
	if err != nil {
		return nil, err
	}
	return seconds.CopyOverride(series.WithExpression(e)).CopyOverrideType(dtype.Timedelta)
}

// FromDuration returns a constant interval column bound like base.
func FromDuration(base *series.Series, d time.Duration) (*series.Series, error) {
	return series.FromValue(base, d, dtype.Timedelta)
}
