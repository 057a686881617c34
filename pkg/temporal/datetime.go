// Package temporal generates the date, time and interval operations for
// typed columns. Every operation returns a new column; nothing here
// performs I/O.
package temporal

import (
	"strings"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/series"
)

// DateTimeOps holds the operations shared by every temporal dtype.
type DateTimeOps struct {
	col *series.Series
}

// DateTime returns the operations for a date, time, timestamp or
// timedelta column.
func DateTime(col *series.Series) (*DateTimeOps, error) {
	if err := col.Require("datetime operations", dtype.Date, dtype.Time, dtype.Timestamp, dtype.Timedelta); err != nil {
		return nil, err
	}
	return &DateTimeOps{col: col}, nil
}

// Column returns the column the operations apply to.
func (o *DateTimeOps) Column() *series.Series { return o.col }

// SQLFormat formats the column with a pattern in the dialect's own
// format language, passed through untouched.
//
// Deprecated: the pattern is dialect specific. Use Strftime.
func (o *DateTimeOps) SQLFormat(pattern string) (*series.Series, error) {
	d := o.col.Dialect()
	e, err := dialect.Choose(d,
		func() (expr.Expression, error) {
			return expr.Construct("to_char({}, {})", postgresFormatSource(o.col), expr.StringValue(pattern)), nil
		},
		func() (expr.Expression, error) {
			fn, err := bigqueryFormatFunc(o.col)
			if err != nil {
				return expr.Expression{}, err
			}
			return expr.Construct(fn+"({}, {})", expr.StringValue(pattern), o.col), nil
		},
	)
	if err != nil {
		return nil, err
	}
	return o.col.CopyOverride(series.WithExpression(e)).CopyOverrideType(dtype.String)
}

// postgresFormatSource returns what to_char is applied to. Postgres has
// no to_char for time, so times are anchored on 1900-01-01.
func postgresFormatSource(col *series.Series) expr.Expressioner {
	if col.Dtype() == dtype.Time {
		return expr.Construct("cast('1900-01-01' as date) + {}", col)
	}
	return col
}

func bigqueryFormatFunc(col *series.Series) (string, error) {
	switch col.Dtype() {
	case dtype.Date:
		return "FORMAT_DATE", nil
	case dtype.Time:
		return "FORMAT_TIME", nil
	case dtype.Timestamp:
		return "FORMAT_TIMESTAMP", nil
	}
	return "", &core.DatabaseNotSupportedError{Dialect: col.Dialect().Name, Feature: "formatting " + col.Dtype() + " values"}
}

// truncParts is the allow-list for DateTrunc.
var truncParts = map[string]bool{
	"second": true, "minute": true, "hour": true, "day": true,
	"week": true, "month": true, "quarter": true, "year": true,
}

var subDayParts = map[string]bool{"second": true, "minute": true, "hour": true}

// TruncParts returns the parts DateTrunc accepts, finest first.
func TruncParts() []string {
	return []string{"second", "minute", "hour", "day", "week", "month", "quarter", "year"}
}

// DateTrunc truncates a date or timestamp column to part. Weeks start on
// Monday on both dialects.
func (o *DateTimeOps) DateTrunc(part string) (*series.Series, error) {
	part = strings.ToLower(strings.TrimSpace(part))
	if !truncParts[part] {
		return nil, &core.ValueError{Value: part, Reason: part + " format is not available.", Err: core.ErrInvalidDatePart}
	}
	if err := o.col.Require("date_trunc", dtype.Date, dtype.Timestamp); err != nil {
		return nil, err
	}

	isDate := o.col.Dtype() == dtype.Date
	e, err := dialect.Choose(o.col.Dialect(),
		func() (expr.Expression, error) {
			trunc := expr.Construct("date_trunc({}, {})", expr.StringValue(part), o.col)
			if isDate {
				return expr.Construct("cast({} as date)", trunc), nil
			}
			return trunc, nil
		},
		func() (expr.Expression, error) {
			unit := strings.ToUpper(part)
			if part == "week" {
				unit = "WEEK(MONDAY)"
			}
			if !isDate {
				return expr.Construct("TIMESTAMP_TRUNC({}, {})", o.col, expr.Raw(unit)), nil
			}
			if subDayParts[part] {
				return o.col.Expression(), nil
			}
			return expr.Construct("DATE_TRUNC({}, {})", o.col, expr.Raw(unit)), nil
		},
	)
	if err != nil {
		return nil, err
	}
	return o.col.CopyOverride(series.WithExpression(e)), nil
}
