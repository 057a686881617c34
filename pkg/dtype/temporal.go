package dtype

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/datepart"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/expr"
)

// CivilDate is a calendar date without a time zone.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// String returns the date as YYYY-MM-DD.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CivilDate) valid() bool {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return DateOf(t) == d
}

// TimeOfDay is a wall clock time without a date or time zone.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// TimeOfDayOf returns the clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

// String returns the time as HH:MM:SS.ffffff, truncated to microseconds.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%06d", t.Hour, t.Minute, t.Second, t.Nanosecond/1000)
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60 &&
		t.Second >= 0 && t.Second < 60 && t.Nanosecond >= 0 && t.Nanosecond < 1e9
}

// Timestamp strings are tried in this order. time.Parse accepts a
// fractional second right after the seconds field even when the layout
// has none, so the first two formats share a layout.
var timestampFormats = []struct {
	label  string
	layout string
}{
	{"%Y-%m-%d %H:%M:%S.%f", "2006-1-2 15:4:5"},
	{"%Y-%m-%d %H:%M:%S", "2006-1-2 15:4:5"},
	{"%Y-%m-%d %H:%M", "2006-1-2 15:4"},
	{"%Y-%m-%d", "2006-1-2"},
}

const timestampLayout = "2006-01-02 15:04:05.000000"

func formatLabels(formats []struct{ label, layout string }) []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = f.label
	}
	return out
}

// ParseTimestamp parses a timestamp literal string. A value matching
// none of the accepted formats is a *core.ParseError listing them.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range timestampFormats {
		if t, err := time.Parse(f.layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &core.ParseError{Value: s, Dtype: Timestamp, Formats: formatLabels(timestampFormats)}
}

var dateFormats = []struct{ label, layout string }{{"%Y-%m-%d", "2006-1-2"}}

// ParseDate parses a YYYY-MM-DD date literal.
func ParseDate(s string) (CivilDate, error) {
	t, err := time.Parse(dateFormats[0].layout, strings.TrimSpace(s))
	if err != nil {
		return CivilDate{}, &core.ParseError{Value: s, Dtype: Date, Formats: formatLabels(dateFormats)}
	}
	return DateOf(t), nil
}

var timeFormats = []struct{ label, layout string }{
	{"%H:%M:%S.%f", "15:4:5"},
	{"%H:%M:%S", "15:4:5"},
	{"%H:%M", "15:4"},
}

// ParseTimeOfDay parses an HH:MM[:SS[.ffffff]] time literal.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, f := range timeFormats {
		if t, err := time.Parse(f.layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return TimeOfDay{}, &core.ParseError{Value: s, Dtype: Time, Formats: formatLabels(timeFormats)}
}

// FormatTimestamp renders t in UTC as YYYY-MM-DD HH:MM:SS.ffffff.
// Digits below the microsecond are dropped, not rounded.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func timestampLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	switch t := v.(type) {
	case time.Time:
		return expr.StringValue(FormatTimestamp(t)), nil
	case *time.Time:
		return expr.StringValue(FormatTimestamp(*t)), nil
	case CivilDate:
		if !t.valid() {
			return expr.Expression{}, &core.ParseError{Value: t.String(), Dtype: Timestamp, Formats: formatLabels(timestampFormats)}
		}
		return expr.StringValue(t.String() + " 00:00:00.000000"), nil
	case string:
		parsed, err := ParseTimestamp(t)
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.StringValue(FormatTimestamp(parsed)), nil
	}
	return expr.Expression{}, unsupportedValue(v, Timestamp)
}

// dateLiteral and timeLiteral read a time.Time in UTC, like timestampLiteral.
func dateLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	switch d := v.(type) {
	case CivilDate:
		if !d.valid() {
			return expr.Expression{}, &core.ParseError{Value: d.String(), Dtype: Date, Formats: formatLabels(dateFormats)}
		}
		return expr.StringValue(d.String()), nil
	case time.Time:
		return expr.StringValue(DateOf(d.UTC()).String()), nil
	case string:
		parsed, err := ParseDate(d)
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.StringValue(parsed.String()), nil
	}
	return expr.Expression{}, unsupportedValue(v, Date)
}

func timeLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	switch t := v.(type) {
	case TimeOfDay:
		if !t.valid() {
			return expr.Expression{}, &core.ParseError{Value: t.String(), Dtype: Time, Formats: formatLabels(timeFormats)}
		}
		return expr.StringValue(t.String()), nil
	case time.Time:
		return expr.StringValue(TimeOfDayOf(t.UTC()).String()), nil
	case string:
		parsed, err := ParseTimeOfDay(t)
		if err != nil {
			return expr.Expression{}, err
		}
		return expr.StringValue(parsed.String()), nil
	}
	return expr.Expression{}, unsupportedValue(v, Time)
}

func isDuration(v any) bool {
	_, ok := v.(time.Duration)
	return ok
}

func timedeltaLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	var d time.Duration
	switch t := v.(type) {
	case time.Duration:
		d = t
	case string:
		parsed, err := ParseDuration(t)
		if err != nil {
			return expr.Expression{}, err
		}
		d = parsed
	default:
		return expr.Expression{}, unsupportedValue(v, Timedelta)
	}
	return expr.StringValue(FormatISODuration(d)), nil
}

// FormatISODuration encodes d as an ISO-8601 duration, P{d}DT{h}H{m}M{s}S,
// after rounding it half away from zero to whole microseconds. The parts
// are justified: only the day count carries a sign, so -1s encodes as
// P-1DT23H59M59S. Both dialects accept the result as an interval literal.
func FormatISODuration(d time.Duration) string {
	c := datepart.Justify(d.Round(time.Microsecond).Microseconds())
	frac := c[datepart.Millisecond]*1000 + c[datepart.Microsecond]

	var sb strings.Builder
	fmt.Fprintf(&sb, "P%dDT%dH%dM%d", c[datepart.Day], c[datepart.Hour], c[datepart.Minute], c[datepart.Second])
	if frac != 0 {
		sb.WriteString("." + strings.TrimRight(fmt.Sprintf("%06d", frac), "0"))
	}
	sb.WriteString("S")
	return sb.String()
}

var (
	isoDuration = regexp.MustCompile(`^([-+])?P(?:(-?\d+)W)?(?:(-?\d+)D)?(?:T(?:(-?\d+)H)?(?:(-?\d+)M)?(?:(-?\d+)(?:\.(\d{1,9}))?S)?)?$`)
	daysClock   = regexp.MustCompile(`^(-?\d+) days?(?:,?\s+([-+])?(\d+):(\d{2}):(\d{2})(?:\.(\d{1,9}))?)?$`)
	plainClock  = regexp.MustCompile(`^([-+])?(\d+):(\d{2}):(\d{2})(?:\.(\d{1,9}))?$`)
)

var durationFormats = []string{"ISO-8601 (P1DT2H3M4.5S)", "N days HH:MM:SS[.f]", "HH:MM:SS[.f]", "Go duration (1h2m3.5s)"}

// ParseDuration parses a timedelta literal: an ISO-8601 duration without
// calendar units, the N days HH:MM:SS[.f] form, a bare HH:MM:SS[.f], or
// a Go duration string.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	fail := &core.ParseError{Value: s, Dtype: Timedelta, Formats: durationFormats}
	if s == "" {
		return 0, fail
	}

	if m := isoDuration.FindStringSubmatch(s); m != nil && s != "P" && !strings.HasSuffix(s, "T") {
		var total time.Duration
		for i, unit := range []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second} {
			if m[i+2] == "" {
				continue
			}
			n, err := strconv.ParseInt(m[i+2], 10, 64)
			if err != nil {
				return 0, fail
			}
			total += time.Duration(n) * unit
		}
		if m[7] != "" {
			frac := fraction(m[7])
			if strings.HasPrefix(m[6], "-") {
				frac = -frac
			}
			total += frac
		}
		if m[1] == "-" {
			total = -total
		}
		return total, nil
	}

	if m := daysClock.FindStringSubmatch(s); m != nil {
		days, _ := strconv.ParseInt(m[1], 10, 64)
		total := time.Duration(days) * 24 * time.Hour
		if m[3] != "" {
			clock := clockDuration(m[3], m[4], m[5], m[6])
			if m[2] == "-" {
				clock = -clock
			}
			total += clock
		}
		return total, nil
	}

	if m := plainClock.FindStringSubmatch(s); m != nil {
		clock := clockDuration(m[2], m[3], m[4], m[5])
		if m[1] == "-" {
			clock = -clock
		}
		return clock, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	return 0, fail
}

func clockDuration(h, m, s, frac string) time.Duration {
	hours, _ := strconv.ParseInt(h, 10, 64)
	minutes, _ := strconv.ParseInt(m, 10, 64)
	seconds, _ := strconv.ParseInt(s, 10, 64)
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second + fraction(frac)
}

// fraction converts the digits after a decimal point into nanoseconds.
func fraction(digits string) time.Duration {
	if digits == "" {
		return 0
	}
	padded := (digits + "000000000")[:9]
	n, _ := strconv.ParseInt(padded, 10, 64)
	return time.Duration(n)
}

// DurationFromSeconds converts float seconds to a Duration rounded to
// whole microseconds, the precision of both dialects' interval types.
func DurationFromSeconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1e6)) * time.Microsecond
}
