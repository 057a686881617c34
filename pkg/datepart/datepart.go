// Package datepart defines the fixed units a duration is decomposed into
// and the reference arithmetic for that decomposition.
//
// The SQL generated by pkg/temporal and the ISO-8601 encoding in
// pkg/dtype both follow these functions, so a round trip through the
// database agrees with the Go side.
package datepart

import "math"

// DatePart is one unit of a decomposed duration, coarsest first.
type DatePart int

const (
	Day DatePart = iota
	Hour
	Minute
	Second
	Millisecond
	Microsecond
)

// Count is the number of date parts.
const Count = 6

// All returns every part in descending duration order.
func All() []DatePart {
	return []DatePart{Day, Hour, Minute, Second, Millisecond, Microsecond}
}

var names = [Count]string{"days", "hours", "minutes", "seconds", "milliseconds", "microseconds"}

// String returns the plural component name ("days", "hours", ...).
func (p DatePart) String() string {
	if p < 0 || int(p) >= Count {
		return "unknown"
	}
	return names[p]
}

// Parse resolves a component name, singular or plural.
func Parse(name string) (DatePart, bool) {
	for _, p := range All() {
		if name == p.String() || name+"s" == p.String() {
			return p, true
		}
	}
	return 0, false
}

var micros = [Count]int64{86_400_000_000, 3_600_000_000, 60_000_000, 1_000_000, 1_000, 1}

// Micros returns the length of one unit in microseconds.
func (p DatePart) Micros() int64 {
	return micros[p]
}

var seconds = [Count]float64{24 * 60 * 60, 60 * 60, 60, 1, 1e-3, 1e-6}

// Seconds returns the length of one unit in seconds.
func (p DatePart) Seconds() float64 {
	return seconds[p]
}

// Components holds one integer per DatePart, indexed by the part.
type Components [Count]int64

// Micros returns the total duration the components describe.
func (c Components) Micros() int64 {
	var total int64
	for _, p := range All() {
		total += c[p] * p.Micros()
	}
	return total
}

// Justify decomposes a duration given in microseconds. For each part,
// coarsest first, the remaining duration is aligned down to whole units
// of that part; the component is the difference to the previous part's
// aligned value. Negative durations therefore carry their sign in Day
// only: -1µs is -1 day, 23 hours, 59 minutes, 59.999999 seconds.
func Justify(totalMicros int64) Components {
	var (
		c    Components
		prev int64
	)
	for i, p := range All() {
		f := p.Micros()
		justified := totalMicros - FloorMod(totalMicros, f)
		if i == 0 {
			c[p] = justified / f
		} else {
			c[p] = (justified - prev) / f
		}
		prev = justified
	}
	return c
}

// JustifySeconds is Justify for a float seconds value, rounded half away
// from zero to whole microseconds first.
func JustifySeconds(totalSeconds float64) Components {
	return Justify(int64(math.Round(totalSeconds * 1e6)))
}

// SplitSeconds mirrors the single-field accessors. The seconds are
// rounded half away from zero to whole microseconds once; days is the
// floor of that over a day, seconds the whole seconds left in the day,
// micro the fractional second in microseconds.
func SplitSeconds(totalSeconds float64) (days, secs, micro int64) {
	us := int64(math.Round(totalSeconds * 1e6))
	day := Day.Micros()
	rest := FloorMod(us, day)
	return (us - rest) / day, rest / Second.Micros(), FloorMod(us, Second.Micros())
}

// FloorMod is the modulo whose result takes the sign of the divisor.
func FloorMod(x, y int64) int64 {
	m := x % y
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return m
}
