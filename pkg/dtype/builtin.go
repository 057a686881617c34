package dtype

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/expr"
)

// Canonical names of the builtin dtypes.
const (
	String       = "string"
	Int64        = "int64"
	Float64      = "float64"
	Bool         = "bool"
	Date         = "date"
	Time         = "time"
	Timestamp    = "timestamp"
	Timedelta    = "timedelta"
	JSON         = "json"
	JSONPostgres = "json_postgres"
)

// Builtin returns the process-wide registry of builtin dtypes. It is
// built on first use and read-only afterwards.
var Builtin = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(BuiltinDescriptors()...)
	if err != nil {
		panic(fmt.Sprintf("dtype: invalid builtin registry: %v", err))
	}
	return r
})

func native(pg, bq string) map[core.DialectKind]Physical {
	return map[core.DialectKind]Physical{
		core.KindPostgres: {Name: pg, Native: true},
		core.KindBigQuery: {Name: bq, Native: true},
	}
}

// BuiltinDescriptors returns fresh copies of the builtin descriptors, for
// callers that want to extend the builtin set in their own registry.
func BuiltinDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:         String,
			Aliases:      []string{"text"},
			Physical:     native("text", "STRING"),
			Sources:      []string{Int64, Float64, Bool, Date, Time, Timestamp, Timedelta, JSON, JSONPostgres},
			Literal:      stringLiteral,
			BareLiterals: true,
			Matches:      func(v any) bool { _, ok := v.(string); return ok },
		},
		{
			Name:         Int64,
			Aliases:      []string{"int", "bigint"},
			Physical:     native("bigint", "INT64"),
			Sources:      []string{Float64, Bool, String},
			Literal:      intLiteral,
			Convert:      viaInteger("bigint", "INT64"),
			BareLiterals: true,
			Matches:      isInteger,
		},
		{
			Name:         Float64,
			Aliases:      []string{"float", "double"},
			Physical:     native("double precision", "FLOAT64"),
			Sources:      []string{Int64, String},
			Literal:      floatLiteral,
			BareLiterals: true,
			Matches: func(v any) bool {
				switch v.(type) {
				case float32, float64:
					return true
				}
				return false
			},
		},
		{
			Name:         Bool,
			Aliases:      []string{"boolean"},
			Physical:     native("boolean", "BOOL"),
			Sources:      []string{Int64, String},
			Literal:      boolLiteral,
			Convert:      viaInteger("boolean", "BOOL"),
			BareLiterals: true,
			Matches:      func(v any) bool { _, ok := v.(bool); return ok },
		},
		{
			Name:     Date,
			Physical: native("date", "DATE"),
			Sources:  []string{String, Timestamp},
			Literal:  dateLiteral,
			Matches:  func(v any) bool { _, ok := v.(CivilDate); return ok },
		},
		{
			Name:     Time,
			Physical: native("time without time zone", "TIME"),
			Sources:  []string{String, Timestamp},
			Literal:  timeLiteral,
			Matches:  func(v any) bool { _, ok := v.(TimeOfDay); return ok },
		},
		{
			Name:     Timestamp,
			Aliases:  []string{"datetime64", "datetime64[ns]", "datetime"},
			Physical: native("timestamp without time zone", "TIMESTAMP"),
			Sources:  []string{String, Date},
			Literal:  timestampLiteral,
			Matches:  isTime,
		},
		{
			Name:     Timedelta,
			Aliases:  []string{"interval"},
			Physical: native("interval", "INTERVAL"),
			Sources:  []string{String},
			Literal:  timedeltaLiteral,
			Matches:  isDuration,
		},
		{
			Name:    JSON,
			Aliases: []string{"jsonb"},
			Physical: map[core.DialectKind]Physical{
				core.KindPostgres: {Name: "jsonb", Native: true},
				core.KindBigQuery: {},
			},
			Sources: []string{JSONPostgres, String},
			Literal: jsonLiteral,
			Convert: convertToJSON,
			Matches: isJSONValue,
		},
		{
			Name: JSONPostgres,
			Physical: map[core.DialectKind]Physical{
				core.KindPostgres: {Name: "json", Native: true},
			},
			Sources: []string{JSON},
			Literal: jsonLiteral,
		},
	}
}

func stringLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	switch s := v.(type) {
	case string:
		return expr.StringValue(s), nil
	case fmt.Stringer:
		return expr.StringValue(s.String()), nil
	}
	return expr.Expression{}, unsupportedValue(v, String)
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func intLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return expr.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return expr.Expression{}, &core.ConversionError{From: fmt.Sprintf("%T(%d)", v, u), To: Int64}
		}
		return expr.Int(int64(u)), nil
	}
	return expr.Expression{}, unsupportedValue(v, Int64)
}

// floatLiteral casts every literal explicitly: a bare 3 or 1.5 is an
// integer or numeric constant to Postgres, and 3 is INT64 to BigQuery.
func floatLiteral(d *dialect.Dialect, v any) (expr.Expression, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		if !isInteger(v) {
			return expr.Expression{}, unsupportedValue(v, Float64)
		}
		i, err := intLiteral(d, v)
		if err != nil {
			return expr.Expression{}, err
		}
		return floatCast(d, i)
	}
	if !math.IsNaN(f) && !math.IsInf(f, 0) {
		return floatCast(d, expr.Float(f))
	}
	return dialect.Choose(d,
		func() (expr.Expression, error) {
			return specialFloat(f, "NaN", "Infinity", "-Infinity", "double precision"), nil
		},
		func() (expr.Expression, error) {
			return specialFloat(f, "NaN", "inf", "-inf", "FLOAT64"), nil
		},
	)
}

func floatCast(d *dialect.Dialect, e expr.Expression) (expr.Expression, error) {
	physical, err := dialect.Pick(d, "double precision", "FLOAT64")
	if err != nil {
		return expr.Expression{}, err
	}
	return castTo(physical, e), nil
}

func specialFloat(f float64, nan, inf, negInf, physical string) expr.Expression {
	text := nan
	switch {
	case math.IsInf(f, 1):
		text = inf
	case math.IsInf(f, -1):
		text = negInf
	}
	return castTo(physical, expr.StringValue(text))
}

// viaInteger converts between bool and int64 through integer on
// Postgres, which has no direct boolean/bigint cast.
func viaInteger(pg, bq string) func(*dialect.Dialect, string, expr.Expression) (expr.Expression, error) {
	return func(d *dialect.Dialect, from string, e expr.Expression) (expr.Expression, error) {
		return dialect.Choose(d,
			func() (expr.Expression, error) {
				if from == Bool || from == Int64 {
					return castTo(pg, castTo("integer", e)), nil
				}
				return castTo(pg, e), nil
			},
			func() (expr.Expression, error) { return castTo(bq, e), nil },
		)
	}
}

func boolLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	b, ok := v.(bool)
	if !ok {
		return expr.Expression{}, unsupportedValue(v, Bool)
	}
	return expr.Bool(b), nil
}

func unsupportedValue(v any, dtype string) error {
	return &core.ConversionError{From: fmt.Sprintf("%T", v), To: dtype}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
