package dtype_test

import (
	"math"
	"testing"
	"time"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dialects/bigquery"
	"github.com/leapstack-labs/leapseries/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysicalType(t *testing.T) {
	reg := dtype.Builtin()

	tests := []struct {
		dtype    string
		postgres string
		bigquery string
		bqNative bool
	}{
		{dtype.String, "text", "STRING", true},
		{dtype.Int64, "bigint", "INT64", true},
		{dtype.Float64, "double precision", "FLOAT64", true},
		{dtype.Bool, "boolean", "BOOL", true},
		{dtype.Date, "date", "DATE", true},
		{dtype.Time, "time without time zone", "TIME", true},
		{dtype.Timestamp, "timestamp without time zone", "TIMESTAMP", true},
		{"datetime64[ns]", "timestamp without time zone", "TIMESTAMP", true},
		{dtype.Timedelta, "interval", "INTERVAL", true},
		{dtype.JSON, "jsonb", "STRING", false},
	}
	for _, tt := range tests {
		t.Run(tt.dtype, func(t *testing.T) {
			name, native, err := reg.PhysicalType(postgres.Postgres, tt.dtype)
			require.NoError(t, err)
			assert.Equal(t, tt.postgres, name)
			assert.True(t, native)

			name, native, err = reg.PhysicalType(bigquery.BigQuery, tt.dtype)
			require.NoError(t, err)
			assert.Equal(t, tt.bigquery, name)
			assert.Equal(t, tt.bqNative, native)
		})
	}

	t.Run("json_postgres is postgres only", func(t *testing.T) {
		name, _, err := reg.PhysicalType(postgres.Postgres, dtype.JSONPostgres)
		require.NoError(t, err)
		assert.Equal(t, "json", name)

		_, _, err = reg.PhysicalType(bigquery.BigQuery, dtype.JSONPostgres)
		var dns *core.DatabaseNotSupportedError
		require.ErrorAs(t, err, &dns)
		assert.Equal(t, "bigquery", dns.Dialect)
	})

	t.Run("unknown dialect", func(t *testing.T) {
		d := dialect.NewDialect("duckdb", core.KindUnknown).Build()
		_, _, err := reg.PhysicalType(d, dtype.Date)
		var dns *core.DatabaseNotSupportedError
		require.ErrorAs(t, err, &dns)
		assert.Equal(t, "duckdb", dns.Dialect)
	})

	t.Run("unknown dtype", func(t *testing.T) {
		_, _, err := reg.PhysicalType(postgres.Postgres, "decimal")
		assert.ErrorIs(t, err, core.ErrUnknownDtype)
	})
}

func TestValueToExpression(t *testing.T) {
	reg := dtype.Builtin()
	ts := time.Date(2021, 5, 17, 10, 0, 0, 123456789, time.UTC)

	tests := []struct {
		name     string
		value    any
		dtype    string
		postgres string
		bigquery string
	}{
		{"string", "it's", dtype.String, "'it''s'", `'it\'s'`},
		{"int", 42, dtype.Int64, "42", "42"},
		{"negative int", int8(-3), dtype.Int64, "-3", "-3"},
		{"float", 1.5, dtype.Float64, "cast(1.5 as double precision)", "cast(1.5 as FLOAT64)"},
		{"integral float", 3.0, dtype.Float64, "cast(3 as double precision)", "cast(3 as FLOAT64)"},
		{"int as float", int32(7), dtype.Float64, "cast(7 as double precision)", "cast(7 as FLOAT64)"},
		{"bool", true, dtype.Bool, "true", "true"},
		{"null int", nil, dtype.Int64, "cast(NULL as bigint)", "cast(NULL as INT64)"},
		{"nan", math.NaN(), dtype.Float64, "cast('NaN' as double precision)", "cast('NaN' as FLOAT64)"},
		{"inf", math.Inf(1), dtype.Float64, "cast('Infinity' as double precision)", "cast('inf' as FLOAT64)"},
		{"-inf", math.Inf(-1), dtype.Float64, "cast('-Infinity' as double precision)", "cast('-inf' as FLOAT64)"},
		{
			"timestamp is truncated to microseconds", ts, dtype.Timestamp,
			"cast('2021-05-17 10:00:00.123456' as timestamp without time zone)",
			"cast('2021-05-17 10:00:00.123456' as TIMESTAMP)",
		},
		{
			"timestamp string", "2021-05-17 10:00", dtype.Timestamp,
			"cast('2021-05-17 10:00:00.000000' as timestamp without time zone)",
			"cast('2021-05-17 10:00:00.000000' as TIMESTAMP)",
		},
		{
			"date", dtype.CivilDate{Year: 2021, Month: time.January, Day: 2}, dtype.Date,
			"cast('2021-01-02' as date)", "cast('2021-01-02' as DATE)",
		},
		{
			"date from time.Time", ts, dtype.Date,
			"cast('2021-05-17' as date)", "cast('2021-05-17' as DATE)",
		},
		{
			"time", "10:30", dtype.Time,
			"cast('10:30:00.000000' as time without time zone)", "cast('10:30:00.000000' as TIME)",
		},
		{
			"timedelta", 26*time.Hour + 3*time.Minute + 4*time.Second + 5*time.Microsecond, dtype.Timedelta,
			"cast('P1DT2H3M4.000005S' as interval)", "cast('P1DT2H3M4.000005S' as INTERVAL)",
		},
		{
			"json", map[string]any{"b": 1, "a": []any{true, nil}}, dtype.JSON,
			`cast('{"a":[true,null],"b":1}' as jsonb)`, `'{"a":[true,null],"b":1}'`,
		},
		{"null json", nil, dtype.JSON, "cast(NULL as jsonb)", "cast(NULL as STRING)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg, err := reg.ValueToExpression(postgres.Postgres, tt.value, tt.dtype)
			require.NoError(t, err)
			assert.Equal(t, tt.postgres, pg.Render(postgres.Postgres))

			bq, err := reg.ValueToExpression(bigquery.BigQuery, tt.value, tt.dtype)
			require.NoError(t, err)
			assert.Equal(t, tt.bigquery, bq.Render(bigquery.BigQuery))
		})
	}
}

func TestLiteralFor_Errors(t *testing.T) {
	reg := dtype.Builtin()

	t.Run("malformed timestamp lists attempted formats", func(t *testing.T) {
		_, err := reg.LiteralFor(postgres.Postgres, "17/05/2021", dtype.Timestamp)
		var pe *core.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, []string{"%Y-%m-%d %H:%M:%S.%f", "%Y-%m-%d %H:%M:%S", "%Y-%m-%d %H:%M", "%Y-%m-%d"}, pe.Formats)
	})

	t.Run("invalid calendar date", func(t *testing.T) {
		_, err := reg.LiteralFor(postgres.Postgres, "2021-02-30", dtype.Date)
		var pe *core.ParseError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("wrong go type", func(t *testing.T) {
		_, err := reg.LiteralFor(postgres.Postgres, 3.5, dtype.Timestamp)
		var ce *core.ConversionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "timestamp", ce.To)
	})

	t.Run("uint64 out of range", func(t *testing.T) {
		_, err := reg.LiteralFor(postgres.Postgres, uint64(math.MaxUint64), dtype.Int64)
		assert.ErrorIs(t, err, core.ErrUnsupportedConversion)
	})

	t.Run("json_postgres literal on bigquery", func(t *testing.T) {
		_, err := reg.LiteralFor(bigquery.BigQuery, map[string]any{}, dtype.JSONPostgres)
		var dns *core.DatabaseNotSupportedError
		assert.ErrorAs(t, err, &dns)
	})
}

func TestCast(t *testing.T) {
	reg := dtype.Builtin()
	col := expr.Identifier("x")

	tests := []struct {
		name     string
		from, to string
		postgres string
		bigquery string
	}{
		{"timestamp to date", dtype.Timestamp, dtype.Date, "cast(x as date)", "cast(x as DATE)"},
		{"string to timestamp", dtype.String, dtype.Timestamp, "cast(x as timestamp without time zone)", "cast(x as TIMESTAMP)"},
		{"string to timedelta", dtype.String, dtype.Timedelta, "cast(x as interval)", "cast(x as INTERVAL)"},
		{"string to json", dtype.String, dtype.JSON, "cast(x as jsonb)", "x"},
		{"json to string", dtype.JSON, dtype.String, "cast(x as text)", "cast(x as STRING)"},
		{"alias source", "text", "interval", "cast(x as interval)", "cast(x as INTERVAL)"},
		{"bool to int64", dtype.Bool, dtype.Int64, "cast(cast(x as integer) as bigint)", "cast(x as INT64)"},
		{"int64 to bool", dtype.Int64, dtype.Bool, "cast(cast(x as integer) as boolean)", "cast(x as BOOL)"},
		{"float to int64", dtype.Float64, dtype.Int64, "cast(x as bigint)", "cast(x as INT64)"},
		{"string to bool", dtype.String, dtype.Bool, "cast(x as boolean)", "cast(x as BOOL)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg, err := reg.Cast(postgres.Postgres, tt.from, tt.to, col)
			require.NoError(t, err)
			assert.Equal(t, tt.postgres, pg.Render(postgres.Postgres))

			bq, err := reg.Cast(bigquery.BigQuery, tt.from, tt.to, col)
			require.NoError(t, err)
			assert.Equal(t, tt.bigquery, bq.Render(bigquery.BigQuery))
		})
	}

	t.Run("json_postgres to json on postgres", func(t *testing.T) {
		got, err := reg.Cast(postgres.Postgres, dtype.JSONPostgres, dtype.JSON, col)
		require.NoError(t, err)
		assert.Equal(t, "cast(x as jsonb)", got.String())
	})

	t.Run("unlisted source names both types", func(t *testing.T) {
		_, err := reg.Cast(postgres.Postgres, dtype.Bool, dtype.Timestamp, col)
		var ce *core.ConversionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "bool", ce.From)
		assert.Equal(t, "timestamp", ce.To)
		assert.ErrorIs(t, err, core.ErrUnsupportedConversion)
	})
}

func TestCast_Reflexive(t *testing.T) {
	reg := dtype.Builtin()
	col := expr.Identifier("x")
	for _, d := range []*dialect.Dialect{postgres.Postgres, bigquery.BigQuery} {
		for _, name := range reg.Names() {
			if _, _, err := reg.PhysicalType(d, name); err != nil {
				continue
			}
			t.Run(d.Name+"/"+name, func(t *testing.T) {
				once, err := reg.Cast(d, name, name, col)
				require.NoError(t, err)
				assert.True(t, once.Equal(col))

				for _, src := range reg.Names() {
					first, err := reg.Cast(d, src, name, col)
					if err != nil {
						continue
					}
					again, err := reg.Cast(d, name, name, first)
					require.NoError(t, err)
					assert.True(t, again.Equal(first), "cast(%s, cast(%s, f)) changed the fragment", name, name)
				}
			})
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := dtype.Builtin()
	assert.Same(t, reg, dtype.Builtin())

	for alias, want := range map[string]string{
		"datetime64": "timestamp", "datetime64[ns]": "timestamp", "interval": "timedelta",
		"jsonb": "json", "text": "string", "bigint": "int64",
	} {
		got, err := reg.Canonical(alias)
		require.NoError(t, err)
		assert.Equal(t, want, got, alias)
	}

	assert.Equal(t, []string{"string", "int64", "float64", "bool", "date", "time", "timestamp", "timedelta", "json", "json_postgres"}, reg.Names())
	assert.Equal(t, []string{"datetime", "datetime64", "datetime64[ns]"}, reg.Aliases(dtype.Timestamp))

	desc, err := reg.Lookup("interval")
	require.NoError(t, err)
	desc.Sources[0] = "mutated"
	again, _ := reg.Lookup("interval")
	assert.Equal(t, "string", again.Sources[0], "lookup returns a copy")
}

func TestNewRegistry_Rejects(t *testing.T) {
	descs := dtype.BuiltinDescriptors()

	_, err := dtype.NewRegistry(append(descs, descs[0])...)
	assert.ErrorContains(t, err, "already registered")

	dup := dtype.BuiltinDescriptors()
	dup[1].Aliases = append(dup[1].Aliases, "text")
	_, err = dtype.NewRegistry(dup...)
	assert.ErrorContains(t, err, `alias "text" is already used`)

	_, err = dtype.NewRegistry(dtype.Descriptor{Name: "x", Literal: nil})
	assert.ErrorContains(t, err, "no literal rule")

	orphan := dtype.BuiltinDescriptors()[4:5]
	_, err = dtype.NewRegistry(orphan...)
	assert.ErrorContains(t, err, "cast source")
}

func TestDtypeForValue(t *testing.T) {
	reg := dtype.Builtin()
	tests := []struct {
		value any
		want  string
	}{
		{"a", "string"},
		{7, "int64"},
		{uint16(7), "int64"},
		{7.5, "float64"},
		{false, "bool"},
		{dtype.CivilDate{Year: 2021, Month: 1, Day: 1}, "date"},
		{dtype.TimeOfDay{Hour: 1}, "time"},
		{time.Now(), "timestamp"},
		{time.Second, "timedelta"},
		{map[string]any{"a": 1}, "json"},
		{[]any{1, 2}, "json"},
	}
	for _, tt := range tests {
		got, err := reg.DtypeForValue(tt.value)
		require.NoError(t, err, "%T", tt.value)
		assert.Equal(t, tt.want, got, "%T", tt.value)
	}

	_, err := reg.DtypeForValue(struct{}{})
	assert.ErrorIs(t, err, core.ErrInvalidDtype)
	_, err = reg.DtypeForValue(nil)
	assert.ErrorIs(t, err, core.ErrInvalidDtype)
}
