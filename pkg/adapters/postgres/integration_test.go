package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/leapstack-labs/leapseries/pkg/adapter"
	"github.com/leapstack-labs/leapseries/pkg/adapters/postgres"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/expr"
	"github.com/leapstack-labs/leapseries/pkg/jsonpath"
	"github.com/leapstack-labs/leapseries/pkg/series"
	"github.com/leapstack-labs/leapseries/pkg/temporal"
)

// databaseDSN returns DATABASE_URL, or starts a throwaway container.
func databaseDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:18-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start PostgreSQL container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// evaluate runs frag over a one-row source binding col to value.
func evaluate(t *testing.T, adp *postgres.Adapter, col *series.Series, value any, frag *series.Series) adapter.Value {
	t.Helper()
	d := adp.Dialect()
	lit, err := dtype.Builtin().ValueToExpression(d, value, col.Dtype())
	require.NoError(t, err)

	query := expr.Construct("SELECT cast(({}) as text) FROM (SELECT {} AS {}) t",
		frag, lit, expr.Identifier(col.Name()))
	got, err := adp.QueryColumn(context.Background(), query.Render(d))
	require.NoError(t, err, query.Render(d))
	require.Len(t, got, 1)
	return got[0]
}

func TestPostgresScenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	adp := postgres.New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{DSN: databaseDSN(t)}))
	t.Cleanup(func() { _ = adp.Close() })
	d := adp.Dialect()

	t.Run("week truncation starts on monday", func(t *testing.T) {
		ts, err := series.Column(d, "ts", dtype.Timestamp)
		require.NoError(t, err)
		ops, err := temporal.DateTime(ts)
		require.NoError(t, err)
		week, err := ops.DateTrunc("week")
		require.NoError(t, err)

		assert.Equal(t, "2021-05-17 00:00:00", evaluate(t, adp, ts, "2021-05-17 10:30:00", week).String())
	})

	t.Run("strftime compact date", func(t *testing.T) {
		day, err := series.Column(d, "day", dtype.Date)
		require.NoError(t, err)
		ops, err := temporal.DateTime(day)
		require.NoError(t, err)
		out, err := ops.Strftime("%Y%m%d")
		require.NoError(t, err)

		assert.Equal(t, "20210102", evaluate(t, adp, day, "2021-01-02", out).String())
	})

	t.Run("array contains on null is null", func(t *testing.T) {
		j, err := series.Column(d, "j", dtype.JSON)
		require.NoError(t, err)
		a, err := jsonpath.New(j)
		require.NoError(t, err)
		has, err := a.ArrayContains("x")
		require.NoError(t, err)

		assert.True(t, evaluate(t, adp, j, nil, has).Null)
	})

	t.Run("slice up to object match", func(t *testing.T) {
		j, err := series.Column(d, "j", dtype.JSON)
		require.NoError(t, err)
		a, err := jsonpath.New(j)
		require.NoError(t, err)
		head, err := a.Item(jsonpath.Slice{Stop: jsonpath.Match{"j": "k"}})
		require.NoError(t, err)

		doc := []any{
			map[string]any{"h": "i", "j": "k"},
			map[string]any{"l": []any{"m", "n", "o"}},
			map[string]any{"p": "q"},
		}
		assert.Equal(t, `[{"h": "i", "j": "k"}]`, evaluate(t, adp, j, doc, head).String())
	})

	t.Run("negative index beyond length is null", func(t *testing.T) {
		j, err := series.Column(d, "j", dtype.JSON)
		require.NoError(t, err)
		a, err := jsonpath.New(j)
		require.NoError(t, err)
		item, err := a.Item(jsonpath.Index(-4))
		require.NoError(t, err)

		assert.True(t, evaluate(t, adp, j, []any{1, 2, 3}, item).Null)
	})

	t.Run("components of a negative interval", func(t *testing.T) {
		td, err := series.Column(d, "td", dtype.Timedelta)
		require.NoError(t, err)
		ops, err := temporal.Timedelta(td)
		require.NoError(t, err)
		parts, err := ops.Components()
		require.NoError(t, err)

		// -1s justifies to -1 day 23:59:59.
		want := []string{"-1", "23", "59", "59", "0", "0"}
		for i, part := range parts {
			assert.Equal(t, want[i], evaluate(t, adp, td, -time.Second, part).String(), part.Name())
		}
	})

	t.Run("bool and int64 cast through integer", func(t *testing.T) {
		b, err := series.Column(d, "b", dtype.Bool)
		require.NoError(t, err)
		asInt, err := b.AsType(dtype.Int64)
		require.NoError(t, err)
		assert.Equal(t, "1", evaluate(t, adp, b, true, asInt).String())

		n, err := series.Column(d, "n", dtype.Int64)
		require.NoError(t, err)
		asBool, err := n.AsType(dtype.Bool)
		require.NoError(t, err)
		assert.Equal(t, "false", evaluate(t, adp, n, 0, asBool).String())
	})

	t.Run("integral float literal is double precision", func(t *testing.T) {
		f, err := series.Column(d, "f", dtype.Float64)
		require.NoError(t, err)
		typeOf := f.CopyOverride(series.WithExpression(expr.Construct("pg_typeof({})", f)))
		assert.Equal(t, "double precision", evaluate(t, adp, f, 3.0, typeOf).String())
	})
}
