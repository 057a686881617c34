package dialect_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dialects/bigquery"
	"github.com/leapstack-labs/leapseries/pkg/dialects/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteString(t *testing.T) {
	tests := []struct {
		name  string
		d     *dialect.Dialect
		input string
		want  string
	}{
		{"postgres plain", postgres.Postgres, "abc", "'abc'"},
		{"postgres quote doubled", postgres.Postgres, "it's", "'it''s'"},
		{"postgres backslash untouched", postgres.Postgres, `a\b`, `'a\b'`},
		{"bigquery plain", bigquery.BigQuery, "abc", "'abc'"},
		{"bigquery quote escaped", bigquery.BigQuery, "it's", `'it\'s'`},
		{"bigquery backslash escaped", bigquery.BigQuery, `a\b`, `'a\\b'`},
		{"bigquery newline escaped", bigquery.BigQuery, "a\nb", `'a\nb'`},
		{"empty", postgres.Postgres, "", "''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.QuoteString(tt.input))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"order"`, postgres.Postgres.QuoteIdentifier("order"))
	assert.Equal(t, `"a""b"`, postgres.Postgres.QuoteIdentifier(`a"b`))
	assert.Equal(t, "`order`", bigquery.BigQuery.QuoteIdentifier("order"))
	assert.Equal(t, "`a\\`b`", bigquery.BigQuery.QuoteIdentifier("a`b"))
}

func TestQuoteIdentifierIfNeeded(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"ts", "ts"},
		{"event_time", "event_time"},
		{"user", `"user"`},
		{"Mixed", `"Mixed"`},
		{"has space", `"has space"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postgres.Postgres.QuoteIdentifierIfNeeded(tt.name))
		})
	}
}

func TestFormatPlaceholder(t *testing.T) {
	assert.Equal(t, "$2", postgres.Postgres.FormatPlaceholder(2))
	assert.Equal(t, "@p2", bigquery.BigQuery.FormatPlaceholder(2))
	other := dialect.NewDialect("other", core.KindUnknown).Build()
	assert.Equal(t, "?", other.FormatPlaceholder(2))
}

func TestPredicates(t *testing.T) {
	assert.True(t, postgres.Postgres.IsPostgres())
	assert.False(t, postgres.Postgres.IsBigQuery())
	assert.True(t, bigquery.BigQuery.IsBigQuery())
	assert.False(t, bigquery.BigQuery.IsPostgres())

	var nilDialect *dialect.Dialect
	assert.False(t, nilDialect.IsPostgres())
	assert.False(t, nilDialect.IsBigQuery())
}

func TestRegistry(t *testing.T) {
	t.Run("names and aliases resolve", func(t *testing.T) {
		for _, name := range []string{"postgres", "PostgreSQL", "pg"} {
			d, ok := dialect.Get(name)
			require.True(t, ok, name)
			assert.Same(t, postgres.Postgres, d)
		}
		d, ok := dialect.Get("bq")
		require.True(t, ok)
		assert.Same(t, bigquery.BigQuery, d)
	})

	t.Run("list is sorted", func(t *testing.T) {
		names := dialect.List()
		assert.Contains(t, names, "bigquery")
		assert.Contains(t, names, "postgres")
		assert.IsNonDecreasing(t, names)
	})

	t.Run("lookup errors", func(t *testing.T) {
		_, err := dialect.Lookup("")
		assert.ErrorIs(t, err, dialect.ErrDialectRequired)

		_, err = dialect.Lookup("oracle")
		var nse *core.DatabaseNotSupportedError
		require.ErrorAs(t, err, &nse)
		assert.Equal(t, "oracle", nse.Dialect)
	})

	t.Run("must get panics on unknown", func(t *testing.T) {
		assert.Panics(t, func() { dialect.MustGet("oracle") })
	})
}

func TestChoose(t *testing.T) {
	pg := func() (string, error) { return "pg", nil }
	bq := func() (string, error) { return "bq", nil }

	got, err := dialect.Choose(postgres.Postgres, pg, bq)
	require.NoError(t, err)
	assert.Equal(t, "pg", got)

	got, err = dialect.Choose(bigquery.BigQuery, pg, bq)
	require.NoError(t, err)
	assert.Equal(t, "bq", got)

	t.Run("unknown kind is rejected with its name", func(t *testing.T) {
		other := dialect.NewDialect("snowflake", core.KindUnknown).Build()
		_, err := dialect.Choose(other, pg, bq)
		var nse *core.DatabaseNotSupportedError
		require.ErrorAs(t, err, &nse)
		assert.Equal(t, "snowflake", nse.Dialect)
	})

	t.Run("nil dialect is rejected", func(t *testing.T) {
		_, err := dialect.Choose(nil, pg, bq)
		var nse *core.DatabaseNotSupportedError
		assert.True(t, errors.As(err, &nse))
	})

	t.Run("branch errors propagate", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := dialect.Choose(postgres.Postgres, func() (string, error) { return "", boom }, bq)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("pick", func(t *testing.T) {
		v, err := dialect.Pick(bigquery.BigQuery, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
		assert.NoError(t, dialect.Supported(postgres.Postgres))
		assert.Error(t, dialect.Supported(dialect.NewDialect("x", core.KindUnknown).Build()))
	})
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := bigquery.BigQuery.Config()
	assert.Equal(t, "bigquery", cfg.Name)
	assert.Equal(t, core.KindBigQuery, cfg.Kind)
	assert.Equal(t, "STRING", cfg.StringType)
	assert.Contains(t, cfg.ReservedWords, "unnest")

	rebuilt := dialect.New(cfg).Build()
	assert.Equal(t, bigquery.BigQuery.QuoteString("a'b"), rebuilt.QuoteString("a'b"))
	assert.True(t, rebuilt.IsReservedWord("UNNEST"))
}
