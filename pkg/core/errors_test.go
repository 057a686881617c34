package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectKind_String(t *testing.T) {
	tests := []struct {
		kind DialectKind
		want string
	}{
		{KindPostgres, "postgres"},
		{KindBigQuery, "bigquery"},
		{KindUnknown, "unknown"},
		{DialectKind(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestParseDialectKind(t *testing.T) {
	tests := []struct {
		name   string
		want   DialectKind
		wantOK bool
	}{
		{"postgres", KindPostgres, true},
		{"PostgreSQL", KindPostgres, true},
		{" pg ", KindPostgres, true},
		{"bigquery", KindBigQuery, true},
		{"BQ", KindBigQuery, true},
		{"duckdb", KindUnknown, false},
		{"", KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDialectKind(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrors(t *testing.T) {
	t.Run("database not supported names the dialect", func(t *testing.T) {
		err := error(&DatabaseNotSupportedError{Dialect: "snowflake"})
		assert.Equal(t, "database not supported: snowflake", err.Error())

		var target *DatabaseNotSupportedError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "snowflake", target.Dialect)
	})

	t.Run("database not supported names a missing feature", func(t *testing.T) {
		err := &DatabaseNotSupportedError{Dialect: "bigquery", Feature: "dtype json_postgres"}
		assert.Equal(t, "database not supported: bigquery does not support dtype json_postgres", err.Error())
		assert.Equal(t, "database not supported: no dialect bound", (&DatabaseNotSupportedError{}).Error())
	})

	t.Run("conversion error unwraps to sentinel", func(t *testing.T) {
		err := error(&ConversionError{From: "bool", To: "timestamp"})
		assert.Equal(t, "cannot convert bool to timestamp", err.Error())
		assert.ErrorIs(t, err, ErrUnsupportedConversion)
	})

	t.Run("value error carries value and sentinel", func(t *testing.T) {
		err := error(&ValueError{Value: "decade", Reason: "decade format is not available.", Err: ErrInvalidDatePart})
		assert.Equal(t, `"decade": decade format is not available.`, err.Error())
		assert.ErrorIs(t, err, ErrInvalidDatePart)
		assert.False(t, errors.Is(err, ErrSliceStep))
	})

	t.Run("value error without reason falls back to sentinel text", func(t *testing.T) {
		err := &ValueError{Err: ErrSliceStep}
		assert.Equal(t, "slice step is not implemented", err.Error())
	})

	t.Run("parse error lists attempted formats", func(t *testing.T) {
		err := &ParseError{Value: "yesterday", Dtype: "timestamp", Formats: []string{"%Y-%m-%d", "%Y-%m-%d %H:%M"}}
		assert.Contains(t, err.Error(), `"yesterday"`)
		assert.Contains(t, err.Error(), "%Y-%m-%d, %Y-%m-%d %H:%M")
	})

	t.Run("key kind error", func(t *testing.T) {
		err := &KeyKindError{Got: "<nil>"}
		assert.Equal(t, "invalid key type: <nil>", err.Error())
	})
}
