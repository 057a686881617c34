package jsonpath_test

import (
	"testing"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dialects/bigquery"
	"github.com/leapstack-labs/leapseries/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/jsonpath"
	"github.com/leapstack-labs/leapseries/pkg/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessor(t *testing.T, d *dialect.Dialect, opts ...jsonpath.Option) *jsonpath.Accessor {
	t.Helper()
	col, err := series.Column(d, "j", dtype.JSON)
	require.NoError(t, err)
	a, err := jsonpath.New(col, opts...)
	require.NoError(t, err)
	return a
}

const (
	pgSliceHead = "coalesce((select jsonb_agg(x.value order by x.ordinality) from jsonb_array_elements(j) with ordinality x where x.ordinality - 1 "
	pgSliceTail = "), '[]'::jsonb)"
	bqSliceHead = "'[' || ARRAY_TO_STRING(ARRAY(select val from unnest(JSON_QUERY_ARRAY(j, '$')) val with offset as pos where pos >= "
	bqSliceTail = " order by pos), ', ') || ']'"
)

func TestItem(t *testing.T) {
	tests := []struct {
		name     string
		key      jsonpath.Key
		postgres string
		bigquery string
	}{
		{"index", jsonpath.Index(2), "j->2", "JSON_QUERY(j, '$[2]')"},
		{"negative index", jsonpath.Index(-1), "j->-1", "ARRAY_REVERSE(JSON_QUERY_ARRAY(j))[SAFE_ORDINAL(1)]"},
		{"field", jsonpath.Field("a b"), "j->'a b'", `JSON_QUERY(j, '$."a b"')`},
		{
			"full slice", jsonpath.Slice{},
			pgSliceHead + "is not null" + pgSliceTail,
			bqSliceHead + "0 and pos < 9223372036854775807" + bqSliceTail,
		},
		{
			"offsets", jsonpath.Slice{Start: jsonpath.Offset(1), Stop: jsonpath.Offset(3)},
			pgSliceHead + "between 1 and 2" + pgSliceTail,
			bqSliceHead + "1 and pos < 3" + bqSliceTail,
		},
		{
			"negative start", jsonpath.Slice{Start: jsonpath.Offset(-2)},
			pgSliceHead + ">= (jsonb_array_length(j) - 2)" + pgSliceTail,
			bqSliceHead + "(ARRAY_LENGTH(JSON_QUERY_ARRAY(j)) - 2) and pos < 9223372036854775807" + bqSliceTail,
		},
		{
			"negative stop", jsonpath.Slice{Stop: jsonpath.Offset(-1)},
			pgSliceHead + "<= (jsonb_array_length(j) - 2)" + pgSliceTail,
			bqSliceHead + "0 and pos < (ARRAY_LENGTH(JSON_QUERY_ARRAY(j)) - 1)" + bqSliceTail,
		},
		{
			"stop at match", jsonpath.Slice{Stop: jsonpath.Match{"j": "k"}},
			pgSliceHead + `<= (select max(case when cast('{"j":"k"}' as jsonb) <@ value then ordinality end) - 1 from jsonb_array_elements(j) with ordinality)` + pgSliceTail,
			bqSliceHead + `0 and pos < (select 1 + max(case when REGEXP_REPLACE(JSON_QUERY(element, '$."j"'), r'(^"|"$)', '') = 'k' then pos end) from unnest(JSON_QUERY_ARRAY(j, '$')) element with offset as pos)` + bqSliceTail,
		},
		{
			"start at match", jsonpath.Slice{Start: jsonpath.Match{"l": []any{"m", "n", "o"}}},
			pgSliceHead + `>= (select min(case when cast('{"l":["m","n","o"]}' as jsonb) <@ value then ordinality end) - 1 from jsonb_array_elements(j) with ordinality)` + pgSliceTail,
			bqSliceHead + `(select min(case when JSON_QUERY(element, '$."l"') = '["m","n","o"]' then pos end) from unnest(JSON_QUERY_ARRAY(j, '$')) element with offset as pos) and pos < 9223372036854775807` + bqSliceTail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg, err := accessor(t, postgres.Postgres).Item(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.postgres, pg.SQL())
			assert.Equal(t, dtype.JSON, pg.Dtype())

			bq, err := accessor(t, bigquery.BigQuery).Item(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.bigquery, bq.SQL())
		})
	}
}

func TestMatchConditionIsSortedConjunction(t *testing.T) {
	got, err := accessor(t, bigquery.BigQuery).Item(jsonpath.Slice{Start: jsonpath.Match{"b": 1, "a": "x"}})
	require.NoError(t, err)
	assert.Contains(t, got.SQL(),
		`REGEXP_REPLACE(JSON_QUERY(element, '$."a"'), r'(^"|"$)', '') = 'x' AND JSON_QUERY(element, '$."b"') = '1'`)
}

func TestItem_Errors(t *testing.T) {
	a := accessor(t, postgres.Postgres)

	_, err := a.Item(jsonpath.Slice{Start: jsonpath.Offset(0), Step: 2})
	assert.ErrorIs(t, err, core.ErrSliceStep)

	_, err = a.Item(jsonpath.Field(`say "hi"`))
	assert.ErrorIs(t, err, core.ErrQuotedKey)

	_, err = a.Item(jsonpath.Slice{Stop: jsonpath.Match{`a"`: 1}})
	assert.ErrorIs(t, err, core.ErrQuotedKey)

	_, err = a.Item(nil)
	var kk *core.KeyKindError
	require.ErrorAs(t, err, &kk)
	assert.Equal(t, "<nil>", kk.Got)
}

func TestGetValue(t *testing.T) {
	pg, err := accessor(t, postgres.Postgres).GetValue("name", true)
	require.NoError(t, err)
	assert.Equal(t, "j->>'name'", pg.SQL())
	assert.Equal(t, dtype.String, pg.Dtype())

	bq, err := accessor(t, bigquery.BigQuery).GetValue("name", true)
	require.NoError(t, err)
	assert.Equal(t, `REGEXP_REPLACE(JSON_QUERY(j, '$."name"'), r'(^"|"$)', '')`, bq.SQL())

	bqKey, err := accessor(t, bigquery.BigQuery).GetValue("it's", false)
	require.NoError(t, err)
	assert.Equal(t, `JSON_QUERY(j, '$."it\'s"')`, bqKey.SQL(), "keys are escaped string literals")
}

func TestArrayLengthAndContains(t *testing.T) {
	pgLen, err := accessor(t, postgres.Postgres).ArrayLength()
	require.NoError(t, err)
	assert.Equal(t, "jsonb_array_length(j)", pgLen.SQL())
	assert.Equal(t, dtype.Int64, pgLen.Dtype())

	bqLen, err := accessor(t, bigquery.BigQuery).ArrayLength()
	require.NoError(t, err)
	assert.Equal(t, "ARRAY_LENGTH(JSON_QUERY_ARRAY(j))", bqLen.SQL())

	pgHas, err := accessor(t, postgres.Postgres).ArrayContains("x")
	require.NoError(t, err)
	assert.Equal(t, `j @> cast('["x"]' as jsonb)`, pgHas.SQL())
	assert.Equal(t, dtype.Bool, pgHas.Dtype())

	bqHas, err := accessor(t, bigquery.BigQuery).ArrayContains("x")
	require.NoError(t, err)
	assert.Equal(t, `IF(j IS NULL, NULL, (SELECT '"x"' IN UNNEST(JSON_QUERY_ARRAY(j))))`, bqHas.SQL())

	bqNull, err := accessor(t, bigquery.BigQuery).ArrayContains(nil)
	require.NoError(t, err)
	assert.Contains(t, bqNull.SQL(), "(SELECT 'null' IN")

	_, err = accessor(t, postgres.Postgres).ArrayContains([]any{1})
	var kk *core.KeyKindError
	assert.ErrorAs(t, err, &kk)
}

func TestNew(t *testing.T) {
	text, err := series.Column(postgres.Postgres, "s", dtype.String)
	require.NoError(t, err)
	_, err = jsonpath.New(text)
	assert.ErrorIs(t, err, core.ErrInvalidDtype)

	pgjson, err := series.Column(postgres.Postgres, "j", dtype.JSONPostgres)
	require.NoError(t, err)
	a, err := jsonpath.New(pgjson)
	require.NoError(t, err)
	assert.Equal(t, dtype.JSON, a.Column().Dtype())

	item, err := a.Item(jsonpath.Index(0))
	require.NoError(t, err)
	assert.Equal(t, "cast(j as jsonb)->0", item.SQL())
}

func TestFlattenArray(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		elements, offsets, err := accessor(t, postgres.Postgres).FlattenArray()
		require.NoError(t, err)
		require.NotNil(t, elements.Node())
		assert.Same(t, elements.Node(), offsets.Node())

		alias := elements.Node().Name
		assert.Regexp(t, `^flat_[0-9a-f]{12}$`, alias)
		assert.Equal(t, "cross join lateral jsonb_array_elements(j) with ordinality as "+alias+"(value, ordinality)",
			elements.Node().From.Render(postgres.Postgres))
		assert.Equal(t, alias+".value", elements.SQL())
		assert.Equal(t, dtype.JSON, elements.Dtype())
		assert.Equal(t, alias+".ordinality - 1", offsets.SQL())
		assert.Equal(t, dtype.Int64, offsets.Dtype())
		assert.Equal(t, "j_offset", offsets.Name())
	})

	t.Run("bigquery", func(t *testing.T) {
		elements, offsets, err := accessor(t, bigquery.BigQuery).FlattenArray()
		require.NoError(t, err)
		alias := elements.Node().Name
		assert.Equal(t, "cross join unnest(JSON_QUERY_ARRAY(j)) as "+alias+"_element with offset as "+alias+"_offset",
			elements.Node().From.Render(bigquery.BigQuery))
		assert.Equal(t, alias+"_offset", offsets.SQL())
	})

	t.Run("aliases are unique", func(t *testing.T) {
		a := accessor(t, postgres.Postgres)
		first, _, err := a.FlattenArray()
		require.NoError(t, err)
		second, _, err := a.FlattenArray()
		require.NoError(t, err)
		assert.NotEqual(t, first.Node().Name, second.Node().Name)
	})

	t.Run("custom flattener", func(t *testing.T) {
		called := false
		f := jsonpath.FlattenerFunc(func(col *series.Series) (*series.Series, *series.Series, error) {
			called = true
			return col, col, nil
		})
		_, _, err := accessor(t, postgres.Postgres, jsonpath.WithFlattener(f)).FlattenArray()
		require.NoError(t, err)
		assert.True(t, called)
	})
}
