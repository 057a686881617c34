package dtype

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/expr"
)

// CanonicalJSON encodes v as compact JSON with object keys sorted. A
// []byte (or json.RawMessage) is taken to be JSON text; it is validated
// and re-encoded so that equal documents always produce equal text.
func CanonicalJSON(v any) ([]byte, error) {
	if raw, ok := rawBytes(v); ok {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, &core.ValueError{Value: string(raw), Reason: "invalid JSON text", Err: err}
		}
		if dec.More() {
			return nil, &core.ValueError{Value: string(raw), Reason: "trailing data after JSON value"}
		}
		v = doc
	}
	out, err := json.MarshalNoEscape(v)
	if err != nil {
		return nil, fmt.Errorf("encode json literal: %w", err)
	}
	return out, nil
}

func rawBytes(v any) ([]byte, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv.Bytes(), true
	}
	return nil, false
}

func isJSONValue(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	_, ok := rawBytes(v)
	return ok
}

func jsonLiteral(_ *dialect.Dialect, v any) (expr.Expression, error) {
	out, err := CanonicalJSON(v)
	if err != nil {
		return expr.Expression{}, err
	}
	return expr.StringValue(string(out)), nil
}

// convertToJSON casts text and json_postgres fragments to jsonb on
// Postgres. BigQuery stores JSON as text, so strings pass through.
func convertToJSON(d *dialect.Dialect, from string, e expr.Expression) (expr.Expression, error) {
	return dialect.Choose(d,
		func() (expr.Expression, error) {
			return castTo("jsonb", e), nil
		},
		func() (expr.Expression, error) {
			if from != String {
				return expr.Expression{}, &core.DatabaseNotSupportedError{Dialect: d.Name, Feature: "dtype " + from}
			}
			return e, nil
		},
	)
}
