// Package bigquery provides the BigQuery (GoogleSQL) dialect definition.
// This package is pure Go with no client library dependencies.
package bigquery

import "github.com/leapstack-labs/leapseries/pkg/core"

// Config is the BigQuery dialect configuration.
var Config = &core.DialectConfig{
	Name:         "bigquery",
	Kind:         core.KindBigQuery,
	Aliases:      []string{"bq"},
	Placeholder:  core.PlaceholderNamed,
	StringEscape: core.EscapeBackslash, // '' is two adjacent literals, not an escaped quote
	StringType:   "STRING",
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "\\`",
		Normalization: core.NormCaseInsensitive,
	},
	ReservedWords: reservedWords,
	DataTypes: []string{
		"BOOL", "DATE", "FLOAT64", "INT64", "INTERVAL", "JSON", "NUMERIC",
		"STRING", "TIME", "TIMESTAMP",
	},
}

// reservedWords are the GoogleSQL reserved keywords.
var reservedWords = []string{
	"all", "and", "any", "array", "as", "asc", "assert_rows_modified", "at",
	"between", "by", "case", "cast", "collate", "contains", "create", "cross",
	"cube", "current", "default", "define", "desc", "distinct", "else", "end",
	"enum", "escape", "except", "exclude", "exists", "extract", "false",
	"fetch", "following", "for", "from", "full", "group", "grouping", "groups",
	"hash", "having", "if", "ignore", "in", "inner", "intersect", "interval",
	"into", "is", "join", "lateral", "left", "like", "limit", "lookup",
	"merge", "natural", "new", "no", "not", "null", "nulls", "of", "on", "or",
	"order", "outer", "over", "partition", "preceding", "proto", "qualify",
	"range", "recursive", "respect", "right", "rollup", "rows", "select",
	"set", "some", "struct", "tablesample", "then", "to", "treat", "true",
	"unbounded", "union", "unnest", "using", "when", "where", "window", "with",
	"within",
}
