// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import "github.com/leapstack-labs/leapseries/pkg/core"

// Config is the PostgreSQL dialect configuration.
// This is pure data, shared by the adapter and the fragment generators.
var Config = &core.DialectConfig{
	Name:          "postgres",
	Kind:          core.KindPostgres,
	Aliases:       []string{"postgresql", "pg"},
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	StringEscape:  core.EscapeDoubling, // standard_conforming_strings is on by default
	StringType:    "text",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase, // Postgres normalizes unquoted to lowercase
	},
	ReservedWords: reservedWords,
	DataTypes: []string{
		"bigint", "boolean", "date", "double precision", "interval", "json",
		"jsonb", "numeric", "text", "time without time zone",
		"timestamp without time zone",
	},
}

// reservedWords contains common PostgreSQL reserved words.
// This is a manually maintained list of frequently problematic identifiers.
// For a complete list, use pg_get_keywords() at runtime.
var reservedWords = []string{
	"user", "order", "group", "table", "select", "from", "where", "index",
	"all", "and", "any", "array", "as", "asc", "asymmetric", "authorization",
	"between", "binary", "both", "case", "cast", "check", "collate", "column",
	"constraint", "create", "cross", "current_catalog", "current_date",
	"current_role", "current_schema", "current_time", "current_timestamp",
	"current_user", "default", "deferrable", "desc", "distinct", "do", "else",
	"end", "except", "false", "fetch", "for", "foreign", "freeze", "full",
	"grant", "having", "ilike", "in", "initially", "inner", "intersect",
	"into", "is", "isnull", "join", "lateral", "leading", "left", "like",
	"limit", "localtime", "localtimestamp", "natural", "not", "notnull",
	"null", "offset", "on", "only", "or", "outer", "overlaps", "placing",
	"primary", "references", "returning", "right", "session_user", "similar",
	"some", "symmetric", "then", "to", "trailing", "true", "union", "unique",
	"using", "variadic", "verbose", "when", "window", "with",
}
