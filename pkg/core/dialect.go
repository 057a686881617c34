package core

import "strings"

// DialectKind identifies one of the supported SQL backends.
// The set is closed: code branching on a kind must handle every value
// and report anything else as a DatabaseNotSupportedError.
type DialectKind int

const (
	// KindUnknown is the zero value and never valid for rendering.
	KindUnknown DialectKind = iota
	// KindPostgres has native date, interval and jsonb types.
	KindPostgres
	// KindBigQuery has INTERVAL but no JSON column type and no interval epoch extraction.
	KindBigQuery
)

// Kinds lists every supported dialect kind in declaration order.
func Kinds() []DialectKind {
	return []DialectKind{KindPostgres, KindBigQuery}
}

// String returns the canonical dialect name for the kind.
func (k DialectKind) String() string {
	switch k {
	case KindPostgres:
		return "postgres"
	case KindBigQuery:
		return "bigquery"
	default:
		return "unknown"
	}
}

// ParseDialectKind resolves a dialect name or common alias to a kind.
func ParseDialectKind(name string) (DialectKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return KindPostgres, true
	case "bigquery", "bq":
		return KindBigQuery, true
	default:
		return KindUnknown, false
	}
}

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data with no behaviour.
//
// The runtime behaviour (quoting, dispatch) lives in pkg/dialect.Dialect,
// which is built from this config.
type DialectConfig struct {
	// Name is the dialect identifier ("postgres", "bigquery")
	Name string

	// Kind is the closed backend tag used for exhaustive dispatch
	Kind DialectKind

	// Aliases are alternate names accepted by the registry
	Aliases []string

	// Identifiers defines quoting and normalization rules
	Identifiers IdentifierConfig

	// StringEscape defines how single-quoted string literals are escaped
	StringEscape StringEscapeStyle

	// DefaultSchema is the default schema name ("public" for Postgres)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// StringType is the generic text column type, used by logical types
	// that have no native physical representation
	StringType string

	// Keywords that need quoting when used as identifiers
	ReservedWords []string
	DataTypes     []string
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase.
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive
	// NormCaseInsensitive normalizes to lowercase for comparison (BigQuery).
	NormCaseInsensitive
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
	// PlaceholderNamed uses @p1, @p2, etc. for parameters (BigQuery).
	PlaceholderNamed
)

// StringEscapeStyle defines how quotes inside string literals are escaped.
type StringEscapeStyle int

const (
	// EscapeDoubling doubles embedded single quotes: 'it''s' (standard SQL, Postgres).
	EscapeDoubling StringEscapeStyle = iota
	// EscapeBackslash escapes quotes and control characters with a backslash: 'it\'s' (BigQuery).
	EscapeBackslash
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `
	QuoteEnd      string                // End quote character (usually same as Quote)
	Escape        string                // Escape sequence: "", \`
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}
