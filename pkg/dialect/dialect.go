// Package dialect provides the runtime view of a SQL dialect: quoting,
// normalization and the exhaustive dispatch helpers every fragment
// generator branches through.
//
// Concrete dialects are registered from pkg/dialects/*/ packages.
package dialect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapseries/pkg/core"
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Kind        core.DialectKind
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                 // Default schema name ("public" for Postgres)
	Placeholder   core.PlaceholderStyle  // How to format query parameters
	StringEscape  core.StringEscapeStyle // How to escape string literals
	StringType    string                 // Generic text column type

	aliases       []string
	reservedWords map[string]struct{}
	dataTypes     []string
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	reserved := make([]string, 0, len(d.reservedWords))
	for w := range d.reservedWords {
		reserved = append(reserved, w)
	}
	return &core.DialectConfig{
		Name:          d.Name,
		Kind:          d.Kind,
		Aliases:       append([]string(nil), d.aliases...),
		Identifiers:   d.Identifiers,
		StringEscape:  d.StringEscape,
		DefaultSchema: d.DefaultSchema,
		Placeholder:   d.Placeholder,
		StringType:    d.StringType,
		ReservedWords: reserved,
		DataTypes:     append([]string(nil), d.dataTypes...),
	}
}

// IsPostgres reports whether the dialect is the Postgres backend.
func (d *Dialect) IsPostgres() bool {
	return d != nil && d.Kind == core.KindPostgres
}

// IsBigQuery reports whether the dialect is the BigQuery backend.
func (d *Dialect) IsBigQuery() bool {
	return d != nil && d.Kind == core.KindBigQuery
}

// Aliases returns the alternate names the dialect is registered under.
func (d *Dialect) Aliases() []string {
	return d.aliases
}

// DataTypes returns the physical type names the dialect declares.
func (d *Dialect) DataTypes() []string {
	return d.dataTypes
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return strings.ToUpper(name)
	case core.NormLowercase, core.NormCaseInsensitive:
		return strings.ToLower(name)
	default: // NormCaseSensitive
		return name
	}
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	case core.PlaceholderNamed:
		return "@p" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[d.NormalizeName(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

var bareIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word
// or would not survive normalization unquoted.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) || !bareIdentifier.MatchString(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

var backslashEscapes = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// QuoteString renders s as a single-quoted string literal that is safe
// for the dialect.
func (d *Dialect) QuoteString(s string) string {
	switch d.StringEscape {
	case core.EscapeBackslash:
		return "'" + backslashEscapes.Replace(s) + "'"
	default: // EscapeDoubling
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

// Builder constructs a Dialect.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name and kind.
func NewDialect(name string, kind core.DialectKind) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Kind: kind,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			StringType:    "text",
			reservedWords: make(map[string]struct{}),
		},
	}
}

// New creates a dialect builder from a DialectConfig.
// This is the preferred constructor for pkg/dialects/* packages.
func New(cfg *core.DialectConfig) *Builder {
	b := NewDialect(cfg.Name, cfg.Kind)
	b.dialect.Identifiers = cfg.Identifiers
	b.dialect.DefaultSchema = cfg.DefaultSchema
	b.dialect.Placeholder = cfg.Placeholder
	b.dialect.StringEscape = cfg.StringEscape
	if cfg.StringType != "" {
		b.dialect.StringType = cfg.StringType
	}
	b.dialect.aliases = append(b.dialect.aliases, cfg.Aliases...)
	b.WithReservedWords(cfg.ReservedWords...)
	b.WithDataTypes(cfg.DataTypes...)
	return b
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// StringEscape sets how string literals are escaped.
func (b *Builder) StringEscape(style core.StringEscapeStyle) *Builder {
	b.dialect.StringEscape = style
	return b
}

// StringType sets the generic text column type.
func (b *Builder) StringType(name string) *Builder {
	b.dialect.StringType = name
	return b
}

// Aliases adds alternate registry names.
func (b *Builder) Aliases(names ...string) *Builder {
	b.dialect.aliases = append(b.dialect.aliases, names...)
	return b
}

// WithDataTypes declares physical type names.
func (b *Builder) WithDataTypes(types ...string) *Builder {
	b.dialect.dataTypes = append(b.dialect.dataTypes, types...)
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[b.dialect.NormalizeName(w)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
