package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapseries/internal/cli/config"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
	"github.com/leapstack-labs/leapseries/pkg/temporal"

	_ "github.com/leapstack-labs/leapseries/pkg/dialects/bigquery"
	_ "github.com/leapstack-labs/leapseries/pkg/dialects/postgres"
)

// generateReferenceDocs writes the dtype, strftime and configuration pages.
func generateReferenceDocs(outDir string) error {
	log.Printf("Generating reference docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pages := []struct {
		name string
		gen  func() *MarkdownWriter
	}{
		{"types.md", typesPage},
		{"formats.md", formatsPage},
		{"configuration.md", configurationPage},
	}
	for _, page := range pages {
		if err := os.WriteFile(filepath.Join(outDir, page.name), page.gen().Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", page.name, err)
		}
		log.Printf("  Generated %s", page.name)
	}
	return nil
}

func dialects() []*dialect.Dialect {
	var out []*dialect.Dialect
	for _, name := range dialect.List() {
		out = append(out, dialect.MustGet(name))
	}
	return out
}

func typesPage() *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("Types", "Logical column types and their physical representation")
	w.GeneratedMarker()

	w.Header(1, "Types")
	w.Paragraph("Every column carries a logical dtype. Names and aliases are case insensitive. " +
		"A type without a native column type on a dialect is emulated on the dialect's string type.")

	reg := dtype.Builtin()
	ds := dialects()
	headers := []string{"dtype", "aliases"}
	for _, d := range ds {
		headers = append(headers, d.Name)
	}
	var rows [][]string
	for _, name := range reg.Names() {
		var aliases []string
		for _, a := range reg.Aliases(name) {
			aliases = append(aliases, InlineCode(a))
		}
		row := []string{InlineCode(name), strings.Join(aliases, ", ")}
		for _, d := range ds {
			physical, native, err := reg.PhysicalType(d, name)
			switch {
			case err != nil:
				row = append(row, "not supported")
			case !native:
				row = append(row, InlineCode(physical)+" (emulated)")
			default:
				row = append(row, InlineCode(physical))
			}
		}
		rows = append(rows, row)
	}
	w.Table(headers, rows)
	return w
}

func formatsPage() *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("strftime codes", "How strftime codes translate per dialect")
	w.GeneratedMarker()

	w.Header(1, "strftime codes")
	w.Paragraph("Postgres codes become to_char patterns or computed text segments, where " +
		InlineCode("{}") + " stands for the formatted column. BigQuery codes pass through to " +
		"FORMAT_DATE, FORMAT_TIMESTAMP and FORMAT_TIME. A code a dialect cannot render fails the operation.")

	var rows [][]string
	for _, c := range temporal.FormatCodes() {
		rows = append(rows, []string{InlineCode(c.Code), c.Description, codeCell(c.Postgres), codeCell(c.BigQuery)})
	}
	w.Table([]string{"Code", "Meaning", "Postgres", "BigQuery"}, rows)
	return w
}

func codeCell(s string) string {
	if s == "" || s == "-" {
		return "not supported"
	}
	return InlineCode(s)
}

// configField describes one leapseries.yaml key.
type configField struct {
	Key         string
	Type        string
	Default     string
	Description string
}

func configSchema() []configField {
	return []configField{
		{"dialect", "string", config.DefaultDialect, "Dialect to render for, or " + InlineCode(config.AllDialects)},
		{"output", "string", config.DefaultOutput, "Output format: auto, text, markdown, json"},
		{"log_level", "string", config.DefaultLogLevel, "Log level: debug, info, warn, error"},
		{"log_format", "string", config.DefaultLogFormat, "Log format: text, json"},
		{"verbose", "bool", "false", "Verbose output, forces the debug log level"},
		{"state", "string", config.DefaultStatePath, "SQLite database holding recorded verify runs"},
		{"target.type", "string", config.DefaultTargetType, "Adapter verify connects with"},
		{"target.host", "string", "", "Database host"},
		{"target.port", "int", "", "Database port"},
		{"target.database", "string", "", "Database name"},
		{"target.user", "string", "", "Database username"},
		{"target.password", "string", "", "Database password, " + InlineCode("${VAR}") + " is expanded"},
		{"target.sslmode", "string", "", "TLS mode passed to the driver"},
		{"target.dsn", "string", "", "Connection string, overriding the fields above"},
		{"target.options", "map[string]string", "", "Additional driver options"},
		{"verify.concurrency", "int", fmt.Sprint(config.DefaultConcurrency), "Maximum queries in flight"},
		{"verify.timeout", "duration", config.DefaultTimeout.String(), "Deadline for a whole verification"},
		{"verify.record", "bool", "false", "Store every run in the state database"},
	}
}

func configurationPage() *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "leapseries configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("Configuration is read from " + InlineCode("leapseries.yaml") + ", searched upward from the " +
		"working directory, then overridden by " + InlineCode(config.EnvPrefix) + " environment variables " +
		"and explicitly set flags.")

	var rows [][]string
	for _, f := range configSchema() {
		def := ""
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Key), f.Type, def, f.Description})
	}
	w.Table([]string{"Key", "Type", "Default", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `dialect: all
output: markdown
target:
  type: postgres
  host: localhost
  port: 5432
  database: analytics
  user: ${PGUSER}
  password: ${PGPASSWORD}
verify:
  concurrency: 8
  timeout: 1m
  record: true`)
	return w
}
