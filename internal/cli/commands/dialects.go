package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered dialects and their quoting rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return listDialects(cmdCtx.Renderer)
		},
	}
}

// DialectInfo describes one registered dialect.
type DialectInfo struct {
	Name          string   `json:"name"`
	Display       string   `json:"display"`
	Aliases       []string `json:"aliases"`
	Quote         string   `json:"identifier_quote"`
	StringEscape  string   `json:"string_escape"`
	StringType    string   `json:"string_type"`
	DefaultSchema string   `json:"default_schema,omitempty"`
	Placeholder   string   `json:"placeholder"`
}

func dialectInfos() []DialectInfo {
	names := dialect.List()
	out := make([]DialectInfo, 0, len(names))
	for _, name := range names {
		d := dialect.MustGet(name)
		out = append(out, DialectInfo{
			Name:          d.Name,
			Display:       displayName(d.Name),
			Aliases:       d.Aliases(),
			Quote:         d.Identifiers.Quote + d.Identifiers.QuoteEnd,
			StringEscape:  escapeStyle(d.StringEscape),
			StringType:    d.StringType,
			DefaultSchema: d.DefaultSchema,
			Placeholder:   d.FormatPlaceholder(1),
		})
	}
	return out
}

func escapeStyle(s core.StringEscapeStyle) string {
	switch s {
	case core.EscapeDoubling:
		return "doubling ('')"
	case core.EscapeBackslash:
		return `backslash (\')`
	}
	return "unknown"
}

func listDialects(r *output.Renderer) error {
	infos := dialectInfos()
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, "Dialects")
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Display,
			info.Name,
			strings.Join(info.Aliases, ", "),
			info.Quote,
			info.StringEscape,
			info.StringType,
			info.Placeholder,
		})
	}
	r.Table([]string{"dialect", "name", "aliases", "quote", "string escape", "string type", "placeholder"}, rows)
	return nil
}
