package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
	"github.com/leapstack-labs/leapseries/pkg/dtype"
)

// NewTypesCommand creates the types command.
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List dtypes with their aliases and physical types",
		Long: `List every registered dtype with its aliases and the column type it
maps to on each dialect. Emulated types ride on the dialect's string type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return listTypes(cmdCtx.Renderer, dtype.Builtin())
		},
	}
}

// TypeInfo describes one dtype.
type TypeInfo struct {
	Name     string            `json:"name"`
	Aliases  []string          `json:"aliases"`
	Physical map[string]string `json:"physical"`
}

// physicalLabel is the column type of name on d, "-" when unsupported.
func physicalLabel(reg *dtype.Registry, d *dialect.Dialect, name string) string {
	physical, native, err := reg.PhysicalType(d, name)
	switch {
	case err != nil:
		return "-"
	case !native:
		return physical + " (emulated)"
	}
	return physical
}

func typeInfos(reg *dtype.Registry, dialects []*dialect.Dialect) []TypeInfo {
	names := reg.Names()
	out := make([]TypeInfo, 0, len(names))
	for _, name := range names {
		info := TypeInfo{Name: name, Aliases: reg.Aliases(name), Physical: make(map[string]string, len(dialects))}
		for _, d := range dialects {
			info.Physical[d.Name] = physicalLabel(reg, d, name)
		}
		out = append(out, info)
	}
	return out
}

func listTypes(r *output.Renderer, reg *dtype.Registry) error {
	var dialects []*dialect.Dialect
	for _, name := range dialect.List() {
		dialects = append(dialects, dialect.MustGet(name))
	}
	infos := typeInfos(reg, dialects)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, "Types")
	headers := []string{"dtype", "aliases"}
	for _, d := range dialects {
		headers = append(headers, displayName(d.Name))
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		row := []string{info.Name, strings.Join(info.Aliases, ", ")}
		for _, d := range dialects {
			row = append(row, info.Physical[d.Name])
		}
		rows = append(rows, row)
	}
	r.Table(headers, rows)
	return nil
}
