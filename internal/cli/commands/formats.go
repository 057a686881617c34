package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/pkg/temporal"
)

// NewFormatsCommand creates the formats command.
func NewFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "Show how strftime codes translate per dialect",
		Long: `Show every strftime code strftime accepts and what it becomes on each
dialect. Postgres codes map to to_char patterns or computed segments,
BigQuery codes pass through to FORMAT_* functions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return listFormats(cmdCtx.Renderer)
		},
	}
}

func listFormats(r *output.Renderer) error {
	codes := temporal.FormatCodes()
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(codes)
	}

	r.Header(1, "strftime codes")
	rows := make([][]string, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, []string{c.Code, c.Description, c.Postgres, c.BigQuery})
	}
	r.Table([]string{"code", "meaning", displayName("postgres"), displayName("bigquery")}, rows)
	if r.EffectiveMode() == output.ModeText {
		r.Muted("- marks a code the dialect cannot render, {} stands for the formatted column.")
	}
	return nil
}
