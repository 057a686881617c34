package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/internal/plan"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the SQL of every operation in a plan",
		Long: `Render each operation of a plan file into a SQL fragment for one
dialect, or for every dialect with --dialect all.

Output adapts to environment:
  - Terminal: A table per dialect
  - Piped/Scripted: Markdown tables (agent-friendly)

Use --output json for machine-readable results.`,
		Example: `  # Render for Postgres (the default dialect)
  leapseries render -f plan.yaml

  # Render for both dialects
  leapseries render -f plan.yaml --dialect all

  # Re-render whenever the plan changes
  leapseries render -f plan.yaml --dialect bigquery --watch`,
		Args: cobra.NoArgs,
		RunE: runRender,
	}

	addPlanFlag(cmd)
	cmd.Flags().BoolP("watch", "w", false, "Re-render when the plan file changes")

	return cmd
}

func runRender(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	dialects, err := cmdCtx.Cfg.Dialects()
	if err != nil {
		return err
	}

	render := func() error {
		p, err := loadPlan(cmd)
		if err != nil {
			return err
		}
		return renderPlan(cmdCtx.Renderer, p, dialects, cmdCtx.Logger)
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		return render()
	}

	path, _ := cmd.Flags().GetString("file")
	w, err := newFileWatcher(path, cmdCtx.Logger)
	if err != nil {
		return err
	}
	rerender := func() {
		if err := render(); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	}
	rerender()
	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", path))
	return w.run(cmd.Context(), rerender)
}

// renderPlan evaluates p for each dialect and prints the fragments.
func renderPlan(r *output.Renderer, p *plan.Plan, dialects []*dialect.Dialect, logger *slog.Logger) error {
	perDialect := make([][]plan.Result, 0, len(dialects))
	for _, d := range dialects {
		results, err := p.Evaluate(d, nil, plan.WithLogger(logger))
		if err != nil {
			return err
		}
		perDialect = append(perDialect, results)
	}

	if r.EffectiveMode() == output.ModeJSON {
		var all []plan.Result
		for _, results := range perDialect {
			all = append(all, results...)
		}
		return r.JSON(all)
	}

	for i, d := range dialects {
		r.Header(2, displayName(d.Name))
		renderResults(r, perDialect[i])
	}
	return nil
}

func renderResults(r *output.Renderer, results []plan.Result) {
	withFrom := false
	for _, res := range results {
		if res.From != "" {
			withFrom = true
			break
		}
	}

	headers := []string{"name", "op", "dtype", "sql"}
	if withFrom {
		headers = append(headers, "from")
	}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		row := []string{res.Name, res.Op, res.Dtype, res.SQL}
		if withFrom {
			row = append(row, res.From)
		}
		rows = append(rows, row)
	}
	r.Table(headers, rows)
}
