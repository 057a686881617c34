package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapseries/internal/cli/config"
	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/internal/plan"
	"github.com/leapstack-labs/leapseries/pkg/adapter"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a plan's fragments against a live database",
		Long: `Render every operation for the target's dialect, evaluate it over the
plan's sample values and print what the database returns.

The target is read from the target section of leapseries.yaml, from
LEAPSERIES_TARGET__* environment variables or from --dsn. Queries run
concurrently, bounded by verify.concurrency and verify.timeout. With
--record the run is stored in the state database for the history
command.`,
		Example: `  # Verify against the configured target
  leapseries verify -f plan.yaml

  # Verify against an explicit database
  leapseries verify -f plan.yaml --dsn postgres://localhost:5432/postgres?sslmode=disable

  # Emit JSON for scripts
  leapseries verify -f plan.yaml -o json

  # Keep the results for later comparison
  leapseries verify -f plan.yaml --record`,
		Args: cobra.NoArgs,
		RunE: runVerify,
	}

	addPlanFlag(cmd)
	cmd.Flags().Int("concurrency", config.DefaultConcurrency, "Maximum queries in flight")
	cmd.Flags().Duration("timeout", config.DefaultTimeout, "Deadline for the whole verification")
	cmd.Flags().String("dsn", "", "Connection string, overriding the target fields")
	cmd.Flags().Bool("record", false, "Store the run in the state database")

	return cmd
}

// Check is the outcome of one operation.
type Check struct {
	Name    string   `json:"name"`
	Dialect string   `json:"dialect"`
	Dtype   string   `json:"dtype"`
	SQL     string   `json:"sql"`
	Query   string   `json:"query"`
	Values  []string `json:"values,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// OK reports whether the query succeeded.
func (c Check) OK() bool {
	return c.Error == ""
}

// columnQuerier is the part of an adapter verify needs.
type columnQuerier interface {
	QueryColumn(ctx context.Context, sql string) ([]adapter.Value, error)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	p, err := loadPlan(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateTarget(cfg.Target); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}

	adp, err := adapter.NewAdapter(cfg.Target.AdapterConfig(), cmdCtx.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Verify.Timeout)
	defer cancel()

	if err := adp.Connect(ctx, cfg.Target.AdapterConfig()); err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()

	start := time.Now()
	checks, err := verifyPlan(ctx, adp, adp.Dialect(), p, cfg.Verify.Concurrency, cmdCtx.Logger)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if cfg.Verify.Record {
		run := newRun(p, adp.Dialect(), targetLabel(cfg.Target), checks, start, elapsed)
		if err := recordRun(cmd.Context(), cfg.StatePath, run, checks, cmdCtx.Logger); err != nil {
			cmdCtx.Renderer.Warning(fmt.Sprintf("run not recorded: %v", err))
		}
	}
	return printChecks(cmdCtx.Renderer, p, checks, elapsed)
}

// verifyPlan evaluates every result of p over its sample source, at most
// concurrency queries at a time. Query failures are recorded per check.
func verifyPlan(ctx context.Context, q columnQuerier, d *dialect.Dialect, p *plan.Plan, concurrency int, logger *slog.Logger) ([]Check, error) {
	results, err := p.Evaluate(d, nil, plan.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	source, err := p.Source(d, nil)
	if err != nil {
		return nil, err
	}

	checks := make([]Check, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, res := range results {
		query := plan.CheckQuery(d, source, res).Render(d)
		checks[i] = Check{Name: res.Name, Dialect: res.Dialect, Dtype: res.Dtype, SQL: res.SQL, Query: query}
		g.Go(func() error {
			values, err := q.QueryColumn(gctx, query)
			if err != nil {
				logger.Debug("operation failed", slog.String("name", res.Name), slog.Any("error", err))
				checks[i].Error = err.Error()
				return nil
			}
			checks[i].Values = make([]string, len(values))
			for j, v := range values {
				checks[i].Values[j] = v.String()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return checks, nil
}

func printChecks(r *output.Renderer, p *plan.Plan, checks []Check, elapsed time.Duration) error {
	failed := 0
	for _, c := range checks {
		if !c.OK() {
			failed++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(checks); err != nil {
			return err
		}
	} else {
		title := "Verify"
		if p.Path != "" {
			title += " " + p.Path
		}
		r.Header(1, title)

		rows := make([][]string, 0, len(checks))
		for _, c := range checks {
			rows = append(rows, checkRow(c.Name, c.Dtype, c.Values, c.Error))
		}
		r.Table([]string{"name", "dtype", "values", "status"}, rows)

		for _, c := range checks {
			if !c.OK() {
				r.StatusLine(c.Name, "error", c.Error)
			}
		}
		if failed == 0 {
			r.Success(fmt.Sprintf("%d operations verified in %s", len(checks), elapsed.Round(time.Millisecond)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(checks))
	}
	return nil
}

// checkRow is the table row of one operation outcome.
func checkRow(name, dtype string, values []string, errMsg string) []string {
	status := "ok"
	if errMsg != "" {
		status = "failed"
	}
	return []string{name, dtype, strings.Join(values, ", "), status}
}
