package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapseries/internal/cli/config"
	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/internal/plan"
	"github.com/leapstack-labs/leapseries/internal/state"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

const defaultHistoryLimit = 20

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show verify runs stored with --record",
		Long: `Without arguments, list the most recent recorded verify runs. With a run
ID, or a unique prefix of one, show every operation of that run.

Runs are read from the state database (--state, default
.leapseries/state.db).`,
		Example: `  # List recent runs
  leapseries history

  # Show one run
  leapseries history 3f2a9c1e`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
	cmd.Flags().Int("limit", defaultHistoryLimit, "Maximum runs to list (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	path := cmdCtx.Cfg.StatePath

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if len(args) == 1 {
			return fmt.Errorf("%w: %s (no state database at %s)", state.ErrRunNotFound, args[0], path)
		}
		return printRuns(r, nil)
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(path); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		run, err := store.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		checks, err := store.GetChecks(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		return printRun(r, run, checks)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return printRuns(r, runs)
}

// newRun summarizes checks as a run of p on d.
func newRun(p *plan.Plan, d *dialect.Dialect, target string, checks []Check, started time.Time, elapsed time.Duration) *state.Run {
	run := &state.Run{
		PlanPath:  p.Path,
		Dialect:   d.Name,
		Target:    target,
		Status:    state.RunStatusPassed,
		Total:     len(checks),
		StartedAt: started,
		Duration:  elapsed,
	}
	for _, c := range checks {
		if !c.OK() {
			run.Failed++
		}
	}
	if run.Failed > 0 {
		run.Status = state.RunStatusFailed
	}
	return run
}

// recordRun stores run and its checks in the state database at path.
func recordRun(ctx context.Context, path string, run *state.Run, checks []Check, logger *slog.Logger) error {
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records := make([]state.Check, len(checks))
	for i, c := range checks {
		records[i] = state.Check{Name: c.Name, Dtype: c.Dtype, SQL: c.SQL, Query: c.Query, Values: c.Values, Error: c.Error}
	}
	if err := store.SaveRun(ctx, run, records); err != nil {
		return err
	}
	logger.Info("verify run recorded", slog.String("id", run.ID), slog.String("path", path))
	return nil
}

// targetLabel describes t without credentials.
func targetLabel(t *config.TargetConfig) string {
	if t == nil {
		return ""
	}
	if t.DSN != "" {
		u, err := url.Parse(t.DSN)
		if err != nil || u.Scheme == "" {
			return t.Type
		}
		u.User = nil
		u.RawQuery = ""
		return u.String()
	}
	host := t.Host
	if host == "" {
		host = "localhost"
	}
	if t.Port != 0 {
		host += ":" + strconv.Itoa(t.Port)
	}
	return t.Type + "://" + host + "/" + t.Database
}

func runResult(run *state.Run) string {
	if run.Failed == 0 {
		return fmt.Sprintf("%d ok", run.Total)
	}
	return fmt.Sprintf("%d of %d failed", run.Failed, run.Total)
}

func printRuns(r *output.Renderer, runs []*state.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	r.Header(1, "Verify history")
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ShortID(),
			run.StartedAt.Local().Format(time.DateTime),
			run.PlanPath,
			displayName(run.Dialect),
			run.Target,
			runResult(run),
			run.Duration.Round(time.Millisecond).String(),
		})
	}
	r.Table([]string{"run", "started", "plan", "dialect", "target", "result", "duration"}, rows)
	return nil
}

func printRun(r *output.Renderer, run *state.Run, checks []state.Check) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			*state.Run
			Checks []state.Check `json:"checks"`
		}{run, checks})
	}

	r.Header(1, "Run "+run.ShortID())
	r.Println(output.FormatKeyValue("plan", run.PlanPath))
	r.Println(output.FormatKeyValue("dialect", displayName(run.Dialect)))
	r.Println(output.FormatKeyValue("target", run.Target))
	r.Println(output.FormatKeyValue("started", run.StartedAt.Local().Format(time.DateTime)))
	r.Println(output.FormatKeyValue("result", runResult(run)))
	r.Println()

	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		rows = append(rows, checkRow(c.Name, c.Dtype, c.Values, c.Error))
	}
	r.Table([]string{"name", "dtype", "values", "status"}, rows)
	for _, c := range checks {
		if c.Error != "" {
			r.StatusLine(c.Name, "error", c.Error)
		}
	}
	return nil
}
