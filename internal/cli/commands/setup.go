// Package commands implements the leapseries subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapseries/internal/cli/config"
	"github.com/leapstack-labs/leapseries/internal/cli/output"
	"github.com/leapstack-labs/leapseries/internal/plan"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the config and logger
// the root command stored in the context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// addPlanFlag registers the required -f/--file flag.
func addPlanFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Path to the plan file (required)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagFilename("file", "yaml", "yml")
}

// loadPlan loads the plan named by --file.
func loadPlan(cmd *cobra.Command) (*plan.Plan, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	return plan.Load(path)
}
