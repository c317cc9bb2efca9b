// Package commands implements the CLI commands for sift.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/sift/internal/app"
	"go.trai.ch/sift/internal/build"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/engine/orchestrator"
)

// CLI represents the command line interface for sift.
type CLI struct {
	app     Application
	logs    LogFormatter
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Audit(ctx context.Context, opts app.AuditOptions) (*orchestrator.Result, error)
	Coverage(ctx context.Context, opts app.CoverageOptions) (*domain.CoverageSummary, error)
	Status(ctx context.Context) (*app.StatusReport, error)
	Clean(ctx context.Context, opts app.CleanOptions) error
	Watch(ctx context.Context, opts app.WatchOptions) error
}

// LogFormatter switches the logger between the pretty and the JSON format.
type LogFormatter interface {
	SetJSON(enable bool)
}

// Option configures the CLI.
type Option func(*CLI)

// WithLogFormatter lets --json-logs switch the logger to JSON.
func WithLogFormatter(l LogFormatter) Option {
	return func(c *CLI) { c.logs = l }
}

// New creates a new CLI instance with the given app.
func New(a Application, opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "sift",
		Short:         "Tiered code audits with incremental coverage caching",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}
	for _, opt := range opts {
		opt(c)
	}

	rootCmd.PersistentFlags().Bool("json-logs", false, "Write log messages as JSON")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if jsonLogs, _ := cmd.Flags().GetBool("json-logs"); jsonLogs && c.logs != nil {
			c.logs.SetJSON(true)
		}
	}

	rootCmd.AddCommand(c.newAuditCmd())
	rootCmd.AddCommand(c.newCoverageCmd())
	rootCmd.AddCommand(c.newStatusCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// addTierFlags registers --quick and --full.
func addTierFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("quick", "q", false, "Run tier 1 only")
	cmd.Flags().BoolP("full", "f", false, "Run all three tiers, including coverage")
	cmd.MarkFlagsMutuallyExclusive("quick", "full")
}

func tierFromFlags(cmd *cobra.Command) domain.Tier {
	quick, _ := cmd.Flags().GetBool("quick")
	full, _ := cmd.Flags().GetBool("full")
	switch {
	case quick:
		return domain.TierQuick
	case full:
		return domain.TierFull
	default:
		return domain.TierStandard
	}
}

// addOutputFlags registers --output-mode and its --ci shorthand.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, linear, or quiet")
	cmd.Flags().Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
}

func outputModeFromFlags(cmd *cobra.Command) string {
	outputMode, _ := cmd.Flags().GetString("output-mode")
	if ci, _ := cmd.Flags().GetBool("ci"); ci {
		return "linear"
	}
	return outputMode
}
