package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sift/internal/app"
)

func (c *CLI) newCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Re-run the tests of changed domains and print merged coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			serial, _ := cmd.Flags().GetBool("serial")
			clearCache, _ := cmd.Flags().GetBool("clear-cache")

			summary, err := c.app.Coverage(cmd.Context(), app.CoverageOptions{
				Serial:     serial,
				ClearCache: clearCache,
				OutputMode: outputModeFromFlags(cmd),
			})
			if summary != nil {
				printCoverage(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}
	addOutputFlags(cmd)
	cmd.Flags().Bool("serial", false, "Run domain test suites one at a time")
	cmd.Flags().Bool("clear-cache", false, "Delete cached coverage fragments before running")
	return cmd
}
