package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sift/internal/app"
)

func (c *CLI) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the audit tiers and write the results document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clearCache, _ := cmd.Flags().GetBool("clear-cache")
			strict, _ := cmd.Flags().GetBool("strict")
			workers, _ := cmd.Flags().GetInt("workers")

			result, err := c.app.Audit(cmd.Context(), app.AuditOptions{
				Tier:       tierFromFlags(cmd),
				Workers:    workers,
				Strict:     strict,
				ClearCache: clearCache,
				OutputMode: outputModeFromFlags(cmd),
			})
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	addTierFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().Bool("clear-cache", false, "Delete every cache entry before running")
	cmd.Flags().Bool("strict", false, "Fail when a tool crashed or a tier-3 tool failed")
	cmd.Flags().IntP("workers", "w", 0, "Maximum number of tools running at once (default from sift.yaml)")
	return cmd
}
