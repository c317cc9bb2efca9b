package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sift/internal/app"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the audit whenever source files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			return c.app.Watch(cmd.Context(), app.WatchOptions{
				Tier:       tierFromFlags(cmd),
				Workers:    workers,
				OutputMode: outputModeFromFlags(cmd),
			})
		},
	}
	addTierFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().IntP("workers", "w", 0, "Maximum number of tools running at once (default from sift.yaml)")
	return cmd
}
