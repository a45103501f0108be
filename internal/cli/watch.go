package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/variantlab/internal/cli/tui"
)

var refreshInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard for a running experiment",
	Long: `Launch a terminal dashboard that polls the status server of a running
experiment.

Examples:
  variantlab watch                    # default refresh rate
  variantlab watch --refresh 500ms    # faster refresh
  variantlab watch --host 10.0.0.1    # remote run`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&refreshInterval, "refresh", time.Second, "dashboard refresh interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	u, p := GetAuth()
	return tui.Run(cmd.Context(), tui.Config{
		ServerURL:       GetServerURL(),
		RefreshInterval: refreshInterval,
		User:            u,
		Password:        p,
	})
}
