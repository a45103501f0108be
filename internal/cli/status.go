package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress of a running experiment",
	Long: `Query the status server of a running experiment once. The run must have
been started with --status.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := "/summary"
	if jsonOut {
		path = "/status"
	}

	data, err := NewClient().Get(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
