package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/history"
	"github.com/haskel/variantlab/internal/logger"
	"github.com/haskel/variantlab/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded experiment runs",
	Long: `List runs recorded in the local history index, most recent first.
With a run ID, print that run's result artifact. With --last, print the
most recent result artifact.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLimit int
	historyLast  bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&historyLast, "last", false, "print the most recent result artifact")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	results := storage.NewResultStore(cfg.Persistence.ResultsDir, logger.New(cfg.Logging.Level, cfg.Logging.Format))

	if historyLast {
		res, err := results.Latest()
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Fprintln(out, "No result artifacts found.")
			return nil
		}
		return showResult(out, res, string(res.Status.Stage))
	}

	store, err := history.Open(cfg.Persistence.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		entry, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return showRun(out, results, entry)
	}

	entries, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if jsonOut {
		return writeJSON(out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	printHistory(out, entries)
	return nil
}

func printHistory(out io.Writer, entries []history.Entry) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tNAME\tMODE\tSTATUS\tWINNER\tSTARTED\tDURATION")
	for _, e := range entries {
		winner := e.Winner
		if winner == "" {
			winner = "-"
		} else if e.Confidence != "" {
			winner += " (" + e.Confidence + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortRunID(e.RunID), e.Name, e.Mode, e.Status, winner,
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			e.Duration().Round(time.Second))
	}
	tw.Flush()
}

// showRun prints the stored result artifact when the run produced one.
func showRun(out io.Writer, results *storage.ResultStore, e history.Entry) error {
	if e.Artifact == "" {
		if jsonOut {
			return writeJSON(out, e)
		}
		fmt.Fprintf(out, "Run %s (%s) %s at stage %s\n", e.RunID, e.Mode, e.Status, e.Stage)
		if e.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", e.Error)
		}
		return nil
	}

	res, err := results.Load(e.Artifact)
	if err != nil {
		return err
	}
	return showResult(out, res, e.Status)
}

func showResult(out io.Writer, res *experiment.RunResult, status string) error {
	if jsonOut {
		return writeJSON(out, res)
	}

	fmt.Fprintf(out, "Run %s (%s) %s\n", res.RunID, res.Mode, status)
	printResult(out, res)
	return nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
