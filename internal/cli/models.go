package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/logger"
	"github.com/haskel/variantlab/internal/storage"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List persisted model handles",
	Long: `List model handles persisted by runs with --persist-models. These are
the models an evaluation_only run loads.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

var modelsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a persisted model handle",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsRm,
}

func init() {
	modelsCmd.AddCommand(modelsRmCmd)
	rootCmd.AddCommand(modelsCmd)
}

func modelStore() (*storage.ModelStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return storage.NewModelStore(cfg.Persistence.ModelsDir, logger.New(cfg.Logging.Level, cfg.Logging.Format)), nil
}

func runModels(cmd *cobra.Command, args []string) error {
	store, err := modelStore()
	if err != nil {
		return err
	}

	names, err := store.List()
	if err != nil {
		return err
	}

	handles := make([]experiment.ModelHandle, 0, len(names))
	for _, name := range names {
		h, err := store.Load(name)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return writeJSON(out, handles)
	}
	if len(handles) == 0 {
		fmt.Fprintln(out, "No models persisted.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVARIANT\tTRAINED\tURI")
	for i, h := range handles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", names[i], h.Variant, h.TrainedAt.Local().Format("2006-01-02 15:04"), h.URI)
	}
	return tw.Flush()
}

func runModelsRm(cmd *cobra.Command, args []string) error {
	store, err := modelStore()
	if err != nil {
		return err
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}
