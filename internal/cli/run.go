package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/haskel/variantlab/internal/config"
	"github.com/haskel/variantlab/internal/dataset"
	"github.com/haskel/variantlab/internal/estimate"
	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/external"
	"github.com/haskel/variantlab/internal/history"
	"github.com/haskel/variantlab/internal/logger"
	"github.com/haskel/variantlab/internal/monitor"
	"github.com/haskel/variantlab/internal/orchestrator"
	"github.com/haskel/variantlab/internal/report"
	"github.com/haskel/variantlab/internal/resource"
	"github.com/haskel/variantlab/internal/server"
	"github.com/haskel/variantlab/internal/stats"
	"github.com/haskel/variantlab/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an A/B experiment",
	Long: `Run the experiment described by the configuration file.

Modes:
  full             load, train both variants, evaluate, analyze, report
  quick            full pipeline on a down-sampled dataset
  models_only      stop after training (use --persist-models)
  evaluation_only  evaluate previously persisted models`,
	Example: `  variantlab run -c experiment.yaml
  variantlab run --mode quick --status
  variantlab run --mode models_only --persist-models
  variantlab run --mode evaluation_only --json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runMode          string
	runPersistModels bool
	runReport        bool
	runCrossValidate bool
	runStatusServer  bool
)

const (
	resourceSampleInterval = 5 * time.Second
	shutdownTimeout        = 10 * time.Second
)

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", string(experiment.ModeFull), "run mode: full, quick, models_only, evaluation_only")
	runCmd.Flags().BoolVar(&runPersistModels, "persist-models", false, "persist trained model handles")
	runCmd.Flags().BoolVar(&runReport, "report", true, "generate a markdown report")
	runCmd.Flags().BoolVar(&runCrossValidate, "cross-validate", false, "run k-fold cross-validation after the analysis")
	runCmd.Flags().BoolVar(&runStatusServer, "status", false, "serve the status API during the run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	mode, err := experiment.ParseMode(runMode)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runStatusServer {
		cfg.Status.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closer, err := logger.Open(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := build(ctx, cfg, mode, log)
	if err != nil {
		return err
	}
	defer w.close(log)

	if cfg.Status.Enabled {
		if err := w.serveStatus(ctx, cfg.Status, log); err != nil {
			return err
		}
	}

	log.Info("variantlab starting",
		"version", Version,
		"config", cfgFile,
		"experiment", cfg.Experiment.Name,
		"mode", mode,
	)

	result, runErr := w.orch.Run(ctx, mode, experiment.RunOptions{
		PersistModels:  runPersistModels,
		GenerateReport: runReport,
		CrossValidate:  runCrossValidate,
	})

	out := cmd.OutOrStdout()
	if jsonOut && result != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if !jsonOut {
		fmt.Fprint(out, w.orch.Summary())
		if result != nil {
			printResult(out, result)
		}
	}

	if runErr != nil {
		return fmt.Errorf("experiment failed: %w", runErr)
	}
	return nil
}

// watchedPaths adds the run's output directories to the configured mounts.
func watchedPaths(cfg *config.Config) []string {
	p := cfg.Persistence
	return append(slices.Clone(cfg.Monitoring.Paths), p.ModelsDir, p.ResultsDir, p.ReportsDir)
}

// wiring is the set of long-lived components behind one orchestrator.
type wiring struct {
	orch     *orchestrator.Orchestrator
	agg      *monitor.Aggregator
	registry *prometheus.Registry
	stages   *storage.Storage
	history  *history.Store
	srv      *server.Server
}

func build(ctx context.Context, cfg *config.Config, mode experiment.Mode, log *slog.Logger) (*wiring, error) {
	w := &wiring{
		agg:      monitor.NewAggregator(monitor.DefaultMonitors(watchedPaths(cfg)), resourceSampleInterval, log),
		registry: prometheus.NewRegistry(),
		stages:   storage.New(cfg.Persistence.DataDir, cfg.FlushInterval(), log),
	}
	w.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := w.stages.Load(); err != nil {
		log.Warn("failed to load stage durations", "error", err)
	}
	w.stages.Start(ctx)

	est := estimate.New(0)
	estimate.Bind(est, w.stages, mode)

	thresholds := resource.DefaultThresholds()
	thresholds.CPUCeilingPercent = cfg.Execution.CPUCeilingPercent

	opts := orchestrator.Options{
		Resources: resource.NewOptimizer(w.agg, thresholds, log),
		Estimator: est,
		Results:   storage.NewResultStore(cfg.Persistence.ResultsDir, log),
		Metrics:   orchestrator.NewMetrics(w.registry),
	}

	if cfg.Persistence.HistoryDB != "" {
		h, err := history.Open(cfg.Persistence.HistoryDB)
		if err != nil {
			log.Warn("run history disabled", "path", cfg.Persistence.HistoryDB, "error", err)
		} else {
			w.history = h
			opts.History = h
		}
	}

	orch, err := orchestrator.New(cfg.RunConfig(), collaborators(cfg, log), opts, log)
	if err != nil {
		w.close(log)
		return nil, err
	}
	w.orch = orch

	return w, nil
}

func collaborators(cfg *config.Config, log *slog.Logger) experiment.Collaborators {
	loader := dataset.NewManifestLoader(log)
	loader.SplitDir = cfg.Persistence.DataDir

	trainer := external.NewCommandTrainer(external.NewRunner(cfg.Collaborators.Trainer, cfg.TaskTimeout(), log))
	evaluator := external.NewCommandEvaluator(external.NewRunner(cfg.Collaborators.Evaluator, cfg.TaskTimeout(), log), cfg.Analysis.Metrics)

	return experiment.Collaborators{
		Loader:         loader,
		Trainer:        trainer,
		Models:         storage.NewModelStore(cfg.Persistence.ModelsDir, log),
		Evaluator:      evaluator,
		Analyzer:       stats.NewWelchAnalyzer(cfg.Analysis.Alpha),
		CrossValidator: external.NewFoldValidator(trainer, evaluator, log),
		Reporter:       report.New(cfg.Persistence.ReportsDir, log),
	}
}

// serveStatus starts the resource sampler and the status API. Both stop in close.
func (w *wiring) serveStatus(ctx context.Context, cfg config.StatusConfig, log *slog.Logger) error {
	if err := w.agg.Start(ctx); err != nil {
		return fmt.Errorf("failed to start resource sampler: %w", err)
	}

	w.srv = server.New(cfg, w.orch, w.agg, w.registry, log, Version)
	go func() {
		if err := w.srv.Start(); err != nil {
			log.Error("status server error", "error", err)
		}
	}()

	log.Info("status server ready", "addr", w.srv.Addr())
	return nil
}

func (w *wiring) close(log *slog.Logger) {
	if w.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := w.srv.Shutdown(ctx); err != nil {
			log.Error("status server shutdown error", "error", err)
		}
		cancel()
	}
	_ = w.agg.Stop()

	if err := w.stages.Stop(); err != nil {
		log.Error("failed to save stage durations", "error", err)
	}
	if w.history != nil {
		if err := w.history.Close(); err != nil {
			log.Error("failed to close run history", "error", err)
		}
	}
}

func printResult(out io.Writer, res *experiment.RunResult) {
	fmt.Fprintf(out, "\nSplit: train=%d validation=%d test=%d", res.Split.Train, res.Split.Validation, res.Split.Test)
	if res.Dispatch != "" {
		fmt.Fprintf(out, "  dispatch=%s", res.Dispatch)
	}
	fmt.Fprintln(out)

	if len(res.Comparisons) > 0 {
		fmt.Fprintf(out, "\n%-16s %10s %10s %10s %8s\n", "Metric", "A", "B", "p", "d")
		for _, c := range res.Comparisons {
			marker := ""
			if c.Significant {
				marker = " *"
			}
			fmt.Fprintf(out, "%-16s %10.4f %10.4f %10.4f %8.2f%s\n",
				c.Metric, c.MeanA, c.MeanB, c.PValue, c.EffectSize, marker)
		}
	}

	if d := res.Decision; d != nil {
		fmt.Fprintf(out, "\nWinner: %s (%s confidence, %d-%d of %d metrics)\n",
			d.Winner, d.Confidence, d.WinsA, d.WinsB, d.Metrics)
		for _, r := range d.Recommendations {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}

	for _, v := range experiment.Variants {
		if h, ok := res.Models[v]; ok {
			fmt.Fprintf(out, "Model %s: %s\n", v, h.URI)
		}
	}

	if res.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", res.ReportPath)
	}
}
