package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haskel/variantlab/internal/config"
	"github.com/haskel/variantlab/internal/experiment"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tempConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Experiment.Manifest = filepath.Join(dir, "manifest.csv")
	cfg.Persistence.DataDir = filepath.Join(dir, "data")
	cfg.Persistence.ResultsDir = filepath.Join(dir, "results")
	cfg.Persistence.ModelsDir = filepath.Join(dir, "models")
	cfg.Persistence.ReportsDir = filepath.Join(dir, "reports")
	cfg.Persistence.HistoryDB = filepath.Join(dir, "history.db")
	return cfg
}

func TestRunCmd_Exists(t *testing.T) {
	if runCmd == nil {
		t.Fatal("runCmd should not be nil")
	}
	if runCmd.Use != "run" {
		t.Errorf("unexpected Use: %s", runCmd.Use)
	}
}

func TestRunCmd_Flags(t *testing.T) {
	tests := []struct {
		flagName string
		defValue string
	}{
		{"mode", "full"},
		{"persist-models", "false"},
		{"report", "true"},
		{"cross-validate", "false"},
		{"status", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := runCmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("flag %s should exist", tt.flagName)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %s, got %s", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestRunCmd_RejectsArgs(t *testing.T) {
	if err := runCmd.Args(runCmd, []string{"extra"}); err == nil {
		t.Error("expected error for positional args")
	}
	if err := runCmd.Args(runCmd, nil); err != nil {
		t.Errorf("expected no error without args, got %v", err)
	}
}

func TestRunRun_InvalidMode(t *testing.T) {
	runMode = "turbo"
	defer func() { runMode = string(experiment.ModeFull) }()

	err := runRun(runCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("expected unknown mode error, got %v", err)
	}
}

func TestRunRun_BrokenConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("analysis: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgFile = path
	defer func() { cfgFile = "" }()

	if err := runRun(runCmd, nil); err == nil {
		t.Error("expected error for broken config file")
	}
}

func TestCollaborators_Complete(t *testing.T) {
	c := collaborators(tempConfig(t), discardLogger())

	if err := c.Validate(); err != nil {
		t.Fatalf("collaborators incomplete: %v", err)
	}
	if c.CrossValidator == nil || c.Reporter == nil {
		t.Error("expected optional collaborators to be wired")
	}
}

func TestBuild(t *testing.T) {
	cfg := tempConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := build(ctx, cfg, experiment.ModeFull, discardLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if w.orch == nil {
		t.Fatal("expected orchestrator")
	}
	if st := w.orch.Status(); st.RunID != "" {
		t.Errorf("expected idle status, got run %s", st.RunID)
	}
	if w.history == nil {
		t.Error("expected run history to be open")
	}

	w.close(discardLogger())

	if _, err := os.Stat(cfg.Persistence.HistoryDB); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

func TestBuild_InvalidRunConfig(t *testing.T) {
	cfg := tempConfig(t)
	cfg.Analysis.Metrics = nil

	if _, err := build(context.Background(), cfg, experiment.ModeFull, discardLogger()); err == nil {
		t.Error("expected error without metrics")
	}
}

func TestBuild_ServesStatus(t *testing.T) {
	cfg := tempConfig(t)
	cfg.Status.Host = "127.0.0.1"
	cfg.Status.Port = 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := build(ctx, cfg, experiment.ModeFull, discardLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if err := w.serveStatus(ctx, cfg.Status, discardLogger()); err != nil {
		t.Fatalf("serveStatus failed: %v", err)
	}
	if w.srv == nil {
		t.Fatal("expected status server")
	}

	time.Sleep(20 * time.Millisecond)
	w.close(discardLogger())
}

func TestPrintResult(t *testing.T) {
	res := &experiment.RunResult{
		RunID:    "4f1c2d9e-aaaa",
		Mode:     experiment.ModeFull,
		Dispatch: "concurrent",
		Split:    experiment.SplitSizes{Train: 70, Validation: 15, Test: 15},
		Comparisons: []experiment.ComparisonResult{
			{Metric: "dice", Significant: true, Direction: -1, PValue: 0.001, EffectSize: -1.2, MeanA: 0.71, MeanB: 0.83},
			{Metric: "iou", MeanA: 0.6, MeanB: 0.61, PValue: 0.4},
		},
		Decision: &experiment.WinnerDecision{
			Winner:          experiment.VariantB,
			Confidence:      experiment.ConfidenceHigh,
			WinsB:           1,
			Metrics:         2,
			Recommendations: []string{"Adopt variant B"},
		},
		Models: map[experiment.Variant]experiment.ModelHandle{
			experiment.VariantA: {URI: "file:///models/a"},
		},
		ReportPath: "/tmp/report.md",
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()

	for _, want := range []string{
		"train=70 validation=15 test=15",
		"dispatch=concurrent",
		"dice",
		"0.8300",
		"Winner: B (high confidence, 0-1 of 2 metrics)",
		"- Adopt variant B",
		"Model A: file:///models/a",
		"Report: /tmp/report.md",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Model B") {
		t.Error("unexpected model B line")
	}
}
