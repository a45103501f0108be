package config

import "github.com/haskel/variantlab/internal/experiment"

func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Name:     "experiment",
			Manifest: "data/manifest.csv",
			Split: experiment.SplitRatios{
				Train:      0.7,
				Validation: 0.15,
				Test:       0.15,
			},
			Seed: 42,
			VariantA: VariantConfig{
				Name: "variant-a",
			},
			VariantB: VariantConfig{
				Name: "variant-b",
			},
		},
		Execution: ExecutionConfig{
			Parallel:          true,
			MaxConcurrency:    2,
			MemoryPerTaskMB:   4096,
			CPUCeilingPercent: 85.0,
			QuickTest:         false,
			SampleCap:         50,
			TaskTimeoutSec:    0,
		},
		Analysis: AnalysisConfig{
			Alpha:        0.05,
			TieTolerance: 0,
			Metrics:      []string{"dice", "iou", "ssim"},
			CVFolds:      5,
		},
		Collaborators: CollaboratorsConfig{
			Trainer: CommandConfig{
				Command: "python3",
				Args:    []string{"train.py"},
			},
			Evaluator: CommandConfig{
				Command: "python3",
				Args:    []string{"evaluate.py"},
			},
		},
		Persistence: PersistenceConfig{
			DataDir:          ".variantlab",
			ResultsDir:       ".variantlab/results",
			ModelsDir:        ".variantlab/models",
			ReportsDir:       ".variantlab/reports",
			HistoryDB:        ".variantlab/history.db",
			FlushIntervalSec: 60,
		},
		Monitoring: MonitoringConfig{
			Paths: []string{"/"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Status: StatusConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8090,
			Auth: AuthConfig{
				Enabled:  false,
				User:     "",
				Password: "",
			},
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
	}
}
