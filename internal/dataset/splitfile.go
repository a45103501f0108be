package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haskel/variantlab/internal/experiment"
)

type splitFile struct {
	Seed   int64                           `json:"seed"`
	Ratios experiment.SplitRatios          `json:"ratios"`
	Sizes  experiment.SplitSizes           `json:"sizes"`
	Splits map[string]experiment.Partition `json:"splits"`
}

func writeSplit(path string, split experiment.DatasetSplit, seed int64, ratios experiment.SplitRatios) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create split directory: %w", err)
	}

	data, err := json.MarshalIndent(splitFile{
		Seed:   seed,
		Ratios: ratios,
		Sizes:  split.Sizes(),
		Splits: map[string]experiment.Partition{
			"train":      split.Train,
			"validation": split.Validation,
			"test":       split.Test,
		},
	}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
