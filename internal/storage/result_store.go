package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

const (
	resultPrefix     = "run-"
	resultTimeLayout = "20060102-150405"
)

// ResultStore writes one JSON artifact per run.
type ResultStore struct {
	dir    string
	logger *slog.Logger
}

func NewResultStore(dir string, logger *slog.Logger) *ResultStore {
	return &ResultStore{dir: dir, logger: logger}
}

// Save writes result as run-<timestamp>.json and returns the path. Runs
// finishing within the same second get a short run ID suffix.
func (rs *ResultStore) Save(result *experiment.RunResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil result")
	}

	ts := result.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	name := resultPrefix + ts.UTC().Format(resultTimeLayout) + ".json"
	path := filepath.Join(rs.dir, name)
	if _, err := os.Stat(path); err == nil {
		suffix := result.RunID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		path = filepath.Join(rs.dir, fmt.Sprintf("%s%s-%s.json", resultPrefix, ts.UTC().Format(resultTimeLayout), suffix))
	}

	if err := writeJSONAtomic(path, result); err != nil {
		return "", fmt.Errorf("failed to save run result: %w", err)
	}

	rs.logger.Info("saved run result", "path", path, "run_id", result.RunID)
	return path, nil
}

// Load reads a result artifact.
func (rs *ResultStore) Load(path string) (*experiment.RunResult, error) {
	var result experiment.RunResult
	if err := readJSON(path, &result); err != nil {
		return nil, fmt.Errorf("failed to load run result %s: %w", path, err)
	}
	return &result, nil
}

// List returns result artifact paths, oldest first.
func (rs *ResultStore) List() ([]string, error) {
	entries, err := os.ReadDir(rs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, resultPrefix) || !strings.HasSuffix(n, ".json") {
			continue
		}
		paths = append(paths, filepath.Join(rs.dir, n))
	}
	sort.Strings(paths)
	return paths, nil
}

// Latest loads the most recent result, or returns nil when none exist.
func (rs *ResultStore) Latest() (*experiment.RunResult, error) {
	paths, err := rs.List()
	if err != nil || len(paths) == 0 {
		return nil, err
	}
	return rs.Load(paths[len(paths)-1])
}
