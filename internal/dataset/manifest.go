// Package dataset loads sample/label manifests and splits them into
// train, validation and test partitions.
package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/haskel/variantlab/internal/experiment"
)

// ErrEmptyManifest is returned when a manifest lists no pairs.
var ErrEmptyManifest = errors.New("manifest contains no samples")

// Entry is one manifest row.
type Entry struct {
	Sample string `json:"sample"`
	Label  string `json:"label"`
}

// ManifestLoader implements experiment.DataLoader for CSV and JSON manifests.
// Relative sample and label paths are resolved against the manifest's
// directory.
type ManifestLoader struct {
	// SplitDir, when set, receives a split_files.json listing each partition.
	SplitDir string

	logger *slog.Logger
}

func NewManifestLoader(logger *slog.Logger) *ManifestLoader {
	return &ManifestLoader{logger: logger}
}

func (l *ManifestLoader) Load(ctx context.Context, cfg experiment.RunConfig) ([]string, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	entries, err := ReadManifest(cfg.Manifest)
	if err != nil {
		return nil, nil, err
	}

	base := filepath.Dir(cfg.Manifest)
	samples := make([]string, len(entries))
	labels := make([]string, len(entries))
	for i, e := range entries {
		samples[i] = resolve(base, e.Sample)
		labels[i] = resolve(base, e.Label)
	}

	l.logger.Info("loaded manifest", "path", cfg.Manifest, "samples", len(samples))
	return samples, labels, nil
}

// ReadManifest parses a manifest file. Files ending in .json hold an array
// of {"sample", "label"} objects; anything else is read as CSV with a header
// row naming "sample" and "label" columns.
func ReadManifest(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	var entries []Entry
	if strings.EqualFold(filepath.Ext(path), ".json") {
		entries, err = parseJSON(f)
	} else {
		entries, err = parseCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("manifest %s: %w", path, ErrEmptyManifest)
	}
	return entries, nil
}

func parseJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	for i, e := range entries {
		if e.Sample == "" || e.Label == "" {
			return nil, fmt.Errorf("entry %d: sample and label are required", i)
		}
	}
	return entries, nil
}

func parseCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	sampleCol, labelCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "sample", "image":
			sampleCol = i
		case "label", "mask":
			labelCol = i
		}
	}
	if sampleCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("csv header must name sample and label columns, got %v", header)
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		e := Entry{
			Sample: strings.TrimSpace(rec[sampleCol]),
			Label:  strings.TrimSpace(rec[labelCol]),
		}
		if e.Sample == "" || e.Label == "" {
			return nil, fmt.Errorf("line %d: sample and label are required", line)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(base, p)
}
