// Package report renders run results to files in the reports directory.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/template"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

// Generator implements experiment.ReportGenerator.
type Generator struct {
	dir    string
	tmpl   *template.Template
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) *Generator {
	return &Generator{
		dir:    dir,
		tmpl:   template.Must(template.New("report").Funcs(funcs).Parse(markdownTemplate)),
		logger: logger,
	}
}

// Render writes the full Markdown report and returns its path.
func (g *Generator) Render(ctx context.Context, result *experiment.RunResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("render report: nil result")
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, newView(result)); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	path := filepath.Join(g.dir, baseName(result)+".md")
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	g.logger.Info("report written", "path", path)
	return path, nil
}

// fallbackReport carries only the numeric metrics and the decision summary.
type fallbackReport struct {
	RunID   string                                    `json:"run_id"`
	Name    string                                    `json:"name"`
	Metrics map[experiment.Variant]map[string]float64 `json:"metrics"`
	Summary string                                    `json:"summary"`
}

// RenderFallback writes a minimal JSON report and returns its path.
func (g *Generator) RenderFallback(ctx context.Context, result *experiment.RunResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("render fallback report: nil result")
	}

	fr := fallbackReport{
		RunID:   result.RunID,
		Name:    result.Name,
		Metrics: map[experiment.Variant]map[string]float64{},
	}
	for v, set := range result.Metrics {
		fr.Metrics[v] = map[string]float64{}
		for m, d := range set.Metrics {
			fr.Metrics[v][m] = d.Mean
		}
	}
	if result.Decision != nil {
		fr.Summary = result.Decision.Summary
	}

	data, err := json.MarshalIndent(fr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode fallback report: %w", err)
	}

	path := filepath.Join(g.dir, baseName(result)+"-fallback.json")
	if err := writeFile(path, data); err != nil {
		return "", fmt.Errorf("write fallback report: %w", err)
	}

	g.logger.Warn("fallback report written", "path", path)
	return path, nil
}

func baseName(r *experiment.RunResult) string {
	ts := r.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	name := "report-" + ts.UTC().Format("20060102-150405")
	if r.RunID != "" {
		name += "-" + shortID(r.RunID)
	}
	return name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

type metricRow struct {
	Metric string
	experiment.ComparisonResult
	StdA, StdB float64
}

type view struct {
	*experiment.RunResult
	Rows     []metricRow
	Duration time.Duration
	CVRows   []cvRow
}

type cvRow struct {
	Metric      string
	MeanA, StdA float64
	MeanB, StdB float64
}

func newView(r *experiment.RunResult) view {
	v := view{RunResult: r}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		v.Duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second)
	}

	for _, c := range r.Comparisons {
		row := metricRow{Metric: c.Metric, ComparisonResult: c}
		if set, ok := r.Metrics[experiment.VariantA]; ok {
			row.StdA = set.Metrics[c.Metric].StdDev
		}
		if set, ok := r.Metrics[experiment.VariantB]; ok {
			row.StdB = set.Metrics[c.Metric].StdDev
		}
		v.Rows = append(v.Rows, row)
	}

	if cv := r.CrossValidation; cv != nil {
		metrics := make([]string, 0, len(cv.Means[experiment.VariantA]))
		for m := range cv.Means[experiment.VariantA] {
			metrics = append(metrics, m)
		}
		sort.Strings(metrics)
		for _, m := range metrics {
			v.CVRows = append(v.CVRows, cvRow{
				Metric: m,
				MeanA:  cv.Means[experiment.VariantA][m],
				StdA:   cv.StdDevs[experiment.VariantA][m],
				MeanB:  cv.Means[experiment.VariantB][m],
				StdB:   cv.StdDevs[experiment.VariantB][m],
			})
		}
	}

	return v
}

var funcs = template.FuncMap{
	"f4": func(x float64) string { return fmt.Sprintf("%.4f", x) },
	"f2": func(x float64) string { return fmt.Sprintf("%.2f", x) },
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}
