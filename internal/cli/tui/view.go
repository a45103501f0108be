package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/haskel/variantlab/internal/experiment"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string

	sections = append(sections, m.renderTitleBar())

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.status != nil {
		sections = append(sections, m.renderRun())
		if m.status.RunID != "" {
			sections = append(sections, m.renderStages())
		}
	}

	if m.resources != nil {
		sections = append(sections, m.renderResources())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar() string {
	title := titleStyle.Render("VARIANTLAB")

	refreshInfo := fmt.Sprintf("↻ %s", m.config.RefreshInterval)
	if m.loading {
		refreshInfo = "↻ loading..."
	}

	rightPart := fmt.Sprintf("%s | q:quit r:refresh", refreshInfo)
	spacing := max(m.width-lipgloss.Width(title)-lipgloss.Width(rightPart)-2, 1)

	return title + strings.Repeat(" ", spacing) + helpStyle.Render(rightPart)
}

func (m Model) renderRun() string {
	st := m.status
	if st.RunID == "" {
		return labelStyle.Render("  No run started")
	}

	lines := []string{
		fmt.Sprintf("  %s %s  %s %s",
			labelStyle.Render("Run"), valueStyle.Render(shortID(st.RunID)),
			labelStyle.Render("Mode"), valueStyle.Render(st.Mode.String())),
		"  " + m.renderProgressBar("Progress", st.Progress*100, 30, colorPrimary),
		fmt.Sprintf("  %s %s  %s %s",
			labelStyle.Render("Elapsed"), valueStyle.Render(formatDuration(st.Elapsed)),
			labelStyle.Render("Remaining"), valueStyle.Render(remaining(st.EstimatedRemaining, st.Stage))),
	}

	if st.HasError {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("  Errors: %d  last: %s", st.ErrorCount, st.LastError)))
	}

	return strings.Join(lines, "\n")
}

// renderStages marks stages before the current one as done. The planned list
// is derived from the run mode.
func (m Model) renderStages() string {
	lines := []string{sectionHeaderStyle.Render("  Stages")}

	current := m.status.Stage
	reached := false
	for _, stage := range experiment.PlannedStages(m.status.Mode) {
		var line string
		switch {
		case stage == current && current == experiment.StageCompleted:
			line = doneStageStyle.Render("  ✓ " + stage.String())
			reached = true
		case stage == current:
			line = activeStageStyle.Render("  ▶ " + stage.String())
			reached = true
		case !reached:
			line = doneStageStyle.Render("  ✓ " + stage.String())
		default:
			line = pendingStageStyle.Render("  · " + stage.String())
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderResources() string {
	r := m.resources
	lines := []string{
		sectionHeaderStyle.Render("  Host"),
		fmt.Sprintf("  %s    %s",
			m.renderProgressBar("CPU", r.CPU.UsagePercent, 20, getProgressColor(r.CPU.UsagePercent)),
			m.renderProgressBar("Memory", r.Memory.UsagePercent, 20, getProgressColor(r.Memory.UsagePercent))),
	}

	for _, gpu := range r.GPUs {
		name := gpu.Name
		if len(name) > 24 {
			name = name[:24]
		}
		vramPercent := 0.0
		if gpu.VRAMTotalBytes > 0 {
			vramPercent = float64(gpu.VRAMUsedBytes) / float64(gpu.VRAMTotalBytes) * 100
		}
		lines = append(lines, fmt.Sprintf("  %s  %s    %s",
			labelStyle.Render(fmt.Sprintf("GPU %d %s", gpu.Index, name)),
			m.renderProgressBar("Usage", gpu.UsagePercent, 12, getProgressColor(gpu.UsagePercent)),
			m.renderProgressBar("VRAM", vramPercent, 12, getProgressColor(vramPercent))))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderProgressBar(label string, percent float64, width int, color lipgloss.Color) string {
	filled := min(max(int(percent/100*float64(width)), 0), width)

	filledBar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyBar := progressBarEmptyStyle.Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s [%s%s] %5.1f%%", labelStyle.Render(label), filledBar, emptyBar, percent)
}

func (m Model) renderFooter() string {
	if m.lastUpdated.IsZero() {
		return ""
	}
	return helpStyle.Render(fmt.Sprintf("  %s │ Updated: %s", m.config.ServerURL, m.lastUpdated.Format("15:04:05")))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func remaining(d time.Duration, stage experiment.Stage) string {
	if stage == experiment.StageCompleted {
		return "-"
	}
	return "~" + formatDuration(d)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
