package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tick(m.config.RefreshInterval))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = msg.data
			m.lastUpdated = time.Now()
		}
		return m, nil

	case resourcesMsg:
		if msg.err != nil {
			// a status error takes precedence
			if m.err == nil {
				m.err = msg.err
			}
		} else if msg.data != nil {
			m.resources = msg.data
		}
		return m, nil

	case tickMsg:
		m.loading = true
		return m, tea.Batch(m.poll(), tick(m.config.RefreshInterval))
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.loading = true
		return m, m.poll()
	}

	return m, nil
}

func (m Model) poll() tea.Cmd {
	return tea.Batch(
		fetchStatus(m.config),
		fetchResources(m.config),
	)
}
