package browser

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles Bubbletea messages and updates browser state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case catalogMsg:
		m.loading = false
		m.records = msg.records
		if m.cursor >= len(m.records) {
			m.cursor = 0
		}
		return m, nil

	case catalogErrMsg:
		m.loading = false
		m.errMsg = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.viewMode == ViewDetail {
			m.viewMode = ViewList
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.viewMode == ViewList && m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.viewMode == ViewList && m.cursor < len(m.records)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if m.viewMode == ViewList && len(m.records) > 0 {
			m.viewMode = ViewDetail
		}
		return m, nil
	}

	return m, nil
}
