package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the current state of the browser.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, titleStyle.Render("Recollect • Plugins"))

	switch {
	case m.loading:
		sections = append(sections, fmt.Sprintf("%s resolving active plugins...", m.spinner.View()))
	case m.errMsg != "":
		sections = append(sections, errorStyle.Render(m.errMsg))
	case m.viewMode == ViewDetail:
		sections = append(sections, m.renderDetail())
	default:
		sections = append(sections, m.renderList())
	}

	sections = append(sections, helpStyle.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderList() string {
	if len(m.records) == 0 {
		return dimStyle.Render("no plugins are active for this session")
	}

	var lines []string
	for i, record := range m.records {
		marker := "  "
		name := record.Name
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
			name = selectedStyle.Render(name)
		}
		line := fmt.Sprintf("%s%s", marker, name)
		if record.Category != "" {
			line += dimStyle.Render(fmt.Sprintf("  (%s)", record.Category))
		}
		if record.Producer {
			line += producerStyle.Render("  producer")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail() string {
	record, ok := m.Selected()
	if !ok {
		return ""
	}

	var lines []string
	lines = append(lines, selectedStyle.Render(record.Name))
	if record.Category != "" {
		lines = append(lines, dimStyle.Render("category: "+record.Category))
	}

	if len(record.Requirements) > 0 {
		lines = append(lines, sectionStyle.Render("Requirements"))
		for _, req := range record.Requirements {
			lines = append(lines, "  "+req)
		}
	}

	lines = append(lines, sectionStyle.Render("Arguments"))
	if len(record.Arguments) == 0 {
		lines = append(lines, dimStyle.Render("  none"))
	}
	for _, arg := range record.Arguments {
		line := fmt.Sprintf("  --%s", arg.Name)
		if arg.Short != "" {
			line += fmt.Sprintf(" (-%s)", arg.Short)
		}
		if arg.Type != "" {
			line += dimStyle.Render(" " + arg.Type)
		}
		if arg.Critical {
			line += criticalStyle.Render(" critical")
		}
		if arg.Help != "" {
			line += "\n      " + dimStyle.Render(arg.Help)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func (m Model) helpLine() string {
	if m.viewMode == ViewDetail {
		return "esc back • q quit"
	}
	return "↑/↓ move • enter details • q quit"
}
