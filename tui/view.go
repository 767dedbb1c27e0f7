package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const minColumnWidth = 22

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	columnStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	activeColumnStyle = columnStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
	cursorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#3A3A3A"))
	grabbedStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C"))
	mutedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

func (m *Model) View() string {
	cols := m.ctrl.Columns()
	if len(cols) == 0 {
		if m.err != nil {
			return errorStyle.Render("error: "+m.err.Error()) + "\n"
		}
		return "Loading board...\n"
	}

	width := minColumnWidth
	if m.width > 0 {
		width = max(minColumnWidth, m.width/len(cols)-4)
	}

	rendered := make([]string, 0, len(cols))
	for i, c := range cols {
		lane := m.ctrl.Lane(c.ID)
		lines := []string{titleStyle.Render(fmt.Sprintf("%s (%d)", c.Name, len(lane)))}
		if len(lane) == 0 {
			lines = append(lines, mutedStyle.Render("empty"))
		}
		for j, t := range lane {
			line := truncate(t.Title, width-2)
			switch {
			case t.ID == m.grabbed:
				line = grabbedStyle.Render("» " + line)
			case i == m.col && j == m.row:
				line = cursorStyle.Render("  " + line)
			default:
				line = "  " + line
			}
			lines = append(lines, line)
		}
		style := columnStyle
		if i == m.col {
			style = activeColumnStyle
		}
		rendered = append(rendered, style.Width(width).Render(strings.Join(lines, "\n")))
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(mutedStyle.Render(m.status))
	}
	if m.pending > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d pending)", m.pending)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
