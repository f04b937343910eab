package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666688"))

	passStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))
)

type metric struct {
	label string
	value string
}

func num(v float64) string { return fmt.Sprintf("%.6e", v) }

// panel renders a titled block of aligned label/value lines.
func panel(title string, metrics ...metric) string {
	width := 0
	for _, m := range metrics {
		width = max(width, len(m.label))
	}
	lines := []string{titleStyle.Render(title)}
	for _, m := range metrics {
		pad := strings.Repeat(" ", width-len(m.label))
		lines = append(lines, labelStyle.Render(m.label+pad)+"  "+valueStyle.Render(m.value))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func status(ok bool) string {
	if ok {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}
