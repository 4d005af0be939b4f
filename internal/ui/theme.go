package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#7D56F4")

	titleStyle = lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(1, 0)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	keyStyle   = lipgloss.NewStyle().Foreground(accent)
)
