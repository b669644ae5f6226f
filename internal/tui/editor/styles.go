package editor

import "github.com/charmbracelet/lipgloss"

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cdd6f4")).
			Background(lipgloss.Color("#313244")).
			Padding(0, 1)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f38ba8")).
			Background(lipgloss.Color("#313244")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#585b70"))

	gutterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#45475a"))

	thumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cba6f7"))
)
