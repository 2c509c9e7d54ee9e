package workspace

import "github.com/charmbracelet/lipgloss"

var (
	colorText    lipgloss.Color = "#cdd6f4"
	colorMuted   lipgloss.Color = "#a6adc8"
	colorBorder  lipgloss.Color = "#585b70"
	colorMantle  lipgloss.Color = "#181825"
	colorAccent  lipgloss.Color = "#89b4fa"
	colorSuccess lipgloss.Color = "#a6e3a1"
	colorWarning lipgloss.Color = "#f9e2af"
	colorError   lipgloss.Color = "#f38ba8"
	colorSurface lipgloss.Color = "#313244"
)

var (
	appStyle = lipgloss.NewStyle().Foreground(colorText)

	titleStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	headerBarStyle = lipgloss.NewStyle().
			Background(colorMantle).
			Foreground(colorText)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Background(colorSurface)
	statusErrBarStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Background(colorSurface)
	footerStyle = lipgloss.NewStyle().
			Background(colorMantle)

	cursorStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	warningStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	disabledStyle = lipgloss.NewStyle().Foreground(colorBorder)
	staleStyle    = lipgloss.NewStyle().Foreground(colorWarning).Italic(true)
)
