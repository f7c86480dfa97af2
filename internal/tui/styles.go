package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent    = lipgloss.Color("141") // soft magenta/purple
	colorBorder    = lipgloss.Color("241")
	colorMutedFg   = lipgloss.Color("250")
	colorTextFg    = lipgloss.Color("255")
	colorSuccessFg = lipgloss.Color("48")  // vibrant green
	colorWarnFg    = lipgloss.Color("214") // vibrant orange
	colorErrorFg   = lipgloss.Color("196") // vibrant red
)

var (
	tabStyle = lipgloss.NewStyle().
			Foreground(colorMutedFg).
			Padding(0, 2)
	tabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("232")).
			Background(colorAccent).
			Bold(true).
			Padding(0, 2)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("232")).
				Background(colorAccent).
				Bold(true)
	rowStyle = lipgloss.NewStyle().Foreground(colorTextFg)

	stagedMarkStyle    = lipgloss.NewStyle().Foreground(colorSuccessFg)
	unstagedMarkStyle  = lipgloss.NewStyle().Foreground(colorWarnFg)
	untrackedMarkStyle = lipgloss.NewStyle().Foreground(colorMutedFg)

	statusBarStyle = lipgloss.NewStyle().Foreground(colorMutedFg)
	branchStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	notifyInfoStyle  = lipgloss.NewStyle().Foreground(colorMutedFg)
	notifyWarnStyle  = lipgloss.NewStyle().Foreground(colorWarnFg)
	notifyErrorStyle = lipgloss.NewStyle().Foreground(colorErrorFg).Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().Foreground(colorMutedFg)
)
