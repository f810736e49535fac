package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor    = lipgloss.Color("#ff7a18")
	mutedColor     = lipgloss.Color("244")
	focusColor     = lipgloss.Color("#8ecae6")
	paneEdgeColor  = lipgloss.Color("#56526e")
	completedColor = lipgloss.Color("#a3be8c")
)

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	taglineStyle       = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	helperStyle        = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle       = lipgloss.NewStyle().Foreground(completedColor)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(focusColor).Padding(0, 1)
	paneStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(paneEdgeColor)
	focusedPaneStyle   = paneStyle.Copy().BorderForeground(focusColor)
	paneTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0def4"))
	stripStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(paneEdgeColor).Padding(0, 1)
	selectedRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(focusColor)
	boxStyle           = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(1, 2)
)
