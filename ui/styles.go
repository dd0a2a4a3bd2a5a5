package ui

import "github.com/charmbracelet/lipgloss"

// Colors.
var (
	fuchsia   = lipgloss.Color("#EE6FF8")
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray   = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
)

// Styles.
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Render

	subtleStyle   = lipgloss.NewStyle().Foreground(gray).Render
	pathStyle     = lipgloss.NewStyle().Foreground(midGray).Render
	errorStyle    = lipgloss.NewStyle().Foreground(red).Render
	categoryStyle = lipgloss.NewStyle().Foreground(darkGreen).Bold(true).Render
	selectedStyle = lipgloss.NewStyle().Foreground(fuchsia).Render

	statusMessageStyle = lipgloss.NewStyle().Foreground(mintGreen).Render

	spinnerStyle = lipgloss.NewStyle().Foreground(fuchsia)
)
