// Package theme holds the terminal styles used by the CLI.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/po-intake/internal/schedule"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// SetDarkMode forces the dark or light half of every adaptive color,
// overriding terminal detection.
func SetDarkMode(dark bool) {
	lipgloss.SetHasDarkBackground(dark)
}

// HeaderStyle is used for section headers such as a PO title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// LabelStyle dims field labels in detail views.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// LossStyle marks negative profit.
var LossStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// ErrorStyle is used for failure lines.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// SuccessStyle is used for confirmation lines.
var SuccessStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

// StatusStyle returns the badge style for a delivery state.
func StatusStyle(sent bool) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if sent {
		return base.Foreground(ColorGreen)
	}
	return base.Foreground(ColorYellow)
}

// StatusBadge renders "sent" or "pending".
func StatusBadge(sent bool) string {
	label := "pending"
	if sent {
		label = "sent"
	}
	return StatusStyle(sent).Render(label)
}

// Money renders an amount as currency, in the loss style when negative.
func Money(amount float64) string {
	s := schedule.FormatCurrency(amount)
	if amount < 0 {
		return LossStyle.Render(s)
	}
	return s
}
