package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette for the chat UI.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#7C3AED"), // Purple
		Secondary:  lipgloss.Color("#06B6D4"), // Cyan
		Foreground: lipgloss.Color("#CDD6F4"), // Light gray
		Muted:      lipgloss.Color("#6C7086"), // Medium gray
		Warning:    lipgloss.Color("#F9E2AF"), // Yellow
		Error:      lipgloss.Color("#F38BA8"), // Red
		Border:     lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains the pre-configured lipgloss styles.
type Styles struct {
	Title     lipgloss.Style
	You       lipgloss.Style
	Assistant lipgloss.Style
	Source    lipgloss.Style
	Degraded  lipgloss.Style
	Error     lipgloss.Style
	Status    lipgloss.Style
	Input     lipgloss.Style
}

// DefaultStyles builds the styles from the default theme.
func DefaultStyles() *Styles {
	t := DefaultTheme()
	return &Styles{
		Title:     lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		You:       lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Source:    lipgloss.NewStyle().Foreground(t.Muted),
		Degraded:  lipgloss.NewStyle().Foreground(t.Warning),
		Error:     lipgloss.NewStyle().Foreground(t.Error),
		Status:    lipgloss.NewStyle().Foreground(t.Muted),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
	}
}
