package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

type Style struct {
	Header            lipgloss.Style
	Status            lipgloss.Style
	UnselectedMessage lipgloss.Style
	SelectedMessage   lipgloss.Style
	FocusedMessage    lipgloss.Style
	ErrorMessage      lipgloss.Style
}

func DefaultStyles() *Style {
	return &Style{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Status: lipgloss.NewStyle().
			Faint(true),
		UnselectedMessage: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("8")),
		SelectedMessage: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("15")),
		FocusedMessage: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("63")),
		ErrorMessage: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("9")).
			Foreground(lipgloss.Color("9")),
	}
}

// wrapWords wraps on word boundaries and hard-wraps words longer than width.
func wrapWords(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wrap.String(wordwrap.String(s, width), width)
}
