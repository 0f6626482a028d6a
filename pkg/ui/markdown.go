package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
)

// MarkdownRenderer renders assistant replies with glamour. The underlying renderer is
// rebuilt when the width changes.
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer takes a glamour standard style name, "auto", "dark", "light" or
// "notty".
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	return &MarkdownRenderer{style: style}
}

func (r *MarkdownRenderer) Render(s string, width int) string {
	if r.renderer == nil || r.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn().Err(err).Msg("could not create markdown renderer")
			return wrapWords(s, width)
		}
		r.renderer = renderer
		r.width = width
	}

	out, err := r.renderer.Render(s)
	if err != nil {
		return wrapWords(s, width)
	}
	return strings.Trim(out, "\n")
}
