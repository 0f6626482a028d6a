package session

import "strings"

// CursorGlyph is appended to partial text while a reply is streaming.
const CursorGlyph = "▌"

// Accumulator concatenates streamed fragments in arrival order.
type Accumulator struct {
	sb        strings.Builder
	fragments int
}

func (a *Accumulator) Append(fragment string) {
	a.sb.WriteString(fragment)
	a.fragments++
}

func (a *Accumulator) Text() string {
	return a.sb.String()
}

func (a *Accumulator) Fragments() int {
	return a.fragments
}

// Display is the text shown while streaming, with the cursor glyph at the end.
func (a *Accumulator) Display() string {
	return a.sb.String() + CursorGlyph
}

// Final is the text to persist. A trailing cursor glyph is never part of it.
func (a *Accumulator) Final() string {
	return strings.TrimRight(a.sb.String(), CursorGlyph)
}
