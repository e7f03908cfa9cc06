package render

import (
	"github.com/charmbracelet/glamour"
)

// Terminal renders Markdown for a terminal. A zero value is usable and
// returns input unchanged.
type Terminal struct {
	r *glamour.TermRenderer
}

// NewTerminal builds a glamour renderer wrapping at width. styled selects the
// auto-detected colour style; otherwise the plain "notty" style is used so
// the output carries no escape sequences.
func NewTerminal(width int, styled bool) (*Terminal, error) {
	if width <= 0 {
		width = 80
	}
	style := glamour.WithStylePath("notty")
	if styled {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	return &Terminal{r: r}, nil
}

// Render falls back to the input when rendering fails.
func (t *Terminal) Render(md string) string {
	if t == nil || t.r == nil {
		return md
	}
	out, err := t.r.Render(md)
	if err != nil {
		return md
	}
	return out
}
