package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders view markdown using glamour.
// When no terminal renderer can be built the markdown is passed through.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
