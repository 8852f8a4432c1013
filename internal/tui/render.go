package tui

import (
	"github.com/charmbracelet/glamour"
)

// AutoStyle picks a light or dark markdown theme from the terminal background.
const AutoStyle = "auto"

// NewRenderer builds a glamour renderer wrapping at width columns.
func NewRenderer(style string, width int) (*glamour.TermRenderer, error) {
	if width < 1 {
		width = 1
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != AutoStyle {
		styleOpt = glamour.WithStandardStyle(style)
	}
	return glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
}

// RenderMarkdown falls back to the raw text when there is no renderer or glamour fails.
func RenderMarkdown(renderer *glamour.TermRenderer, content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if renderer != nil && content != "" {
		rendered, err := renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}
