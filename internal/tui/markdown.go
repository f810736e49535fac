package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

type markdownTheme string

const (
	markdownThemeAuto  markdownTheme = "auto"
	markdownThemeDark  markdownTheme = "dark"
	markdownThemeLight markdownTheme = "light"
	markdownThemePlain markdownTheme = "notty"
)

func markdownThemeFromString(value string) markdownTheme {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dark":
		return markdownThemeDark
	case "light":
		return markdownThemeLight
	case "notty", "plain":
		return markdownThemePlain
	default:
		return markdownThemeAuto
	}
}

// markdownRenderer caches one glamour renderer per wrap width. Preview lanes
// of different widths each keep their own.
type markdownRenderer struct {
	mu        sync.Mutex
	theme     markdownTheme
	renderers map[int]*glamour.TermRenderer
}

func newMarkdownRenderer(theme markdownTheme) *markdownRenderer {
	return &markdownRenderer{theme: theme, renderers: map[int]*glamour.TermRenderer{}}
}

// Render returns glamour output for content wrapped at width, or content
// itself when rendering fails.
func (r *markdownRenderer) Render(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	renderer := r.rendererFor(width)
	if renderer == nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (r *markdownRenderer) rendererFor(width int) *glamour.TermRenderer {
	if width < 0 {
		width = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if renderer, ok := r.renderers[width]; ok {
		return renderer
	}
	options := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch r.theme {
	case markdownThemeAuto:
		options = append(options, glamour.WithAutoStyle())
	default:
		options = append(options, glamour.WithStandardStyle(string(r.theme)))
	}
	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return nil
	}
	r.renderers[width] = renderer
	return renderer
}
