package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

// Measurer turns a run of text into a pixel width for a given font size.
// The editor surface supplies a real glyph measurer; tests and headless
// runs leave it nil and the estimator falls back to fixed heights.
type Measurer interface {
	// StringWidth reports the advance width of s rendered at fontSize.
	StringWidth(s string, fontSize float64) float64
}

// glyphAspect approximates the advance of one terminal cell relative to
// the font size for proportional text.
const glyphAspect = 0.55

// GlyphMeasurer measures text by rune cell width. East-Asian wide runes
// count double, matching how the rendered surface lays them out.
type GlyphMeasurer struct{}

func (GlyphMeasurer) StringWidth(s string, fontSize float64) float64 {
	return float64(runewidth.StringWidth(s)) * fontSize * glyphAspect
}

// wrapLines counts the rendered lines of text wrapped to wrapWidth pixels.
// Hard newlines always break; soft wrapping reflows each hard line at the
// column budget the wrap width affords.
func wrapLines(m Measurer, text string, fontSize, wrapWidth float64) int {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return 1
	}

	cell := m.StringWidth("m", fontSize)
	if cell <= 0 {
		cell = fontSize * glyphAspect
	}
	cols := int(wrapWidth / cell)
	if cols < 1 {
		cols = 1
	}

	lines := 0
	for _, hard := range strings.Split(text, "\n") {
		if m.StringWidth(hard, fontSize) <= wrapWidth {
			lines++
			continue
		}
		wrapped := wordwrap.String(hard, cols)
		lines += strings.Count(wrapped, "\n") + 1
	}
	return lines
}
