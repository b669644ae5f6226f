package layout

import "github.com/Paintersrp/anvil/internal/block"

// DefaultBlockHeight sizes viewport math before any estimation has run.
const DefaultBlockHeight = 28.0

// defaultGeometry mirrors the editor stylesheet. Configure overrides
// entries from the workspace config; unknown types fall back to the
// paragraph row.
var defaultGeometry = map[block.Type]block.Geometry{
	block.TypeParagraph: {FontSize: 16, LineHeight: 24, MarginBottom: 4, PaddingTop: 0, PaddingBottom: 0},
	block.TypeHeading:   {FontSize: 24, LineHeight: 32, MarginTop: 16, MarginBottom: 8},
	block.TypeCode:      {FontSize: 14, LineHeight: 21, MarginTop: 8, MarginBottom: 8, PaddingTop: 12, PaddingBottom: 12, BorderWidth: 1},
	block.TypeTable:     {FontSize: 15, LineHeight: 30, MarginTop: 8, MarginBottom: 8, BorderWidth: 1},
	block.TypeList:      {FontSize: 16, LineHeight: 24, MarginBottom: 4},
	block.TypeQuote:     {FontSize: 16, LineHeight: 24, MarginTop: 8, MarginBottom: 8, PaddingTop: 4, PaddingBottom: 4, BorderWidth: 0},
	block.TypeBreak:     {LineHeight: 2, MarginTop: 16, MarginBottom: 16, BorderWidth: 1},
	block.TypeHTML:      {FontSize: 16, LineHeight: 24, MarginBottom: 4},
}

// fallbackHeights are the fixed per-type heights used when no measurement
// context is available. Approximate layout beats a crash in headless runs.
var fallbackHeights = map[block.Type]float64{
	block.TypeParagraph: 28,
	block.TypeHeading:   56,
	block.TypeCode:      66,
	block.TypeTable:     100,
	block.TypeList:      28,
	block.TypeQuote:     48,
	block.TypeBreak:     36,
	block.TypeHTML:      28,
}

func geometryFor(table map[block.Type]block.Geometry, t block.Type) block.Geometry {
	if g, ok := table[t]; ok {
		return g
	}
	return table[block.TypeParagraph]
}

func fallbackFor(t block.Type) float64 {
	if h, ok := fallbackHeights[t]; ok {
		return h
	}
	return DefaultBlockHeight
}
