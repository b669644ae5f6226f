package layout

import (
	"math"
	"sync"
	"time"

	"github.com/Paintersrp/anvil/internal/block"
)

// contentInsetX is the horizontal inset of block content inside the
// editor surface, one side, in pixels. Text wraps at the container width
// minus both insets.
const contentInsetX = 16.0

type cacheEntry struct {
	height float64
	source block.HeightSource
	at     time.Time
}

// Estimator produces deterministic pixel heights for blocks before they
// are painted and owns the per-document height cache. The viewport
// coordinator reads heights from here; corrections arrive only through
// the height feedback loop via SetMeasured.
type Estimator struct {
	mu       sync.RWMutex
	geometry map[block.Type]block.Geometry
	measurer Measurer
	cache    map[int64]cacheEntry

	now func() time.Time
}

// NewEstimator builds an estimator around the given measurer. A nil
// measurer switches every estimate to the fixed per-type fallback, which
// keeps headless and test runs approximate rather than broken.
func NewEstimator(m Measurer) *Estimator {
	table := make(map[block.Type]block.Geometry, len(defaultGeometry))
	for t, g := range defaultGeometry {
		table[t] = g
	}
	return &Estimator{
		geometry: table,
		measurer: m,
		cache:    make(map[int64]cacheEntry),
		now:      time.Now,
	}
}

// Configure merges per-type geometry overrides into the table. The
// resulting constants are also what the rendering layer styles blocks
// with, so estimates and paint stay in agreement.
func (e *Estimator) Configure(overrides map[block.Type]block.Geometry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for t, g := range overrides {
		e.geometry[t] = g
	}
}

// Geometry returns the effective geometry for a block type.
func (e *Estimator) Geometry(t block.Type) block.Geometry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return geometryFor(e.geometry, t)
}

// LineHeight is the paragraph line height, the unit the host uses to map
// terminal rows onto pixels.
func (e *Estimator) LineHeight() float64 {
	return e.Geometry(block.TypeParagraph).LineHeight
}

// EstimateMeta estimates a block's height from metadata alone, without
// its markdown. Used to seed the virtual scrollbar for unloaded blocks.
// first marks the document's first block, whose top margin collapses
// into the container edge.
func (e *Estimator) EstimateMeta(m block.Meta, containerWidth float64, first bool) float64 {
	if h, ok := e.measuredHeight(m.ID); ok {
		return h
	}

	h := e.estimateMeta(m, containerWidth, first)
	e.store(m.ID, h, block.SourceEstimated)
	return h
}

// EstimateHeight estimates a loaded block's height using its markdown.
// Text-wrapping types run a glyph-measurement pass against the wrap
// width; code and tables use fixed row formulas.
func (e *Estimator) EstimateHeight(c block.Content, containerWidth float64, first bool) float64 {
	if h, ok := e.measuredHeight(c.ID); ok {
		return h
	}

	e.mu.RLock()
	g := geometryFor(e.geometry, c.Type)
	m := e.measurer
	e.mu.RUnlock()

	if m == nil {
		h := fallbackFor(c.Type)
		e.store(c.ID, h, block.SourceEstimated)
		return h
	}

	var lines int
	switch c.Type {
	case block.TypeCode, block.TypeTable:
		lines = sourceLines(c.Meta)
	case block.TypeBreak:
		lines = 1
	default:
		wrapWidth := containerWidth - 2*contentInsetX
		if wrapWidth < g.FontSize {
			wrapWidth = g.FontSize
		}
		lines = wrapLines(m, c.Markdown, g.FontSize, wrapWidth)
	}

	h := float64(lines)*g.LineHeight + g.Frame()
	if first {
		h -= g.MarginTop
	}
	e.store(c.ID, h, block.SourceEstimated)
	return h
}

// Height looks up the cached height for a block.
func (e *Estimator) Height(blockID int64) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.cache[blockID]
	if !ok {
		return 0, false
	}
	return entry.height, true
}

// Source reports where a cached height came from.
func (e *Estimator) Source(blockID int64) (block.HeightSource, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.cache[blockID]
	if !ok {
		return "", false
	}
	return entry.source, true
}

// SetMeasured overwrites a cache entry with a real rendered height.
// Future prefix-sum rebuilds use the measured value, which is what keeps
// estimate drift from accumulating across many blocks.
func (e *Estimator) SetMeasured(blockID int64, height float64) {
	e.store(blockID, height, block.SourceMeasured)
}

// Seed preloads measured heights persisted from an earlier session.
func (e *Estimator) Seed(heights map[int64]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	at := e.now()
	for id, h := range heights {
		e.cache[id] = cacheEntry{height: h, source: block.SourceMeasured, at: at}
	}
}

// Invalidate drops the whole cache. Called on document switch.
func (e *Estimator) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[int64]cacheEntry)
}

// HeightsFor produces the height array the coordinator builds its prefix
// sums from: measured values where known, metadata estimates otherwise.
func (e *Estimator) HeightsFor(metas []block.Meta, containerWidth float64) []float64 {
	heights := make([]float64, len(metas))
	for i, m := range metas {
		heights[i] = e.EstimateMeta(m, containerWidth, i == 0)
	}
	return heights
}

func (e *Estimator) measuredHeight(blockID int64) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.cache[blockID]
	if ok && entry.source == block.SourceMeasured {
		return entry.height, true
	}
	return 0, false
}

func (e *Estimator) estimateMeta(m block.Meta, containerWidth float64, first bool) float64 {
	e.mu.RLock()
	g := geometryFor(e.geometry, m.Type)
	measurer := e.measurer
	e.mu.RUnlock()

	if measurer == nil {
		return fallbackFor(m.Type)
	}

	var lines int
	switch m.Type {
	case block.TypeCode, block.TypeTable:
		lines = sourceLines(m)
	case block.TypeBreak:
		lines = 1
	default:
		wrapWidth := containerWidth - 2*contentInsetX
		if wrapWidth < g.FontSize {
			wrapWidth = g.FontSize
		}
		glyph := measurer.StringWidth("m", g.FontSize)
		if glyph <= 0 {
			glyph = g.FontSize * glyphAspect
		}
		hard := sourceLines(m)
		soft := int(math.Ceil(float64(m.Chars) * glyph / wrapWidth))
		lines = hard
		if soft > lines {
			lines = soft
		}
	}

	h := float64(lines)*g.LineHeight + g.Frame()
	if first {
		h -= g.MarginTop
	}
	return h
}

func (e *Estimator) store(blockID int64, height float64, source block.HeightSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[blockID] = cacheEntry{height: height, source: source, at: e.now()}
}

// sourceLines counts the content lines of a block, excluding the blank
// separator lines the scanner keeps attached for round-tripping.
func sourceLines(m block.Meta) int {
	if m.Lines < 1 {
		return 1
	}
	return m.Lines
}
