package layout

import (
	"strings"
	"testing"

	"github.com/Paintersrp/anvil/internal/block"
)

func TestNilMeasurerFallsBackPerType(t *testing.T) {
	e := NewEstimator(nil)

	cases := []struct {
		typ  block.Type
		want float64
	}{
		{block.TypeParagraph, 28},
		{block.TypeHeading, 56},
		{block.TypeCode, 66},
		{block.TypeTable, 100},
	}
	for _, tc := range cases {
		c := block.Content{
			Meta:     block.Meta{ID: 1, Type: tc.typ, Lines: 1},
			Markdown: "x\n",
		}
		if got := e.EstimateHeight(c, 760, false); got != tc.want {
			t.Fatalf("EstimateHeight(%s) = %v, want fallback %v", tc.typ, got, tc.want)
		}
		e.Invalidate()
	}
}

func TestEstimateHeightSingleLineParagraph(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})

	c := block.Content{
		Meta:     block.Meta{ID: 1, Type: block.TypeParagraph, Lines: 1, Chars: 11},
		Markdown: "hello world\n",
	}
	g := e.Geometry(block.TypeParagraph)
	want := g.LineHeight + g.Frame()
	if got := e.EstimateHeight(c, 760, false); got != want {
		t.Fatalf("EstimateHeight() = %v, want %v", got, want)
	}
}

func TestEstimateHeightWrapsLongText(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})

	long := strings.Repeat("word ", 200)
	c := block.Content{
		Meta:     block.Meta{ID: 1, Type: block.TypeParagraph, Lines: 1, Chars: len(long)},
		Markdown: long + "\n",
	}
	g := e.Geometry(block.TypeParagraph)
	single := g.LineHeight + g.Frame()
	if got := e.EstimateHeight(c, 760, false); got <= single {
		t.Fatalf("EstimateHeight() = %v for 1000 chars, want more than one line (%v)", got, single)
	}
}

func TestCodeBlockUsesSourceLines(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})

	c := block.Content{
		Meta:     block.Meta{ID: 1, Type: block.TypeCode, Lines: 5},
		Markdown: "```go\na\nb\nc\n```\n",
	}
	g := e.Geometry(block.TypeCode)
	want := 5*g.LineHeight + g.Frame()
	if got := e.EstimateHeight(c, 760, false); got != want {
		t.Fatalf("EstimateHeight(code) = %v, want %v", got, want)
	}
}

func TestFirstBlockDropsTopMargin(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})

	c := block.Content{
		Meta:     block.Meta{Type: block.TypeHeading, Lines: 1, Chars: 7},
		Markdown: "# Title\n",
	}
	c.ID = 1
	inner := e.EstimateHeight(c, 760, false)
	e.Invalidate()
	c.ID = 2
	first := e.EstimateHeight(c, 760, true)

	g := e.Geometry(block.TypeHeading)
	if first != inner-g.MarginTop {
		t.Fatalf("first block height = %v, want %v minus top margin %v", first, inner, g.MarginTop)
	}
}

func TestMeasuredHeightWinsOverEstimates(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})
	e.SetMeasured(1, 123)

	c := block.Content{
		Meta:     block.Meta{ID: 1, Type: block.TypeParagraph, Lines: 1, Chars: 5},
		Markdown: "short\n",
	}
	if got := e.EstimateHeight(c, 760, false); got != 123 {
		t.Fatalf("EstimateHeight() = %v, want measured 123", got)
	}
	if got := e.EstimateMeta(c.Meta, 760, false); got != 123 {
		t.Fatalf("EstimateMeta() = %v, want measured 123", got)
	}
}

func TestInvalidateDropsMeasurements(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})
	e.SetMeasured(1, 123)
	e.Invalidate()

	if _, ok := e.Height(1); ok {
		t.Fatal("Height(1) survived Invalidate")
	}
}

func TestSeedInstallsMeasuredEntries(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})
	e.Seed(map[int64]float64{4: 77, 5: 88})

	if h, ok := e.Height(4); !ok || h != 77 {
		t.Fatalf("Height(4) = %v, %v; want 77, true", h, ok)
	}
	if src, _ := e.Source(5); src != block.SourceMeasured {
		t.Fatalf("Source(5) = %v, want measured", src)
	}
}

func TestConfigureOverridesGeometry(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})
	e.Configure(map[block.Type]block.Geometry{
		block.TypeParagraph: {FontSize: 16, LineHeight: 40},
	})

	if got := e.LineHeight(); got != 40 {
		t.Fatalf("LineHeight() = %v, want configured 40", got)
	}
}

func TestHeightsForMatchesMetas(t *testing.T) {
	e := NewEstimator(GlyphMeasurer{})
	metas := []block.Meta{
		{ID: 1, Type: block.TypeHeading, Lines: 1, Chars: 7},
		{ID: 2, Type: block.TypeParagraph, Lines: 1, Chars: 20},
		{ID: 3, Type: block.TypeCode, Lines: 4},
	}

	heights := e.HeightsFor(metas, 760)
	if len(heights) != len(metas) {
		t.Fatalf("got %d heights for %d metas", len(heights), len(metas))
	}
	for i, h := range heights {
		if h <= 0 {
			t.Fatalf("heights[%d] = %v, want positive", i, h)
		}
	}

	// Deterministic: a second pass over the same metas agrees.
	again := e.HeightsFor(metas, 760)
	for i := range heights {
		if heights[i] != again[i] {
			t.Fatalf("heights[%d] changed between passes: %v then %v", i, heights[i], again[i])
		}
	}
}
