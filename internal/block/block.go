package block

import "time"

// Type tags a block with its geometry class. The scanner assigns types
// from the markdown structure; the layout estimator keys its geometry
// table on them.
type Type string

const (
	TypeParagraph Type = "paragraph"
	TypeHeading   Type = "heading"
	TypeCode      Type = "code"
	TypeTable     Type = "table"
	TypeList      Type = "list"
	TypeQuote     Type = "quote"
	TypeBreak     Type = "break"
	TypeHTML      Type = "html"
)

// Meta is the lightweight per-block record the store returns for a whole
// document. It carries enough to seed the virtual scrollbar without
// loading any markdown.
type Meta struct {
	ID    int64
	Type  Type
	Level int
	Lines int
	Chars int
}

// Content is a block with its markdown, returned only for loaded ranges.
// Markdown retains the block's trailing blank lines so concatenating all
// blocks reproduces the source file byte for byte.
type Content struct {
	Meta
	Markdown string
}

// Range is a half-open [Start, End) span of block indices.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r Range) Empty() bool { return r.End <= r.Start }

func (r Range) Equal(o Range) bool { return r.Start == o.Start && r.End == o.End }

func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

// Clamp restricts the range to [0, n), collapsing inverted ranges.
func (r Range) Clamp(n int) Range {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > n {
		r.End = n
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

// Intersect returns the overlap of two ranges, empty when disjoint.
func (r Range) Intersect(o Range) Range {
	out := Range{Start: max(r.Start, o.Start), End: min(r.End, o.End)}
	if out.End < out.Start {
		out.End = out.Start
	}
	return out
}

// HeightSource records whether a cached height came from estimation or
// from a real layout measurement.
type HeightSource string

const (
	SourceEstimated HeightSource = "estimated"
	SourceMeasured  HeightSource = "measured"
)

// HeightEntry is one persisted height correction.
type HeightEntry struct {
	DocID   int64
	BlockID int64
	Height  float64
	Source  HeightSource
	At      time.Time
}

// Geometry describes the layout constants for one block type, in pixels.
type Geometry struct {
	FontSize      float64 `yaml:"font_size"`
	LineHeight    float64 `yaml:"line_height"`
	MarginTop     float64 `yaml:"margin_top"`
	MarginBottom  float64 `yaml:"margin_bottom"`
	PaddingTop    float64 `yaml:"padding_top"`
	PaddingBottom float64 `yaml:"padding_bottom"`
	BorderWidth   float64 `yaml:"border_width"`
}

// Frame returns the vertical pixels the geometry adds around content.
func (g Geometry) Frame() float64 {
	return g.MarginTop + g.MarginBottom + g.PaddingTop + g.PaddingBottom + 2*g.BorderWidth
}

// SearchMatch locates a query hit inside a block.
type SearchMatch struct {
	Index   int
	BlockID int64
	Line    int
	Column  int
	Excerpt string
}
