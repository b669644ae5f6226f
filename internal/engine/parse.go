package engine

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Paintersrp/anvil/internal/block"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Parse turns fetched block content into document nodes. Both full loads
// and surgical shifts go through here, so the window ends up with the
// same nodes either way for the same block set.
func Parse(contents []block.Content) []*Node {
	nodes := make([]*Node, 0, len(contents))
	for _, c := range contents {
		nodes = append(nodes, &Node{
			BlockID:  c.ID,
			Type:     normalizeType(c),
			Markdown: c.Markdown,
		})
	}
	return nodes
}

// normalizeType re-derives the block's type tag from its markdown. The
// store's scanner usually got it right, but a window edit can hand us
// content whose structure changed (a paragraph promoted to a heading)
// before the store has rescanned.
func normalizeType(c block.Content) block.Type {
	src := []byte(c.Markdown)
	doc := md.Parser().Parse(text.NewReader(src))
	child := doc.FirstChild()
	if child == nil {
		return c.Type
	}
	switch child.Kind() {
	case ast.KindHeading:
		return block.TypeHeading
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return block.TypeCode
	case ast.KindList:
		return block.TypeList
	case ast.KindBlockquote:
		return block.TypeQuote
	case ast.KindThematicBreak:
		return block.TypeBreak
	case ast.KindHTMLBlock:
		return block.TypeHTML
	case ast.KindParagraph:
		return block.TypeParagraph
	case extast.KindTable:
		return block.TypeTable
	}
	return c.Type
}
