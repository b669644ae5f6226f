package vault

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Paintersrp/anvil/internal/block"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// scanned is one raw block before an ID is assigned. Markdown keeps the
// block's trailing blank lines so concatenating every block reproduces
// the source exactly; Lines and Chars describe only the content portion.
type scanned struct {
	typ      block.Type
	level    int
	markdown string
	lines    int
	chars    int
}

// scanBlocks splits markdown into blocks: blank-line separated chunks,
// with fenced code kept whole and headings always standing alone.
func scanBlocks(source string) []scanned {
	lines := splitLines(source)

	var blocks []scanned
	var chunk []string
	trailingBlanks := 0

	flush := func() {
		if len(chunk) == 0 {
			return
		}
		blocks = append(blocks, classify(chunk))
		chunk = nil
		trailingBlanks = 0
	}

	inFence := false
	fenceMarker := ""
	prevHeading := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inFence {
			chunk = append(chunk, line)
			if strings.HasPrefix(trimmed, fenceMarker) {
				inFence = false
			}
			continue
		}

		if trimmed == "" {
			if len(chunk) == 0 {
				// Leading file blanks ride with the first block.
				chunk = append(chunk, line)
				continue
			}
			chunk = append(chunk, line)
			trailingBlanks++
			prevHeading = false
			continue
		}

		heading := strings.HasPrefix(trimmed, "#")
		if len(chunk) > 0 && (trailingBlanks > 0 || heading || prevHeading) {
			flush()
		}
		chunk = append(chunk, line)
		trailingBlanks = 0
		prevHeading = heading

		if marker, ok := fenceOpen(trimmed); ok {
			inFence = true
			fenceMarker = marker
		}
	}
	flush()

	return blocks
}

// reassemble is the inverse of scanBlocks.
func reassemble(blocks []block.Content) string {
	var b strings.Builder
	for _, c := range blocks {
		b.WriteString(c.Markdown)
	}
	return b.String()
}

func classify(chunk []string) scanned {
	markdown := strings.Join(chunk, "")
	content := strings.TrimRight(markdown, " \t\n")

	s := scanned{
		markdown: markdown,
		lines:    strings.Count(content, "\n") + 1,
		chars:    utf8.RuneCountInString(content),
	}
	if content == "" {
		s.typ = block.TypeParagraph
		s.lines = 1
		return s
	}

	doc := md.Parser().Parse(text.NewReader([]byte(content)))
	child := doc.FirstChild()
	if child == nil {
		s.typ = block.TypeParagraph
		return s
	}
	switch child.Kind() {
	case ast.KindHeading:
		s.typ = block.TypeHeading
		if h, ok := child.(*ast.Heading); ok {
			s.level = h.Level
		}
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		s.typ = block.TypeCode
	case ast.KindList:
		s.typ = block.TypeList
	case ast.KindBlockquote:
		s.typ = block.TypeQuote
	case ast.KindThematicBreak:
		s.typ = block.TypeBreak
	case ast.KindHTMLBlock:
		s.typ = block.TypeHTML
	case extast.KindTable:
		s.typ = block.TypeTable
	default:
		s.typ = block.TypeParagraph
	}
	return s
}

// splitLines splits after every newline, keeping the terminators.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			return lines
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
		if s == "" {
			return lines
		}
	}
}

func fenceOpen(trimmed string) (string, bool) {
	for _, marker := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, marker) {
			return marker, true
		}
	}
	return "", false
}
