// Package vault is the filesystem-backed block store. It owns full
// document content, scans markdown into stable-ID blocks, and serves the
// windowed editor's fetch, rescan, and persistence calls.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/pathutil"
)

var (
	// ErrUnknownDocument signals an operation against a closed or never
	// opened document id.
	ErrUnknownDocument = errors.New("vault: unknown document")
	// ErrInvalidRange signals a block range outside the document.
	ErrInvalidRange = errors.New("vault: invalid block range")
)

// Document is what Open hands back: metadata for every block plus any
// persisted measured heights, but no markdown.
type Document struct {
	ID      int64
	Path    string
	Rel     string
	Metas   []block.Meta
	Heights map[int64]float64
}

type document struct {
	id     int64
	path   string
	rel    string
	blocks []block.Content
	nextID int64
	dirty  bool
}

// Vault serves block operations for documents under one vault directory.
type Vault struct {
	mu      sync.Mutex
	dir     string
	heights *HeightDB
	docs    map[int64]*document
	nextDoc int64

	now func() time.Time
}

// New builds a vault rooted at dir. heights may be nil, in which case
// height persistence is disabled and corrections live only in memory.
func New(dir string, heights *HeightDB) *Vault {
	return &Vault{
		dir:     pathutil.NormalizePath(dir),
		heights: heights,
		docs:    make(map[int64]*document),
		now:     time.Now,
	}
}

// Open reads and scans a markdown file, assigns stable block IDs, and
// returns full metadata with no content.
func (v *Vault) Open(path string) (*Document, error) {
	normalized := pathutil.NormalizePath(path)
	if !filepath.IsAbs(normalized) {
		normalized = filepath.Join(v.dir, normalized)
	}

	raw, err := os.ReadFile(normalized)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	rel, err := pathutil.VaultRelative(v.dir, normalized)
	if err != nil {
		rel = filepath.Base(normalized)
	}

	v.mu.Lock()
	v.nextDoc++
	doc := &document{
		id:   v.nextDoc,
		path: normalized,
		rel:  rel,
	}
	for _, s := range scanBlocks(string(raw)) {
		doc.nextID++
		doc.blocks = append(doc.blocks, block.Content{
			Meta: block.Meta{
				ID:    doc.nextID,
				Type:  s.typ,
				Level: s.level,
				Lines: s.lines,
				Chars: s.chars,
			},
			Markdown: s.markdown,
		})
	}
	v.docs[doc.id] = doc
	v.mu.Unlock()

	var persisted map[int64]float64
	if v.heights != nil {
		if persisted, err = v.heights.Load(rel); err != nil {
			// Height persistence is best-effort; a broken sidecar must
			// not stop a document from opening.
			persisted = nil
		}
	}

	return &Document{
		ID:      doc.id,
		Path:    normalized,
		Rel:     rel,
		Metas:   metasOf(doc.blocks),
		Heights: persisted,
	}, nil
}

// Blocks returns markdown and type for blocks [start, end).
func (v *Vault) Blocks(ctx context.Context, docID int64, start, end int) ([]block.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	doc, ok := v.docs[docID]
	if !ok {
		return nil, ErrUnknownDocument
	}
	if start < 0 || end > len(doc.blocks) || start > end {
		return nil, fmt.Errorf("%w: [%d,%d) of %d", ErrInvalidRange, start, end, len(doc.blocks))
	}

	out := make([]block.Content, end-start)
	copy(out, doc.blocks[start:end])
	return out, nil
}

// Metas returns current metadata for the whole document.
func (v *Vault) Metas(docID int64) ([]block.Meta, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc, ok := v.docs[docID]
	if !ok {
		return nil, ErrUnknownDocument
	}
	return metasOf(doc.blocks), nil
}

// UpdateVisibleWindow splices edited markdown over blocks [start, end)
// and rescans. Blocks outside the window keep their IDs; inside it, a
// rescanned block keeps its old ID only when its content survived
// unchanged, so splits and merges mint fresh IDs. Returns authoritative
// metadata for the whole document; the block count may have changed.
func (v *Vault) UpdateVisibleWindow(docID int64, start, end int, markdown string) ([]block.Meta, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc, ok := v.docs[docID]
	if !ok {
		return nil, ErrUnknownDocument
	}
	if start < 0 || end > len(doc.blocks) || start > end {
		return nil, fmt.Errorf("%w: [%d,%d) of %d", ErrInvalidRange, start, end, len(doc.blocks))
	}

	rescanned := scanBlocks(markdown)
	old := doc.blocks[start:end]

	// Reuse IDs for window blocks whose markdown is unchanged. Each old
	// ID is handed out at most once.
	used := make(map[int64]bool, len(old))
	window := make([]block.Content, 0, len(rescanned))
	for _, s := range rescanned {
		c := block.Content{
			Meta: block.Meta{
				Type:  s.typ,
				Level: s.level,
				Lines: s.lines,
				Chars: s.chars,
			},
			Markdown: s.markdown,
		}
		for _, o := range old {
			if !used[o.ID] && o.Markdown == s.markdown {
				c.ID = o.ID
				used[o.ID] = true
				break
			}
		}
		if c.ID == 0 {
			doc.nextID++
			c.ID = doc.nextID
		}
		window = append(window, c)
	}

	next := make([]block.Content, 0, start+len(window)+len(doc.blocks)-end)
	next = append(next, doc.blocks[:start]...)
	next = append(next, window...)
	next = append(next, doc.blocks[end:]...)
	doc.blocks = next
	doc.dirty = true

	return metasOf(doc.blocks), nil
}

// UpdateBlockHeights persists a batch of measured heights.
func (v *Vault) UpdateBlockHeights(ctx context.Context, docID int64, entries []block.HeightEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	doc, ok := v.docs[docID]
	heights := v.heights
	v.mu.Unlock()

	if !ok {
		return ErrUnknownDocument
	}
	if heights == nil {
		return nil
	}
	return heights.Put(doc.rel, entries)
}

// Save reassembles the blocks and writes the file atomically. No-op
// when the document is not dirty.
func (v *Vault) Save(docID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc, ok := v.docs[docID]
	if !ok {
		return ErrUnknownDocument
	}
	if !doc.dirty {
		return nil
	}

	tmp := doc.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(reassemble(doc.blocks)), 0o644); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := os.Rename(tmp, doc.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save document: %w", err)
	}
	doc.dirty = false
	return nil
}

// Search runs a case-insensitive substring search over block markdown.
func (v *Vault) Search(docID int64, query string) ([]block.SearchMatch, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc, ok := v.docs[docID]
	if !ok {
		return nil, ErrUnknownDocument
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var matches []block.SearchMatch
	for i, c := range doc.blocks {
		idx := strings.Index(strings.ToLower(c.Markdown), needle)
		if idx < 0 {
			continue
		}
		before := c.Markdown[:idx]
		line := strings.Count(before, "\n")
		col := idx
		if nl := strings.LastIndexByte(before, '\n'); nl >= 0 {
			col = idx - nl - 1
		}
		matches = append(matches, block.SearchMatch{
			Index:   i,
			BlockID: c.ID,
			Line:    line,
			Column:  col,
			Excerpt: excerpt(c.Markdown, idx, len(needle)),
		})
	}
	return matches, nil
}

// Dirty reports whether a document has unsaved window edits.
func (v *Vault) Dirty(docID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	doc, ok := v.docs[docID]
	return ok && doc.dirty
}

// Close drops a document's in-memory state.
func (v *Vault) Close(docID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.docs[docID]; !ok {
		return ErrUnknownDocument
	}
	delete(v.docs, docID)
	return nil
}

// Dir returns the vault root.
func (v *Vault) Dir() string { return v.dir }

func metasOf(blocks []block.Content) []block.Meta {
	metas := make([]block.Meta, len(blocks))
	for i, c := range blocks {
		metas[i] = c.Meta
	}
	return metas
}

func excerpt(s string, idx, n int) string {
	start := idx - 20
	if start < 0 {
		start = 0
	}
	end := idx + n + 20
	if end > len(s) {
		end = len(s)
	}
	return strings.TrimSpace(strings.ReplaceAll(s[start:end], "\n", " "))
}
