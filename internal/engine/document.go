// Package engine is the rich-text document model the windowed editor
// materializes blocks into. The model is deliberately small: ordered
// nodes with stable identity, range replacement, and synchronous
// transaction listeners. The host renders nodes however it likes; the
// windowing core only cares that untouched nodes keep their identity
// across edits.
package engine

import "github.com/Paintersrp/anvil/internal/block"

// Node is one materialized block. Pointer identity is the contract:
// a node that survives a transaction is the same *Node afterwards, so
// any rendering state hung off it survives too.
type Node struct {
	BlockID  int64
	Type     block.Type
	Markdown string

	// view caches the rendered form; invalidated when content changes.
	view    string
	hasView bool
}

// View returns the cached rendered form, if any.
func (n *Node) View() (string, bool) { return n.view, n.hasView }

// SetView caches a rendered form on the node.
func (n *Node) SetView(v string) { n.view, n.hasView = v, true }

// ClearView drops the cached rendered form.
func (n *Node) ClearView() { n.view, n.hasView = "", false }

// TxMeta rides along with a transaction so listeners can tell
// structural viewport shifts from genuine user edits.
type TxMeta struct {
	// ViewportShift marks a window-maintenance edit. Listeners doing
	// expensive per-edit work (menus, spellcheck) skip these.
	ViewportShift bool
	// AddToHistory is false for shifts, keeping them out of undo.
	AddToHistory bool
}

// Transaction describes one applied range replacement.
type Transaction struct {
	From     int
	To       int
	Inserted int
	Meta     TxMeta
}

// Document is an ordered node list with transaction listeners.
type Document struct {
	nodes     []*Node
	listeners []func(Transaction)
}

func NewDocument() *Document {
	return &Document{}
}

func (d *Document) Len() int { return len(d.nodes) }

func (d *Document) Node(i int) *Node {
	if i < 0 || i >= len(d.nodes) {
		return nil
	}
	return d.nodes[i]
}

// Nodes returns the live node slice. Callers must not mutate it.
func (d *Document) Nodes() []*Node { return d.nodes }

// OnTransaction registers a listener. Listeners are invoked
// synchronously, in registration order, within the same scheduling turn
// as the mutation.
func (d *Document) OnTransaction(fn func(Transaction)) {
	d.listeners = append(d.listeners, fn)
}

// ReplaceRange splices nodes over [from, to). Out-of-range bounds are
// clamped. A replacement that removes nothing and inserts nothing
// dispatches no transaction.
func (d *Document) ReplaceRange(from, to int, nodes []*Node, meta TxMeta) {
	if from < 0 {
		from = 0
	}
	if to > len(d.nodes) {
		to = len(d.nodes)
	}
	if to < from {
		to = from
	}
	if to == from && len(nodes) == 0 {
		return
	}

	next := make([]*Node, 0, len(d.nodes)-(to-from)+len(nodes))
	next = append(next, d.nodes[:from]...)
	next = append(next, nodes...)
	next = append(next, d.nodes[to:]...)
	d.nodes = next

	tx := Transaction{From: from, To: to, Inserted: len(nodes), Meta: meta}
	for _, fn := range d.listeners {
		fn(tx)
	}
}

// Markdown reassembles the document's source in order.
func (d *Document) Markdown() string {
	var out []byte
	for _, n := range d.nodes {
		out = append(out, n.Markdown...)
	}
	return string(out)
}
