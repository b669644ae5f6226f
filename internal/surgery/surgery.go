// Package surgery computes the minimal two-step edits that shift the
// loaded window without destroying surviving nodes.
//
// A single full-content replace would force the document engine to
// re-match old nodes against new ones; when content changes at both ends
// at once nothing matches and every node is rebuilt. Shifting one end
// per phase keeps every surviving block's node identity intact: the
// deletion touches only a contiguous run at one edge, and the insertion
// only extends the other.
package surgery

import (
	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/engine"
)

// Op is a phase's edit kind.
type Op int

const (
	OpDelete Op = iota
	OpInsert
)

// Phase is one single-end edit. For deletes, From/To index nodes in the
// document at the time the phase runs. For inserts, At is the node index
// to splice at and Blocks is the absolute block range whose content goes
// in.
type Phase struct {
	Op     Op
	From   int
	To     int
	At     int
	Blocks block.Range
}

// Plan is the ordered phase list shifting old to next.
type Plan struct {
	Phases []Phase
}

// PlanShift computes the phases that turn the window old into next.
// Degenerate phases (nothing to remove, nothing to add) are omitted; a
// disjoint shift degrades to full replacement, which is the best the
// engine can do when no block survives anyway.
func PlanShift(old, next block.Range) Plan {
	var p Plan
	if next.Equal(old) || next.Empty() && old.Empty() {
		return p
	}

	overlap := old.Intersect(next)
	if overlap.Empty() {
		p.Phases = append(p.Phases,
			Phase{Op: OpDelete, From: 0, To: old.Len()},
			Phase{Op: OpInsert, At: 0, Blocks: next},
		)
		return p
	}

	// Trim first so insert indices are computed against the shorter
	// document. Each phase touches exactly one end.
	if drop := next.Start - old.Start; drop > 0 {
		p.Phases = append(p.Phases, Phase{Op: OpDelete, From: 0, To: drop})
	}
	if drop := old.End - next.End; drop > 0 {
		kept := old.Len() - max(next.Start-old.Start, 0)
		p.Phases = append(p.Phases, Phase{Op: OpDelete, From: kept - drop, To: kept})
	}

	if add := old.Start - next.Start; add > 0 {
		p.Phases = append(p.Phases, Phase{
			Op:     OpInsert,
			At:     0,
			Blocks: block.Range{Start: next.Start, End: old.Start},
		})
	}
	if add := next.End - old.End; add > 0 {
		p.Phases = append(p.Phases, Phase{
			Op:     OpInsert,
			At:     -1, // append
			Blocks: block.Range{Start: old.End, End: next.End},
		})
	}
	return p
}

// Apply runs a plan against the document. contents must cover every
// block index the plan's insert phases name; lookup is by absolute block
// index via base, the index of contents[0]. Inserted content goes
// through the same parse pipeline as a full load. All edits are tagged
// as viewport shifts and kept out of history.
func Apply(doc *engine.Document, plan Plan, base int, contents []block.Content) {
	meta := engine.TxMeta{ViewportShift: true, AddToHistory: false}
	for _, ph := range plan.Phases {
		switch ph.Op {
		case OpDelete:
			if ph.To <= ph.From {
				continue
			}
			doc.ReplaceRange(ph.From, ph.To, nil, meta)
		case OpInsert:
			slice := sliceContents(base, contents, ph.Blocks)
			if len(slice) == 0 {
				continue
			}
			at := ph.At
			if at < 0 {
				at = doc.Len()
			}
			doc.ReplaceRange(at, at, engine.Parse(slice), meta)
		}
	}
}

// Shift plans and applies in one step, returning the plan for callers
// that want to inspect what happened.
func Shift(doc *engine.Document, old, next block.Range, base int, contents []block.Content) Plan {
	plan := PlanShift(old, next)
	Apply(doc, plan, base, contents)
	return plan
}

func sliceContents(base int, contents []block.Content, r block.Range) []block.Content {
	lo := r.Start - base
	hi := r.End - base
	if lo < 0 {
		lo = 0
	}
	if hi > len(contents) {
		hi = len(contents)
	}
	if hi <= lo {
		return nil
	}
	return contents[lo:hi]
}
