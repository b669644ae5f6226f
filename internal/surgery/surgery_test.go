package surgery

import (
	"fmt"
	"testing"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/engine"
)

func paragraphs(start, end int) []block.Content {
	out := make([]block.Content, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, block.Content{
			Meta: block.Meta{
				ID:    int64(i + 1),
				Type:  block.TypeParagraph,
				Lines: 1,
			},
			Markdown: fmt.Sprintf("paragraph %d\n\n", i),
		})
	}
	return out
}

func loadWindow(t *testing.T, r block.Range) *engine.Document {
	t.Helper()
	doc := engine.NewDocument()
	doc.ReplaceRange(0, 0, engine.Parse(paragraphs(r.Start, r.End)), engine.TxMeta{})
	return doc
}

func TestPlanShiftDown(t *testing.T) {
	plan := PlanShift(block.Range{Start: 0, End: 10}, block.Range{Start: 5, End: 15})

	want := []Phase{
		{Op: OpDelete, From: 0, To: 5},
		{Op: OpInsert, At: -1, Blocks: block.Range{Start: 10, End: 15}},
	}
	if len(plan.Phases) != len(want) {
		t.Fatalf("got %d phases, want %d: %+v", len(plan.Phases), len(want), plan.Phases)
	}
	for i, ph := range plan.Phases {
		if ph != want[i] {
			t.Fatalf("phase %d = %+v, want %+v", i, ph, want[i])
		}
	}
}

func TestPlanShiftUp(t *testing.T) {
	plan := PlanShift(block.Range{Start: 10, End: 20}, block.Range{Start: 5, End: 15})

	want := []Phase{
		{Op: OpDelete, From: 5, To: 10},
		{Op: OpInsert, At: 0, Blocks: block.Range{Start: 5, End: 10}},
	}
	if len(plan.Phases) != len(want) {
		t.Fatalf("got %d phases, want %d: %+v", len(plan.Phases), len(want), plan.Phases)
	}
	for i, ph := range plan.Phases {
		if ph != want[i] {
			t.Fatalf("phase %d = %+v, want %+v", i, ph, want[i])
		}
	}
}

func TestPlanShiftShrinkBothEnds(t *testing.T) {
	plan := PlanShift(block.Range{Start: 0, End: 20}, block.Range{Start: 5, End: 15})

	want := []Phase{
		{Op: OpDelete, From: 0, To: 5},
		{Op: OpDelete, From: 10, To: 15},
	}
	if len(plan.Phases) != len(want) {
		t.Fatalf("got %d phases, want %d: %+v", len(plan.Phases), len(want), plan.Phases)
	}
	for i, ph := range plan.Phases {
		if ph != want[i] {
			t.Fatalf("phase %d = %+v, want %+v", i, ph, want[i])
		}
	}
}

func TestPlanShiftIdenticalIsEmpty(t *testing.T) {
	r := block.Range{Start: 3, End: 9}
	if plan := PlanShift(r, r); len(plan.Phases) != 0 {
		t.Fatalf("identical ranges produced phases: %+v", plan.Phases)
	}
}

func TestPlanShiftDisjointReplacesAll(t *testing.T) {
	plan := PlanShift(block.Range{Start: 0, End: 10}, block.Range{Start: 500, End: 510})

	want := []Phase{
		{Op: OpDelete, From: 0, To: 10},
		{Op: OpInsert, At: 0, Blocks: block.Range{Start: 500, End: 510}},
	}
	if len(plan.Phases) != len(want) {
		t.Fatalf("got %d phases, want %d: %+v", len(plan.Phases), len(want), plan.Phases)
	}
	for i, ph := range plan.Phases {
		if ph != want[i] {
			t.Fatalf("phase %d = %+v, want %+v", i, ph, want[i])
		}
	}
}

func TestShiftPreservesSurvivingNodeIdentity(t *testing.T) {
	old := block.Range{Start: 0, End: 10}
	next := block.Range{Start: 5, End: 15}
	doc := loadWindow(t, old)

	survivors := make([]*engine.Node, 0, 5)
	for i := 5; i < 10; i++ {
		survivors = append(survivors, doc.Node(i))
	}

	Shift(doc, old, next, next.Start, paragraphs(next.Start, next.End))

	if doc.Len() != next.Len() {
		t.Fatalf("doc has %d nodes, want %d", doc.Len(), next.Len())
	}
	for i, want := range survivors {
		if got := doc.Node(i); got != want {
			t.Fatalf("node %d lost identity: got %p, want %p", i, got, want)
		}
	}
}

func TestShiftMatchesFullLoad(t *testing.T) {
	cases := []struct {
		name      string
		old, next block.Range
	}{
		{"down", block.Range{Start: 0, End: 10}, block.Range{Start: 5, End: 15}},
		{"up", block.Range{Start: 10, End: 20}, block.Range{Start: 5, End: 15}},
		{"grow both", block.Range{Start: 8, End: 12}, block.Range{Start: 5, End: 15}},
		{"shrink both", block.Range{Start: 0, End: 20}, block.Range{Start: 5, End: 15}},
		{"disjoint", block.Range{Start: 0, End: 10}, block.Range{Start: 30, End: 40}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := loadWindow(t, tc.old)
			Shift(doc, tc.old, tc.next, tc.next.Start, paragraphs(tc.next.Start, tc.next.End))

			want := loadWindow(t, tc.next)
			if got := doc.Markdown(); got != want.Markdown() {
				t.Fatalf("shifted window diverged from full load:\ngot:\n%s\nwant:\n%s",
					got, want.Markdown())
			}
		})
	}
}

func TestShiftEditsAreViewportTagged(t *testing.T) {
	old := block.Range{Start: 0, End: 10}
	doc := loadWindow(t, old)

	var txs []engine.Transaction
	doc.OnTransaction(func(tx engine.Transaction) { txs = append(txs, tx) })

	next := block.Range{Start: 5, End: 15}
	Shift(doc, old, next, next.Start, paragraphs(next.Start, next.End))

	if len(txs) == 0 {
		t.Fatal("shift dispatched no transactions")
	}
	for i, tx := range txs {
		if !tx.Meta.ViewportShift {
			t.Fatalf("transaction %d missing viewport-shift tag: %+v", i, tx)
		}
		if tx.Meta.AddToHistory {
			t.Fatalf("transaction %d added to history: %+v", i, tx)
		}
	}
}
