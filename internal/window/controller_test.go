package window

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/engine"
	"github.com/Paintersrp/anvil/internal/heights"
	"github.com/Paintersrp/anvil/internal/layout"
	"github.com/Paintersrp/anvil/internal/viewport"
)

type fakeStore struct {
	fetches []block.Range
	fail    bool
	heights [][]block.HeightEntry
}

func (s *fakeStore) Blocks(ctx context.Context, docID int64, start, end int) ([]block.Content, error) {
	if s.fail {
		return nil, errors.New("store unavailable")
	}
	s.fetches = append(s.fetches, block.Range{Start: start, End: end})

	out := make([]block.Content, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, block.Content{
			Meta: block.Meta{
				ID:    int64(i + 1),
				Type:  block.TypeParagraph,
				Lines: 1,
			},
			Markdown: fmt.Sprintf("block %d\n\n", i),
		})
	}
	return out, nil
}

func (s *fakeStore) UpdateBlockHeights(ctx context.Context, docID int64, entries []block.HeightEntry) error {
	s.heights = append(s.heights, entries)
	return nil
}

func metasFor(n int) []block.Meta {
	metas := make([]block.Meta, n)
	for i := range metas {
		metas[i] = block.Meta{ID: int64(i + 1), Type: block.TypeParagraph, Lines: 1}
	}
	return metas
}

func newTestController(t *testing.T, n int) (*Controller, *fakeStore, *engine.Document, *viewport.Coordinator) {
	t.Helper()
	store := &fakeStore{}
	doc := engine.NewDocument()
	coord := viewport.NewCoordinator(280)
	est := layout.NewEstimator(nil)
	loop := heights.NewLoop(1, est, store)
	c := NewController(store, doc, coord, est, loop, 1, metasFor(n), 760)
	return c, store, doc, coord
}

func applyInitial(t *testing.T, c *Controller) FetchRequest {
	t.Helper()
	req := c.InitialRequest()
	if req == nil {
		t.Fatal("InitialRequest() staged nothing")
	}
	res, err := c.Fetch(context.Background(), *req)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if next := c.ApplyFetch(res); next != nil {
		t.Fatalf("ApplyFetch() chased %v on a fresh window", next.Range)
	}
	return *req
}

func TestInitialRequestCoversFirstPaint(t *testing.T) {
	c, _, _, _ := newTestController(t, 1000)

	req := c.InitialRequest()
	if req == nil {
		t.Fatal("InitialRequest() staged nothing")
	}
	if req.Range.Start != 0 {
		t.Fatalf("initial range %v does not start at 0", req.Range)
	}
	if req.Range.Len() > viewport.MaxLoadedBlocks {
		t.Fatalf("initial range %v exceeds max window", req.Range)
	}
	if c.State() != StateFetching {
		t.Fatalf("State() = %v, want fetching", c.State())
	}
}

func TestApplyFetchMaterializesWindow(t *testing.T) {
	c, _, doc, _ := newTestController(t, 1000)

	req := applyInitial(t, c)
	if doc.Len() != req.Range.Len() {
		t.Fatalf("doc has %d nodes, want %d", doc.Len(), req.Range.Len())
	}
	if !c.Loaded().Equal(req.Range) {
		t.Fatalf("Loaded() = %v, want %v", c.Loaded(), req.Range)
	}
	if c.State() != StateIdle {
		t.Fatalf("State() = %v, want idle", c.State())
	}
}

func TestStaleFetchDiscardedAndChased(t *testing.T) {
	c, _, doc, _ := newTestController(t, 1000)

	req := c.InitialRequest()
	res, err := c.Fetch(context.Background(), *req)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	// The viewport moved on while the fetch was in flight.
	moved := block.Range{Start: 500, End: 900}
	c.handleUpdate(viewport.Update{Range: moved, Mode: viewport.ModeSmooth})

	next := c.ApplyFetch(res)
	if doc.Len() != 0 {
		t.Fatalf("stale fetch applied %d nodes to the document", doc.Len())
	}
	if next == nil {
		t.Fatal("ApplyFetch() did not chase the moved range")
	}
	if !next.Range.Equal(moved) {
		t.Fatalf("chased range %v, want %v", next.Range, moved)
	}
}

func TestFetchErrorRetriesOnSettle(t *testing.T) {
	c, _, doc, _ := newTestController(t, 1000)
	c.SetLogf(func(string, ...any) {})

	req := c.InitialRequest()
	c.HandleFetchError(*req, errors.New("store unavailable"))

	if c.State() != StateIdle {
		t.Fatalf("State() = %v after failed fetch, want idle", c.State())
	}
	if doc.Len() != 0 {
		t.Fatalf("failed fetch left %d nodes", doc.Len())
	}

	retry := c.OnSettle()
	if retry == nil {
		t.Fatal("OnSettle() did not retry the failed fetch")
	}
	if !retry.Range.Equal(req.Range) {
		t.Fatalf("retry range %v, want %v", retry.Range, req.Range)
	}

	if c.OnSettle() != nil {
		t.Fatal("second OnSettle() retried again without a new failure")
	}
}

func TestObserveBlockHeightFeedsCoordinator(t *testing.T) {
	c, _, _, coord := newTestController(t, 1000)
	applyInitial(t, c)

	before := coord.TotalHeight()
	c.ObserveBlockHeight(1, 100)

	if got := coord.HeightOf(0); got != 100 {
		t.Fatalf("HeightOf(0) = %v after correction, want 100", got)
	}
	if coord.TotalHeight() == before {
		t.Fatal("total height unchanged after a correction")
	}

	// Under the correction threshold nothing moves.
	c.ObserveBlockHeight(1, 101)
	if got := coord.HeightOf(0); got != 100 {
		t.Fatalf("HeightOf(0) = %v after sub-epsilon correction, want 100", got)
	}
}

func TestFlyoverUpdateDims(t *testing.T) {
	c, _, _, _ := newTestController(t, 1000)

	var dims []bool
	c.OnDim(func(on bool) { dims = append(dims, on) })

	applyInitial(t, c)
	c.handleUpdate(viewport.Update{
		Range: block.Range{Start: 500, End: 900},
		Mode:  viewport.ModeFlyover,
	})
	if len(dims) == 0 || !dims[len(dims)-1] {
		t.Fatalf("dim state %v, want dimmed after flyover", dims)
	}

	req := c.TakeFetch()
	if req == nil {
		t.Fatal("flyover update staged no fetch")
	}
	res, err := c.Fetch(context.Background(), *req)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	c.ApplyFetch(res)
	if dims[len(dims)-1] {
		t.Fatal("still dimmed after the flyover fetch applied")
	}
}

func TestUpdateMetasClampsLoaded(t *testing.T) {
	c, _, _, _ := newTestController(t, 1000)
	applyInitial(t, c)

	c.UpdateMetas(metasFor(50))
	if got := c.Loaded(); got.End > 50 {
		t.Fatalf("Loaded() = %v after shrink to 50 blocks", got)
	}
	if len(c.Metas()) != 50 {
		t.Fatalf("Metas() has %d entries, want 50", len(c.Metas()))
	}
}

func TestResetWindowStagesFreshFetch(t *testing.T) {
	c, _, doc, _ := newTestController(t, 1000)
	applyInitial(t, c)

	req := c.ResetWindow()
	if doc.Len() != 0 {
		t.Fatalf("ResetWindow left %d nodes", doc.Len())
	}
	if !c.Loaded().Empty() {
		t.Fatalf("Loaded() = %v after reset, want empty", c.Loaded())
	}
	if req == nil {
		t.Fatal("ResetWindow staged no fetch")
	}
	if req.Range.Empty() {
		t.Fatalf("reset fetch range %v is empty", req.Range)
	}
}
