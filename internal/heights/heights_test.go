package heights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/layout"
)

type fakeStore struct {
	batches [][]block.HeightEntry
	fail    bool
}

func (s *fakeStore) UpdateBlockHeights(ctx context.Context, docID int64, entries []block.HeightEntry) error {
	if s.fail {
		return errors.New("store unavailable")
	}
	s.batches = append(s.batches, entries)
	return nil
}

func newTestLoop(t *testing.T) (*Loop, *fakeStore, *layout.Estimator, *time.Time) {
	t.Helper()
	est := layout.NewEstimator(nil)
	store := &fakeStore{}
	l := NewLoop(7, est, store)
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, store, est, &clock
}

func TestCorrectionBelowEpsilonIsNoOp(t *testing.T) {
	l, _, est, _ := newTestLoop(t)
	est.SetMeasured(1, 100)

	if l.ApplyDOMCorrection(1, 101.5) {
		t.Fatal("correction under epsilon applied")
	}
	if h, _ := est.Height(1); h != 100 {
		t.Fatalf("cache moved to %v, want 100", h)
	}
	if l.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", l.Pending())
	}
}

func TestCorrectionAtExactlyEpsilonApplies(t *testing.T) {
	l, _, est, _ := newTestLoop(t)
	est.SetMeasured(1, 100)

	if !l.ApplyDOMCorrection(1, 102) {
		t.Fatal("correction at exactly epsilon did not apply")
	}
	if h, _ := est.Height(1); h != 102 {
		t.Fatalf("cache = %v, want 102", h)
	}
	if l.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", l.Pending())
	}
}

func TestFirstCorrectionAlwaysApplies(t *testing.T) {
	l, _, est, _ := newTestLoop(t)

	if !l.ApplyDOMCorrection(9, 31) {
		t.Fatal("correction with no cached height did not apply")
	}
	if h, ok := est.Height(9); !ok || h != 31 {
		t.Fatalf("Height(9) = %v, %v; want 31, true", h, ok)
	}
	if src, _ := est.Source(9); src != block.SourceMeasured {
		t.Fatalf("Source(9) = %v, want measured", src)
	}
}

func TestOnAppliedFiresSynchronously(t *testing.T) {
	l, _, _, _ := newTestLoop(t)

	var gotID int64
	var gotHeight float64
	l.OnApplied(func(id int64, h float64) { gotID, gotHeight = id, h })

	l.ApplyDOMCorrection(3, 42)
	if gotID != 3 || gotHeight != 42 {
		t.Fatalf("OnApplied got (%d, %v), want (3, 42)", gotID, gotHeight)
	}
}

func TestFlushDueDebounces(t *testing.T) {
	l, _, _, clock := newTestLoop(t)

	l.ApplyDOMCorrection(1, 50)
	if l.FlushDue() {
		t.Fatal("flush due immediately after a correction")
	}

	*clock = clock.Add(FlushDelay)
	if !l.FlushDue() {
		t.Fatal("flush not due after the debounce window")
	}
}

func TestCorrectionsCoalescePerBlock(t *testing.T) {
	l, store, _, _ := newTestLoop(t)

	l.ApplyDOMCorrection(1, 50)
	l.ApplyDOMCorrection(1, 60)
	l.ApplyDOMCorrection(2, 30)

	if l.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", l.Pending())
	}
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	if len(store.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(store.batches))
	}
	batch := store.batches[0]
	if len(batch) != 2 {
		t.Fatalf("batch has %d entries, want 2", len(batch))
	}
	if batch[0].BlockID != 1 || batch[0].Height != 60 {
		t.Fatalf("entry 0 = %+v, want block 1 at height 60", batch[0])
	}
	if batch[1].BlockID != 2 || batch[1].Height != 30 {
		t.Fatalf("entry 1 = %+v, want block 2 at height 30", batch[1])
	}
}

func TestFailedFlushRequeues(t *testing.T) {
	l, store, _, _ := newTestLoop(t)
	store.fail = true

	l.ApplyDOMCorrection(1, 50)
	if err := l.Flush(context.Background()); err == nil {
		t.Fatal("Flush() succeeded against a failing store")
	}
	if l.Pending() != 1 {
		t.Fatalf("Pending() = %d after failed flush, want 1", l.Pending())
	}

	store.fail = false
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("retry Flush() error: %v", err)
	}
	if l.Pending() != 0 {
		t.Fatalf("Pending() = %d after retry, want 0", l.Pending())
	}
	if len(store.batches) != 1 || store.batches[0][0].BlockID != 1 {
		t.Fatalf("retry did not deliver the requeued entry: %+v", store.batches)
	}
}

func TestCloseFlushesAndRejectsFurtherWork(t *testing.T) {
	l, store, _, _ := newTestLoop(t)

	l.ApplyDOMCorrection(1, 50)
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if len(store.batches) != 1 {
		t.Fatalf("Close() flushed %d batches, want 1", len(store.batches))
	}

	if l.ApplyDOMCorrection(2, 60) {
		t.Fatal("correction applied after Close")
	}
	if err := l.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Flush() after Close = %v, want ErrClosed", err)
	}
}
