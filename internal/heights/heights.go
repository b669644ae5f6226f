// Package heights batches DOM-measured height corrections and persists
// them without blocking the scroll path.
package heights

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/layout"
)

// Epsilon is the pixel threshold below which a measured height is
// considered equal to the cached one. Corrections apply at exactly the
// threshold: |measured-cached| >= Epsilon.
const Epsilon = 2.0

// FlushDelay debounces batch writes so a single reflow's burst of
// corrections coalesces into one store call.
const FlushDelay = 500 * time.Millisecond

// maxPending bounds the retry queue. Past the bound the oldest entries
// are dropped from persistence; the in-memory cache already holds their
// corrected values, so only durability is best-effort.
const maxPending = 4096

// ErrClosed signals the loop has been shut down.
var ErrClosed = errors.New("height loop closed")

// Store is the slice of the block store the loop needs.
type Store interface {
	UpdateBlockHeights(ctx context.Context, docID int64, entries []block.HeightEntry) error
}

// Loop applies measured heights to the estimator cache synchronously
// and flushes them to the store on a debounce timer. Delivery is
// at-least-once: a failed flush requeues its entries, and duplicate
// writes of the same height are idempotent at the store.
type Loop struct {
	mu        sync.Mutex
	docID     int64
	estimator *layout.Estimator
	store     Store

	pending   map[int64]block.HeightEntry
	order     []int64
	dirtyAt   time.Time
	onApplied func(blockID int64, height float64)
	closed    bool

	now func() time.Time
}

func NewLoop(docID int64, est *layout.Estimator, store Store) *Loop {
	return &Loop{
		docID:     docID,
		estimator: est,
		store:     store,
		pending:   make(map[int64]block.HeightEntry),
		now:       time.Now,
	}
}

// OnApplied registers a callback fired synchronously whenever a
// correction lands in the cache, so the coordinator's prefix sums can be
// updated in the same turn.
func (l *Loop) OnApplied(fn func(blockID int64, height float64)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onApplied = fn
}

// ApplyDOMCorrection records a real rendered height for a block. Within
// Epsilon of the cached value it is a no-op, avoiding redundant writes.
// Otherwise the estimator cache updates immediately and the entry joins
// the debounced flush queue. Reports whether the correction applied.
func (l *Loop) ApplyDOMCorrection(blockID int64, height float64) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}

	if cached, ok := l.estimator.Height(blockID); ok {
		if math.Abs(height-cached) < Epsilon {
			l.mu.Unlock()
			return false
		}
	}

	l.estimator.SetMeasured(blockID, height)
	l.enqueueLocked(block.HeightEntry{
		DocID:   l.docID,
		BlockID: blockID,
		Height:  height,
		Source:  block.SourceMeasured,
		At:      l.now(),
	})
	fn := l.onApplied
	l.mu.Unlock()

	if fn != nil {
		fn(blockID, height)
	}
	return true
}

// FlushDue reports whether the debounce window has elapsed with entries
// waiting.
func (l *Loop) FlushDue() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0 && l.now().Sub(l.dirtyAt) >= FlushDelay
}

// Pending returns the number of queued corrections.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Flush writes the queued batch to the store. On failure every entry
// returns to the queue for the next debounce cycle.
func (l *Loop) Flush(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return nil
	}
	batch := make([]block.HeightEntry, 0, len(l.pending))
	for _, id := range l.order {
		if e, ok := l.pending[id]; ok {
			batch = append(batch, e)
		}
	}
	l.pending = make(map[int64]block.HeightEntry)
	l.order = l.order[:0]
	l.mu.Unlock()

	if err := l.store.UpdateBlockHeights(ctx, l.docID, batch); err != nil {
		l.mu.Lock()
		for _, e := range batch {
			l.enqueueLocked(e)
		}
		l.mu.Unlock()
		return err
	}
	return nil
}

// Close flushes whatever is queued and stops accepting corrections.
func (l *Loop) Close(ctx context.Context) error {
	err := l.Flush(ctx)
	l.mu.Lock()
	l.closed = true
	l.pending = nil
	l.order = nil
	l.mu.Unlock()
	return err
}

func (l *Loop) enqueueLocked(e block.HeightEntry) {
	if _, ok := l.pending[e.BlockID]; !ok {
		l.order = append(l.order, e.BlockID)
	}
	l.pending[e.BlockID] = e
	l.dirtyAt = l.now()

	for len(l.pending) > maxPending {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.pending, oldest)
	}
}
