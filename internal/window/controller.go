// Package window orchestrates scrolling, fetching, and document surgery:
// the only place that talks to the backing block store while a document
// is open in the editor.
package window

import (
	"context"
	"log"
	"time"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/engine"
	"github.com/Paintersrp/anvil/internal/heights"
	"github.com/Paintersrp/anvil/internal/layout"
	"github.com/Paintersrp/anvil/internal/surgery"
	"github.com/Paintersrp/anvil/internal/viewport"
)

// State is the controller's fetch lifecycle.
type State int

const (
	// StateIdle: loaded window matches the last emitted range.
	StateIdle State = iota
	// StateFetching: a store fetch is in flight. Scrolling keeps being
	// processed, but no second fetch starts until this one resolves.
	StateFetching
)

func (s State) String() string {
	if s == StateFetching {
		return "fetching"
	}
	return "idle"
}

// applySuppression blinds the coordinator to the scroll events the
// content swap itself produces.
const applySuppression = 120 * time.Millisecond

// Store is the slice of the block store the controller consumes.
type Store interface {
	Blocks(ctx context.Context, docID int64, start, end int) ([]block.Content, error)
	UpdateBlockHeights(ctx context.Context, docID int64, entries []block.HeightEntry) error
}

// FetchRequest names a range the host should fetch from the store.
type FetchRequest struct {
	DocID int64
	Range block.Range
	Mode  viewport.Mode
}

// FetchResult pairs a request with the content the store returned.
type FetchResult struct {
	Request  FetchRequest
	Contents []block.Content
}

// Controller ties the coordinator, the surgical engine, and the store
// together for one open document. It is driven from the host's update
// loop: coordinator emissions stage fetch requests, the host executes
// them asynchronously, and results come back through ApplyFetch.
type Controller struct {
	store Store
	doc   *engine.Document
	coord *viewport.Coordinator
	est   *layout.Estimator
	loop  *heights.Loop

	docID int64
	metas []block.Meta
	index map[int64]int
	width float64

	state       State
	loaded      block.Range
	desired     block.Range
	desiredMode viewport.Mode
	next        *FetchRequest
	retry       bool
	dimmed      bool

	onDim func(bool)
	logf  func(string, ...any)
}

// NewController wires a controller for an opened document. metas is the
// store's full metadata; width the container width in pixels.
func NewController(
	s Store,
	doc *engine.Document,
	coord *viewport.Coordinator,
	est *layout.Estimator,
	loop *heights.Loop,
	docID int64,
	metas []block.Meta,
	width float64,
) *Controller {
	c := &Controller{
		store: s,
		doc:   doc,
		coord: coord,
		est:   est,
		loop:  loop,
		docID: docID,
		width: width,
		logf:  log.Printf,
	}
	c.setMetas(metas)
	coord.Subscribe(c.handleUpdate)
	loop.OnApplied(c.heightApplied)
	return c
}

// OnDim registers the flyover dim/undim hook.
func (c *Controller) OnDim(fn func(bool)) { c.onDim = fn }

// SetLogf overrides the background-failure logger.
func (c *Controller) SetLogf(fn func(string, ...any)) {
	if fn != nil {
		c.logf = fn
	}
}

func (c *Controller) State() State        { return c.state }
func (c *Controller) Loaded() block.Range { return c.loaded }
func (c *Controller) Metas() []block.Meta { return c.metas }

// InitialRequest computes the first-paint range and stages its fetch.
func (c *Controller) InitialRequest() *FetchRequest {
	u := c.coord.InitialUpdate()
	c.handleUpdate(u)
	return c.TakeFetch()
}

// TakeFetch hands the host the staged fetch request, if any. The host
// runs the store call off the update loop and feeds the result back via
// ApplyFetch or HandleFetchError.
func (c *Controller) TakeFetch() *FetchRequest {
	req := c.next
	c.next = nil
	return req
}

// Fetch executes a request against the store.
func (c *Controller) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	contents, err := c.store.Blocks(ctx, req.DocID, req.Range.Start, req.Range.End)
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{Request: req, Contents: contents}, nil
}

// ApplyFetch commits a resolved fetch. Stale responses, where the
// coordinator's desired range has moved on, are discarded; the still
// wanted range is re-fetched instead of ever applying outdated content.
func (c *Controller) ApplyFetch(res FetchResult) *FetchRequest {
	c.state = StateIdle

	if !res.Request.Range.Equal(c.desired) {
		// Superseded while in flight. Nothing was touched; chase the
		// current proposal.
		c.stageFetch()
		return c.TakeFetch()
	}

	target := res.Request.Range
	surgery.Shift(c.doc, c.loaded, target, target.Start, res.Contents)

	// Refine estimates with the real markdown now that we have it, and
	// push any changes into the prefix sums before the next frame.
	for i, content := range res.Contents {
		idx := target.Start + i
		h := c.est.EstimateHeight(content, c.width, idx == 0)
		c.coord.UpdateHeight(idx, h)
	}

	c.loaded = target
	c.coord.SetLoaded(target)
	c.coord.SuppressScrollFor(applySuppression)
	c.setDim(false)

	if !c.desired.Equal(c.loaded) {
		c.stageFetch()
	}
	return c.TakeFetch()
}

// HandleFetchError logs a failed fetch and arms a retry for the next
// settle event. The previously loaded content stays on screen; a failed
// fetch never leaves the editor partially applied.
func (c *Controller) HandleFetchError(req FetchRequest, err error) {
	c.state = StateIdle
	c.retry = true
	c.logf("anvil: fetch [%d,%d) failed, will retry on settle: %v",
		req.Range.Start, req.Range.End, err)
}

// OnSettle runs settle-time work: retrying a failed or skipped fetch.
func (c *Controller) OnSettle() *FetchRequest {
	if c.retry && !c.desired.Equal(c.loaded) {
		c.retry = false
		c.stageFetch()
		return c.TakeFetch()
	}
	c.retry = false
	return nil
}

// ObserveBlockHeight feeds one real rendered height into the correction
// loop. The loop's epsilon gate decides whether anything happens.
func (c *Controller) ObserveBlockHeight(blockID int64, height float64) {
	c.loop.ApplyDOMCorrection(blockID, height)
}

// UpdateMetas installs fresh authoritative metadata after the store
// rescanned a window edit. Heights are rebuilt from the cache, the
// loaded range is clamped, and the desired range reset to match.
func (c *Controller) UpdateMetas(metas []block.Meta) {
	c.setMetas(metas)
	c.loaded = c.loaded.Clamp(len(metas))
	c.coord.SetLoaded(c.loaded)
	c.desired = c.loaded
}

// ResetWindow tears down the materialized window and stages a fresh
// fetch for the current scroll position. Used after whole-document
// rewrites (source-mode saves, external reloads) where no node identity
// can survive anyway.
func (c *Controller) ResetWindow() *FetchRequest {
	c.doc.ReplaceRange(0, c.doc.Len(), nil, engine.TxMeta{ViewportShift: true})
	c.loaded = block.Range{}
	c.coord.SetLoaded(c.loaded)
	c.state = StateIdle
	c.retry = false

	u := c.coord.ComputeBlockRange(c.coord.ScrollTop())
	c.desired = u.Range
	c.desiredMode = viewport.ModeSmooth
	c.stageFetch()
	return c.TakeFetch()
}

func (c *Controller) setMetas(metas []block.Meta) {
	c.metas = metas
	c.index = make(map[int64]int, len(metas))
	for i, m := range metas {
		c.index[m.ID] = i
	}
	c.coord.SetBlocks(c.est.HeightsFor(metas, c.width))
}

// handleUpdate is the coordinator subscription: record the proposal and
// start a fetch unless one is already outstanding.
func (c *Controller) handleUpdate(u viewport.Update) {
	c.desired = u.Range
	c.desiredMode = u.Mode

	if u.Mode == viewport.ModeFlyover {
		c.setDim(true)
	}
	if c.state == StateIdle && !c.desired.Equal(c.loaded) {
		c.stageFetch()
	}
}

func (c *Controller) stageFetch() {
	if c.desired.Empty() || c.desired.Equal(c.loaded) {
		return
	}
	c.state = StateFetching
	c.next = &FetchRequest{DocID: c.docID, Range: c.desired, Mode: c.desiredMode}
}

func (c *Controller) heightApplied(blockID int64, height float64) {
	if idx, ok := c.index[blockID]; ok {
		c.coord.UpdateHeight(idx, height)
	}
}

func (c *Controller) setDim(on bool) {
	if c.dimmed == on {
		return
	}
	c.dimmed = on
	if c.onDim != nil {
		c.onDim(on)
	}
}
