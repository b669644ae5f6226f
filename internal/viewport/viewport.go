package viewport

import (
	"math"
	"sort"
	"time"

	"github.com/Paintersrp/anvil/internal/block"

	"github.com/Paintersrp/anvil/internal/layout"
)

const (
	// MaxLoadedBlocks bounds the window materialized in the editor.
	MaxLoadedBlocks = 400
	// BufferBlocks pads the visible span on each side.
	BufferBlocks = 150
	// HysteresisBlocks is how close the visible span must get to a
	// loaded edge before a new range is emitted.
	HysteresisBlocks = 25
	// ShiftCooldown suppresses emissions right after a shift, while DOM
	// heights are still drifting from the content swap.
	ShiftCooldown = 150 * time.Millisecond
	// SettleDebounce is the scroll-inactivity window before a settle
	// event fires.
	SettleDebounce = 150 * time.Millisecond
	// FlyoverJumpPx separates scrollbar drags from trackpad momentum.
	FlyoverJumpPx = 2000.0
)

// Mode classifies scroll intent for a proposed range.
type Mode int

const (
	// ModeSmooth is ordinary scrolling within reach of loaded content.
	ModeSmooth Mode = iota
	// ModeFlyover means the visible area has outrun the loaded buffer in
	// one large jump; the host should dim until content catches up.
	ModeFlyover
	// ModeSettle fires after scroll input stops, to load the final
	// resting range.
	ModeSettle
)

func (m Mode) String() string {
	switch m {
	case ModeFlyover:
		return "flyover"
	case ModeSettle:
		return "settle"
	default:
		return "smooth"
	}
}

// Update is what the coordinator emits to subscribers: the block range
// to materialize, the pixel offset its first block sits at, and how the
// user got there.
type Update struct {
	Range        block.Range
	Mode         Mode
	TranslateY   float64
	FirstVisible int
}

// Coordinator owns the pure mapping from scroll position to block range.
// It never touches the document; it only proposes ranges and decides,
// via hysteresis and cooldown, which proposals are worth acting on.
//
// All methods must be called from the host's update loop. Scroll events
// are coalesced: OnScroll records the latest offset and Frame processes
// at most one per animation frame.
type Coordinator struct {
	cumulative     []float64
	viewportHeight float64

	loaded      block.Range
	lastEmitted block.Range
	emitted     bool
	lastEmitAt  time.Time

	scrollTop     float64
	pendingScroll float64
	havePending   bool
	lastScrollAt  time.Time
	settled       bool
	suppressUntil time.Time

	listeners []func(Update)

	now func() time.Time
}

func NewCoordinator(viewportHeight float64) *Coordinator {
	return &Coordinator{
		viewportHeight: viewportHeight,
		settled:        true,
		now:            time.Now,
	}
}

// Subscribe registers a range listener. Listeners run synchronously, in
// registration order, within the same frame as the triggering scroll.
func (c *Coordinator) Subscribe(fn func(Update)) {
	c.listeners = append(c.listeners, fn)
}

// SetBlocks rebuilds the prefix-sum table from a fresh height array.
// cumulative[i] holds the summed height of blocks [0,i); cumulative[N]
// is the total height driving the virtual scrollbar.
func (c *Coordinator) SetBlocks(heights []float64) {
	c.cumulative = make([]float64, len(heights)+1)
	for i, h := range heights {
		c.cumulative[i+1] = c.cumulative[i] + h
	}
}

// UpdateHeight replaces one block's height, shifting every later prefix.
func (c *Coordinator) UpdateHeight(index int, height float64) {
	if index < 0 || index >= c.BlockCount() {
		return
	}
	delta := height - (c.cumulative[index+1] - c.cumulative[index])
	if delta == 0 {
		return
	}
	for i := index + 1; i < len(c.cumulative); i++ {
		c.cumulative[i] += delta
	}
}

func (c *Coordinator) BlockCount() int {
	if len(c.cumulative) == 0 {
		return 0
	}
	return len(c.cumulative) - 1
}

// TotalHeight is the full document height under current estimates.
func (c *Coordinator) TotalHeight() float64 {
	if len(c.cumulative) == 0 {
		return 0
	}
	return c.cumulative[len(c.cumulative)-1]
}

// OffsetOf returns the pixel offset of a block's top edge.
func (c *Coordinator) OffsetOf(index int) float64 {
	n := c.BlockCount()
	if n == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index > n {
		index = n
	}
	return c.cumulative[index]
}

// HeightOf returns a block's height under current estimates.
func (c *Coordinator) HeightOf(index int) float64 {
	if index < 0 || index >= c.BlockCount() {
		return 0
	}
	return c.cumulative[index+1] - c.cumulative[index]
}

func (c *Coordinator) SetViewportHeight(px float64) {
	if px > 0 {
		c.viewportHeight = px
	}
}

func (c *Coordinator) ViewportHeight() float64 { return c.viewportHeight }

// ScrollTop is the last processed scroll offset.
func (c *Coordinator) ScrollTop() float64 { return c.scrollTop }

// Loaded is the range the controller last reported as materialized.
func (c *Coordinator) Loaded() block.Range { return c.loaded }

// SetLoaded records the materialized window after a fetch+apply cycle.
// Mode resolution and hysteresis compare against this, not against the
// freshly proposed buffered range.
func (c *Coordinator) SetLoaded(r block.Range) {
	c.loaded = r.Clamp(c.BlockCount())
}

// FirstVisibleAt maps a scroll offset to the largest block index whose
// top edge is at or above it.
func (c *Coordinator) FirstVisibleAt(scrollTop float64) int {
	n := c.BlockCount()
	if n == 0 {
		return 0
	}
	s := c.clampScroll(scrollTop)
	// First index whose next edge lies beyond s; that block contains s.
	i := sort.Search(n, func(i int) bool { return c.cumulative[i+1] > s })
	if i >= n {
		i = n - 1
	}
	return i
}

func (c *Coordinator) lastVisibleAt(scrollTop float64) int {
	n := c.BlockCount()
	if n == 0 {
		return 0
	}
	bottom := c.clampScroll(scrollTop) + c.viewportHeight
	i := sort.Search(n, func(i int) bool { return c.cumulative[i+1] > bottom })
	if i >= n {
		i = n - 1
	}
	return i
}

// ComputeBlockRange maps a scroll offset to the buffered block range to
// load, capped at MaxLoadedBlocks, plus the translateY aligning the
// window's first block with the real scroll position.
func (c *Coordinator) ComputeBlockRange(scrollTop float64) Update {
	n := c.BlockCount()
	if n == 0 {
		return Update{}
	}

	first := c.FirstVisibleAt(scrollTop)
	perViewport := int(math.Ceil(c.viewportHeight / layout.DefaultBlockHeight))

	start := first - BufferBlocks
	if start < 0 {
		start = 0
	}
	end := first + perViewport + BufferBlocks
	if end > n {
		end = n
	}
	if end-start > MaxLoadedBlocks {
		end = start + MaxLoadedBlocks
	}

	return Update{
		Range:        block.Range{Start: start, End: end},
		TranslateY:   c.cumulative[start],
		FirstVisible: first,
	}
}

// InitialUpdate computes the first-paint range before any scroll event
// and records it as emitted.
func (c *Coordinator) InitialUpdate() Update {
	u := c.ComputeBlockRange(0)
	u.Mode = ModeSmooth
	c.lastEmitted = u.Range
	c.emitted = true
	c.lastEmitAt = c.now()
	return u
}

// SuppressScrollFor blinds the coordinator to scroll events for the
// given duration. Callers use it around DOM mutations whose reflow
// produces scroll events that are not user intent.
func (c *Coordinator) SuppressScrollFor(d time.Duration) {
	until := c.now().Add(d)
	if until.After(c.suppressUntil) {
		c.suppressUntil = until
	}
}

// OnScroll records a scroll offset for the next frame. Only the latest
// offset per frame is kept; earlier ones in the same frame are dropped.
func (c *Coordinator) OnScroll(scrollTop float64) {
	now := c.now()
	if now.Before(c.suppressUntil) {
		return
	}
	c.pendingScroll = c.clampScroll(scrollTop)
	c.havePending = true
	c.lastScrollAt = now
	c.settled = false
}

// Frame processes the pending scroll offset, if any, and returns the
// emitted update when the proposal passes the emission gate. Listeners
// are notified before Frame returns.
func (c *Coordinator) Frame() *Update {
	if !c.havePending || c.BlockCount() == 0 {
		return nil
	}
	c.havePending = false

	delta := math.Abs(c.pendingScroll - c.scrollTop)
	c.scrollTop = c.pendingScroll

	u := c.ComputeBlockRange(c.scrollTop)
	last := c.lastVisibleAt(c.scrollTop)
	u.Mode = c.resolveMode(u.FirstVisible, last, delta)

	if !c.shouldEmit(u.Range, u.FirstVisible, last) {
		return nil
	}
	c.emit(u)
	return &u
}

// TickSettle fires the settle event once scroll input has been quiet for
// the debounce window. fired reports the debounce edge regardless of
// whether a range was emitted, so the controller can run its own
// settle-time work (fetch retries) exactly once per pause.
func (c *Coordinator) TickSettle() (upd *Update, fired bool) {
	if c.settled || c.BlockCount() == 0 {
		return nil, false
	}
	if c.now().Sub(c.lastScrollAt) < SettleDebounce {
		return nil, false
	}
	c.settled = true

	u := c.ComputeBlockRange(c.scrollTop)
	u.Mode = ModeSettle
	// Settle bypasses cooldown and hysteresis: scrolling has stopped and
	// the resting range must be loaded. Identical ranges still dedupe.
	if c.emitted && u.Range.Equal(c.lastEmitted) {
		return nil, true
	}
	c.emit(u)
	return &u, true
}

func (c *Coordinator) emit(u Update) {
	c.lastEmitted = u.Range
	c.emitted = true
	c.lastEmitAt = c.now()
	for _, fn := range c.listeners {
		fn(u)
	}
}

// resolveMode classifies the frame against the currently loaded range.
// Comparing against the buffered proposal instead would always show a
// false overshoot, since the proposal includes the buffer by definition.
func (c *Coordinator) resolveMode(firstVisible, lastVisible int, delta float64) Mode {
	if c.loaded.Empty() {
		return ModeSmooth
	}
	if c.marginTo(firstVisible, lastVisible) <= 0 && delta > FlyoverJumpPx {
		return ModeFlyover
	}
	return ModeSmooth
}

// marginTo returns the smaller block-count margin between the visible
// span and the loaded window's edges. Edges pinned at a document
// boundary count as infinite; there is nothing further to load there.
func (c *Coordinator) marginTo(firstVisible, lastVisible int) int {
	n := c.BlockCount()
	margin := math.MaxInt
	if c.loaded.Start > 0 {
		if m := firstVisible - c.loaded.Start; m < margin {
			margin = m
		}
	}
	if c.loaded.End < n {
		if m := c.loaded.End - 1 - lastVisible; m < margin {
			margin = m
		}
	}
	return margin
}

// shouldEmit is the oscillation breaker: a proposal goes out only when
// it is new, outside the cooldown window, and the visible span has
// consumed its hysteresis margin to a loaded edge.
func (c *Coordinator) shouldEmit(proposed block.Range, firstVisible, lastVisible int) bool {
	if c.emitted && proposed.Equal(c.lastEmitted) {
		return false
	}
	if c.emitted && c.now().Sub(c.lastEmitAt) < ShiftCooldown {
		return false
	}
	if c.loaded.Empty() {
		return true
	}
	return c.marginTo(firstVisible, lastVisible) < HysteresisBlocks
}

func (c *Coordinator) clampScroll(s float64) float64 {
	if s < 0 {
		return 0
	}
	if total := c.TotalHeight(); s > total {
		return total
	}
	return s
}
