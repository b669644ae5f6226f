// Package editor is the TUI host for the windowed block editor: it owns
// the scroll container, forwards scroll input to the viewport
// coordinator, executes staged fetches against the vault, and renders
// the loaded window.
package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/Paintersrp/anvil/internal/engine"
	"github.com/Paintersrp/anvil/internal/heights"
	"github.com/Paintersrp/anvil/internal/state"
	"github.com/Paintersrp/anvil/internal/viewport"
	"github.com/Paintersrp/anvil/internal/window"
)

// framesPerSecond throttles scroll processing: one coordinator frame per
// tick, using only the latest scroll offset.
const framesPerSecond = 30

type frameMsg time.Time

type fetchDoneMsg struct {
	req window.FetchRequest
	res window.FetchResult
	err error
}

type flushDoneMsg struct{ err error }

// Model is the bubbletea model for one open document.
type Model struct {
	session *state.State

	docID    int64
	rel      string
	path     string
	eng      *engine.Document
	coord    *viewport.Coordinator
	ctrl     *window.Controller
	loop     *heights.Loop
	renderer *glamour.TermRenderer

	keys       keyMap
	spin       spinner.Model
	width      int
	height     int
	scroll     float64
	lineHeight float64
	dimmed     bool
	fetching   bool
	status     string
	lastErr    error

	source   *sourceSession
	quitting bool
}

// NewModel opens path in the vault and wires the windowing core around
// it.
func NewModel(s *state.State, path string) (*Model, error) {
	doc, err := s.Vault.Open(path)
	if err != nil {
		return nil, err
	}

	s.Estimator.Invalidate()
	if len(doc.Heights) > 0 {
		s.Estimator.Seed(doc.Heights)
	}

	cfg := s.Config.Editor
	eng := engine.NewDocument()
	coord := viewport.NewCoordinator(cfg.ViewportHeight)
	loop := heights.NewLoop(doc.ID, s.Estimator, s.Vault)
	ctrl := window.NewController(
		s.Vault, eng, coord, s.Estimator, loop,
		doc.ID, doc.Metas, cfg.ContainerWidth,
	)

	m := &Model{
		session:    s,
		docID:      doc.ID,
		rel:        doc.Rel,
		path:       doc.Path,
		eng:        eng,
		coord:      coord,
		ctrl:       ctrl,
		loop:       loop,
		keys:       newKeyMap(),
		spin:       spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		lineHeight: s.Estimator.LineHeight(),
	}
	ctrl.OnDim(func(on bool) { m.dimmed = on })
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{frameTick(), m.spin.Tick}
	if m.session.Watcher != nil {
		cmds = append(cmds, m.session.Watcher.Start())
	}
	if req := m.ctrl.InitialRequest(); req != nil {
		cmds = append(cmds, m.fetchCmd(*req))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.source != nil {
		return m.updateSource(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scrollBy(-float64(m.session.Config.Editor.WheelStepRows) * m.lineHeight)
		case tea.MouseButtonWheelDown:
			m.scrollBy(float64(m.session.Config.Editor.WheelStepRows) * m.lineHeight)
		}
		return m, nil

	case frameMsg:
		return m, tea.Batch(m.frame(), frameTick())

	case fetchDoneMsg:
		return m, m.finishFetch(msg)

	case flushDoneMsg:
		// Failed flushes requeue internally; nothing to do but keep the
		// debounce cycle alive.
		return m, nil

	case state.VaultNoteChangedMsg:
		cmd := m.noteChanged(msg.Path)
		return m, tea.Batch(cmd, m.session.Watcher.Start())

	case state.VaultWatcherErrMsg:
		m.lastErr = msg.Err
		return m, m.session.Watcher.Start()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.teardown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.scrollBy(-m.lineHeight)
	case key.Matches(msg, m.keys.Down):
		m.scrollBy(m.lineHeight)
	case key.Matches(msg, m.keys.PageUp):
		m.scrollBy(-m.coord.ViewportHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.scrollBy(m.coord.ViewportHeight())
	case key.Matches(msg, m.keys.Top):
		m.scrollTo(0)
	case key.Matches(msg, m.keys.Bottom):
		m.scrollTo(m.coord.TotalHeight() - m.coord.ViewportHeight())

	case key.Matches(msg, m.keys.Yank):
		m.yank()

	case key.Matches(msg, m.keys.Source):
		return m, m.enterSource()

	case key.Matches(msg, m.keys.Save):
		if err := m.session.Vault.Save(m.docID); err != nil {
			m.lastErr = err
		} else {
			m.status = "saved"
		}
	}
	return m, nil
}

// frame runs one coordinator frame: process the latest scroll offset,
// fire settle work when the debounce elapses, and start any staged
// fetch or due height flush.
func (m *Model) frame() tea.Cmd {
	var cmds []tea.Cmd

	m.coord.Frame()
	if req := m.ctrl.TakeFetch(); req != nil {
		cmds = append(cmds, m.fetchCmd(*req))
	}

	if _, fired := m.coord.TickSettle(); fired {
		if req := m.ctrl.TakeFetch(); req != nil {
			cmds = append(cmds, m.fetchCmd(*req))
		} else if req := m.ctrl.OnSettle(); req != nil {
			cmds = append(cmds, m.fetchCmd(*req))
		}
	}

	if m.loop.FlushDue() {
		cmds = append(cmds, m.flushCmd())
	}

	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *Model) fetchCmd(req window.FetchRequest) tea.Cmd {
	m.fetching = true
	ctrl := m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Fetch(context.Background(), req)
		return fetchDoneMsg{req: req, res: res, err: err}
	}
}

func (m *Model) flushCmd() tea.Cmd {
	loop := m.loop
	return func() tea.Msg {
		return flushDoneMsg{err: loop.Flush(context.Background())}
	}
}

func (m *Model) finishFetch(msg fetchDoneMsg) tea.Cmd {
	m.fetching = false
	if msg.err != nil {
		m.ctrl.HandleFetchError(msg.req, msg.err)
		m.lastErr = msg.err
		return nil
	}
	m.lastErr = nil

	next := m.ctrl.ApplyFetch(msg.res)
	m.measureLoaded()
	if next != nil {
		return m.fetchCmd(*next)
	}
	return nil
}

// measureLoaded is the host's resize observation: every materialized
// node is rendered and its real row count reported back as a measured
// height, feeding the correction loop.
func (m *Model) measureLoaded() {
	if m.renderer == nil {
		return
	}
	for _, n := range m.eng.Nodes() {
		view := m.renderNode(n)
		h := float64(lineCount(view)) * m.lineHeight
		m.ctrl.ObserveBlockHeight(n.BlockID, h)
	}
}

func (m *Model) scrollBy(delta float64) { m.scrollTo(m.scroll + delta) }

func (m *Model) scrollTo(target float64) {
	maxScroll := m.coord.TotalHeight() - m.coord.ViewportHeight()
	if maxScroll < 0 {
		maxScroll = 0
	}
	if target < 0 {
		target = 0
	}
	if target > maxScroll {
		target = maxScroll
	}
	m.scroll = target
	m.coord.OnScroll(target)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	contentRows := height - 1 // status bar
	if contentRows < 1 {
		contentRows = 1
	}
	m.coord.SetViewportHeight(float64(contentRows) * m.lineHeight)

	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.contentWidth()),
	)
	if err == nil {
		m.renderer = renderer
		m.invalidateViews()
		m.measureLoaded()
	}

	if m.source != nil {
		m.source.setSize(width, contentRows)
	}
}

func (m *Model) yank() {
	first := m.coord.FirstVisibleAt(m.scroll)
	loaded := m.ctrl.Loaded()
	if !loaded.Contains(first) {
		m.status = "block not loaded"
		return
	}
	node := m.eng.Node(first - loaded.Start)
	if node == nil {
		return
	}
	if err := clipboard.WriteAll(node.Markdown); err != nil {
		m.lastErr = err
		return
	}
	m.status = fmt.Sprintf("yanked block %d", node.BlockID)
}

func (m *Model) noteChanged(rel string) tea.Cmd {
	if rel != m.rel || m.session.Vault.Dirty(m.docID) {
		return nil
	}
	// Disk changed under a clean editor: reopen and rebuild the window.
	req, err := m.reload()
	if err != nil {
		m.lastErr = err
		return nil
	}
	m.status = "reloaded from disk"
	if req != nil {
		return m.fetchCmd(*req)
	}
	return nil
}

// reload rebuilds the windowing core around a fresh scan of the file
// and returns the staged first-paint fetch, which the caller must run.
func (m *Model) reload() (*window.FetchRequest, error) {
	_ = m.session.Vault.Close(m.docID)
	doc, err := m.session.Vault.Open(m.path)
	if err != nil {
		return nil, err
	}
	m.docID = doc.ID

	m.session.Estimator.Invalidate()
	if len(doc.Heights) > 0 {
		m.session.Estimator.Seed(doc.Heights)
	}

	cfg := m.session.Config.Editor
	m.eng = engine.NewDocument()
	m.coord = viewport.NewCoordinator(cfg.ViewportHeight)
	m.loop = heights.NewLoop(doc.ID, m.session.Estimator, m.session.Vault)
	m.ctrl = window.NewController(
		m.session.Vault, m.eng, m.coord, m.session.Estimator, m.loop,
		doc.ID, doc.Metas, cfg.ContainerWidth,
	)
	m.ctrl.OnDim(func(on bool) { m.dimmed = on })
	m.resize(m.width, m.height)
	m.scrollTo(m.scroll)
	return m.ctrl.InitialRequest(), nil
}

func (m *Model) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.loop.Close(ctx)
	_ = m.session.Vault.Save(m.docID)
	_ = m.session.Vault.Close(m.docID)
}

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/framesPerSecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
