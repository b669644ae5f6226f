package editor

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// sourceSession is the raw-markdown escape hatch: the whole document in
// a plain textarea, bypassing the block window entirely. Committing
// rescans the document and rebuilds the window from scratch.
type sourceSession struct {
	area     textarea.Model
	original string
}

func (s *sourceSession) setSize(width, rows int) {
	s.area.SetWidth(width)
	s.area.SetHeight(rows)
}

func (m *Model) enterSource() tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	contents, err := m.session.Vault.Blocks(ctx, m.docID, 0, m.coord.BlockCount())
	if err != nil {
		m.lastErr = err
		return nil
	}
	var b strings.Builder
	for _, c := range contents {
		b.WriteString(c.Markdown)
	}

	area := textarea.New()
	area.CharLimit = 0
	area.SetValue(b.String())
	area.SetWidth(m.width)
	area.SetHeight(m.height - 1)
	area.Focus()

	m.source = &sourceSession{area: area, original: b.String()}
	m.status = "source mode (ctrl+s commit, esc discard)"
	return textarea.Blink
}

func (m *Model) updateSource(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case frameMsg:
		// Keep the frame loop alive so resuming the block view picks up
		// height flushes immediately.
		return m, frameTick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Save):
			return m, m.commitSource()
		case msg.Type == tea.KeyEsc:
			m.source = nil
			m.status = "source discarded"
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.source.area, cmd = m.source.area.Update(msg)
	return m, cmd
}

// commitSource replaces the full document with the textarea contents:
// rescan, install the new metadata, and rebuild the window at the
// current scroll position.
func (m *Model) commitSource() tea.Cmd {
	value := m.source.area.Value()
	if value == m.source.original {
		m.source = nil
		m.status = "no changes"
		return nil
	}

	metas, err := m.session.Vault.UpdateVisibleWindow(m.docID, 0, m.coord.BlockCount(), value)
	if err != nil {
		m.lastErr = err
		return nil
	}
	m.ctrl.UpdateMetas(metas)

	m.source = nil
	if err := m.session.Vault.Save(m.docID); err != nil {
		m.lastErr = err
	} else {
		m.status = "saved"
	}

	m.scrollTo(m.scroll)
	if req := m.ctrl.ResetWindow(); req != nil {
		return m.fetchCmd(*req)
	}
	return nil
}

func (m *Model) viewSource() string {
	var b strings.Builder
	b.WriteString(m.source.area.View())
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}
