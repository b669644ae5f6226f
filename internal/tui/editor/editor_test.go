package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/anvil/internal/config"
	"github.com/Paintersrp/anvil/internal/layout"
	"github.com/Paintersrp/anvil/internal/state"
	"github.com/Paintersrp/anvil/internal/vault"
	"github.com/Paintersrp/anvil/internal/window"
)

const testNote = `# Title

first paragraph

second paragraph
`

func writeNote(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	return path
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	dir := t.TempDir()
	writeNote(t, dir, testNote)

	cfg := &config.Config{
		VaultDir: dir,
		Editor: config.EditorConfig{
			ViewportHeight: 280,
			ContainerWidth: 760,
			WheelStepRows:  3,
		},
	}
	s := &state.State{
		Config:    cfg,
		Vault:     vault.New(dir, nil),
		Estimator: layout.NewEstimator(nil),
		VaultDir:  dir,
	}

	m, err := NewModel(s, "note.md")
	if err != nil {
		t.Fatalf("NewModel() error: %v", err)
	}
	return m
}

// firstPaint drives the initial fetch handshake to a loaded idle window.
func firstPaint(t *testing.T, m *Model) {
	t.Helper()
	req := m.ctrl.InitialRequest()
	if req == nil {
		t.Fatal("InitialRequest() staged nothing")
	}
	done, ok := m.fetchCmd(*req)().(fetchDoneMsg)
	if !ok {
		t.Fatal("fetchCmd did not produce a fetchDoneMsg")
	}
	if cmd := m.finishFetch(done); cmd != nil {
		t.Fatal("first paint chased a second fetch")
	}
	if m.ctrl.State() != window.StateIdle {
		t.Fatalf("after first paint state = %v, want idle", m.ctrl.State())
	}
	if m.eng.Len() == 0 {
		t.Fatal("first paint materialized no blocks")
	}
}

func TestNoteChangedRefetchesAfterDiskEdit(t *testing.T) {
	m := newTestModel(t)
	firstPaint(t, m)

	writeNote(t, m.session.VaultDir, "# Title\n\nrewritten on disk\n")

	cmd := m.noteChanged(m.rel)
	if cmd == nil {
		t.Fatalf("noteChanged() returned no fetch command (state=%v, doc len=%d)",
			m.ctrl.State(), m.eng.Len())
	}

	done, ok := cmd().(fetchDoneMsg)
	if !ok {
		t.Fatal("reload command did not produce a fetchDoneMsg")
	}
	if next := m.finishFetch(done); next != nil {
		t.Fatal("reload fetch chased a second fetch")
	}

	if m.ctrl.State() != window.StateIdle {
		t.Fatalf("after reload state = %v, want idle", m.ctrl.State())
	}
	if m.eng.Len() == 0 {
		t.Fatal("reload left the document empty")
	}
	if got := m.eng.Markdown(); !strings.Contains(got, "rewritten on disk") {
		t.Fatalf("reloaded document missing the disk edit:\n%s", got)
	}
}

func TestNoteChangedSkipsDirtyDocument(t *testing.T) {
	m := newTestModel(t)
	firstPaint(t, m)

	if _, err := m.session.Vault.UpdateVisibleWindow(m.docID, 0, len(m.ctrl.Metas()), "# Unsaved\n"); err != nil {
		t.Fatalf("UpdateVisibleWindow() error: %v", err)
	}
	writeNote(t, m.session.VaultDir, "# Title\n\nrewritten on disk\n")

	before := m.eng
	if cmd := m.noteChanged(m.rel); cmd != nil {
		t.Fatal("noteChanged() reloaded over unsaved edits")
	}
	if m.eng != before {
		t.Fatal("noteChanged() rebuilt the document despite unsaved edits")
	}
}

func TestNoteChangedIgnoresOtherNotes(t *testing.T) {
	m := newTestModel(t)
	firstPaint(t, m)

	before := m.eng
	if cmd := m.noteChanged("other.md"); cmd != nil {
		t.Fatal("noteChanged() reacted to a different note")
	}
	if m.eng != before {
		t.Fatal("noteChanged() rebuilt the document for a different note")
	}
}
