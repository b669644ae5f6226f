package editor

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Paintersrp/anvil/internal/state"
)

// Run opens path in the windowed editor and blocks until it exits. The
// initial viewport height comes from the real terminal size when stdout
// is a terminal, otherwise the configured default stands.
func Run(s *state.State, path string) error {
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if _, rows, err := term.GetSize(fd); err == nil && rows > 1 {
			s.Config.Editor.ViewportHeight = float64(rows-1) * s.Estimator.LineHeight()
		}
	}

	m, err := NewModel(s, path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}
