package editor

import (
	"fmt"
	"strings"

	"github.com/Paintersrp/anvil/internal/engine"
)

const gutterWidth = 2

func (m *Model) contentWidth() int {
	w := m.width - gutterWidth
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.source != nil {
		return m.viewSource()
	}
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	contentRows := m.height - 1
	rows := m.contentRows(contentRows)
	bar := m.scrollbar(contentRows)

	var b strings.Builder
	for i := 0; i < contentRows; i++ {
		line := ""
		if i < len(rows) {
			line = rows[i]
		}
		b.WriteString(line)
		b.WriteString(gutterStyle.Render(" "))
		b.WriteString(bar[i])
		b.WriteString("\n")
	}
	b.WriteString(m.statusBar())
	return b.String()
}

// contentRows maps the pixel scroll position onto rendered block rows.
// Each rendered line stands for one lineHeight of pixels; blocks outside
// the loaded window show as placeholders until their fetch lands.
func (m *Model) contentRows(want int) []string {
	loaded := m.ctrl.Loaded()
	n := m.coord.BlockCount()
	if n == 0 {
		return []string{dimStyle.Render("(empty document)")}
	}

	first := m.coord.FirstVisibleAt(m.scroll)
	// Rows of the first block hidden above the viewport top edge.
	skip := 0
	if m.lineHeight > 0 {
		skip = int((m.scroll - m.coord.OffsetOf(first)) / m.lineHeight)
	}

	var rows []string
	for idx := first; idx < n && len(rows) < want+skip; idx++ {
		if !loaded.Contains(idx) {
			rows = append(rows, m.placeholderRows(idx)...)
			continue
		}
		node := m.eng.Node(idx - loaded.Start)
		if node == nil {
			rows = append(rows, m.placeholderRows(idx)...)
			continue
		}
		view := m.renderNode(node)
		lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
		if m.dimmed {
			for i := range lines {
				lines[i] = dimStyle.Render(lines[i])
			}
		}
		rows = append(rows, lines...)
	}

	if skip >= len(rows) {
		return nil
	}
	rows = rows[skip:]
	if len(rows) > want {
		rows = rows[:want]
	}
	return rows
}

// placeholderRows fills the estimated footprint of an unloaded block.
func (m *Model) placeholderRows(idx int) []string {
	count := 1
	if m.lineHeight > 0 {
		count = int(m.coord.HeightOf(idx)/m.lineHeight + 0.5)
	}
	if count < 1 {
		count = 1
	}
	rows := make([]string, count)
	for i := range rows {
		rows[i] = dimStyle.Render("·")
	}
	return rows
}

func (m *Model) renderNode(n *engine.Node) string {
	if v, ok := n.View(); ok {
		return v
	}
	if m.renderer == nil {
		n.SetView(n.Markdown)
		return n.Markdown
	}
	out, err := m.renderer.Render(n.Markdown)
	if err != nil {
		out = n.Markdown
	}
	n.SetView(out)
	return out
}

func (m *Model) invalidateViews() {
	for _, n := range m.eng.Nodes() {
		n.ClearView()
	}
}

// scrollbar draws the synthetic scrollbar: thumb position and size come
// from the estimated total height, not from loaded content.
func (m *Model) scrollbar(rows int) []string {
	out := make([]string, rows)
	total := m.coord.TotalHeight()
	view := m.coord.ViewportHeight()
	if total <= view || rows == 0 {
		for i := range out {
			out[i] = gutterStyle.Render("│")
		}
		return out
	}

	thumbLen := int(float64(rows) * view / total)
	if thumbLen < 1 {
		thumbLen = 1
	}
	maxScroll := total - view
	thumbPos := int(float64(rows-thumbLen) * (m.scroll / maxScroll))

	for i := range out {
		if i >= thumbPos && i < thumbPos+thumbLen {
			out[i] = thumbStyle.Render("┃")
		} else {
			out[i] = gutterStyle.Render("│")
		}
	}
	return out
}

func (m *Model) statusBar() string {
	loaded := m.ctrl.Loaded()
	mode := "smooth"
	if m.dimmed {
		mode = "flyover"
	}

	left := fmt.Sprintf("%s  [%d,%d)/%d  %s", m.rel, loaded.Start, loaded.End, m.coord.BlockCount(), mode)
	if m.session.Vault.Dirty(m.docID) {
		left += "  *"
	}
	if m.fetching {
		left += "  " + m.spin.View()
	}
	if m.status != "" {
		left += "  " + m.status
	}

	if m.lastErr != nil {
		return statusErrStyle.Width(m.width).Render(left + "  ! " + m.lastErr.Error())
	}
	return statusStyle.Width(m.width).Render(left)
}

func lineCount(view string) int {
	trimmed := strings.TrimRight(view, "\n")
	if trimmed == "" {
		return 1
	}
	return strings.Count(trimmed, "\n") + 1
}
