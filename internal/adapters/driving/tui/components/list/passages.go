// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// linesPerPassage is the height of one rendered passage.
const linesPerPassage = 3

// PassageList displays ranked passages in a navigable list.
type PassageList struct {
	passages []domain.RetrievedChunk
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewPassageList creates a new passage list component.
func NewPassageList(s *styles.Styles) *PassageList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &PassageList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// View renders the visible window of passages around the selection.
func (p *PassageList) View() string {
	if len(p.passages) == 0 {
		return p.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(p.passages)*linesPerPassage+2)
	lines = append(lines, p.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(p.passages))), "")

	visible := max((p.height-2)/linesPerPassage, 1)
	start := 0
	if p.selected >= visible {
		start = p.selected - visible + 1
	}
	end := min(start+visible, len(p.passages))

	for i := start; i < end; i++ {
		lines = append(lines, p.renderPassage(i, &p.passages[i]))
	}

	return strings.Join(lines, "\n")
}

func (p *PassageList) renderPassage(index int, rc *domain.RetrievedChunk) string {
	indicator := "  "
	if index == p.selected {
		indicator = "> "
	}

	citation := fmt.Sprintf("[^%d]", rc.Rank)
	source := fmt.Sprintf("%s #%d", rc.Chunk.SourceID, rc.Chunk.Index)
	score := fmt.Sprintf("%.3f", rc.Score)

	var header string
	if index == p.selected {
		header = p.styles.Selected.Render(fmt.Sprintf("%s%s %s  %s", indicator, citation, source, score))
	} else {
		header = indicator + p.styles.Citation.Render(citation) + " " +
			p.styles.Normal.Render(source) + "  " + p.styles.Muted.Render(score)
	}

	preview := p.styles.Muted.Render("    " + Truncate(oneLine(rc.Chunk.Text), max(p.width-6, 20)))
	return header + "\n" + preview + "\n"
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SetPassages replaces the list and resets the selection.
func (p *PassageList) SetPassages(passages []domain.RetrievedChunk) {
	p.passages = passages
	p.selected = 0
}

// Passages returns the current passages.
func (p *PassageList) Passages() []domain.RetrievedChunk {
	return p.passages
}

// Selected returns the index of the selected passage.
func (p *PassageList) Selected() int {
	return p.selected
}

// SelectedPassage returns the selected passage, or nil if the list is empty.
func (p *PassageList) SelectedPassage() *domain.RetrievedChunk {
	if p.selected < 0 || p.selected >= len(p.passages) {
		return nil
	}
	return &p.passages[p.selected]
}

// MoveUp moves selection up.
func (p *PassageList) MoveUp() {
	if p.selected > 0 {
		p.selected--
	}
}

// MoveDown moves selection down.
func (p *PassageList) MoveDown() {
	if p.selected < len(p.passages)-1 {
		p.selected++
	}
}

// SetDimensions sets the component dimensions.
func (p *PassageList) SetDimensions(width, height int) {
	p.width = width
	p.height = height
}

// Count returns the number of passages.
func (p *PassageList) Count() int {
	return len(p.passages)
}
