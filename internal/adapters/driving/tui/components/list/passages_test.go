package list

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func testPassages() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{Chunk: domain.Chunk{SourceID: "france.md", Index: 0, Text: "Paris is the capital of France."}, Score: 0.91, Rank: 1},
		{Chunk: domain.Chunk{SourceID: "spain.md", Index: 3, Text: "Madrid is the\ncapital of Spain."}, Score: 0.42, Rank: 2},
		{Chunk: domain.Chunk{SourceID: "italy.md", Index: 1, Text: "Rome is the capital of Italy."}, Score: 0.40, Rank: 3},
	}
}

func TestNewPassageList(t *testing.T) {
	p := NewPassageList(nil)

	require.NotNil(t, p)
	assert.Zero(t, p.Count())
	assert.Nil(t, p.SelectedPassage())
	assert.Contains(t, p.View(), "No passages")
}

func TestPassageList_View(t *testing.T) {
	p := NewPassageList(nil)
	p.SetDimensions(100, 40)
	p.SetPassages(testPassages())

	view := p.View()

	assert.Contains(t, view, "Passages (3)")
	assert.Contains(t, view, "[^1]")
	assert.Contains(t, view, "france.md #0")
	assert.Contains(t, view, "0.910")
	assert.Contains(t, view, "Madrid is the capital of Spain.", "newlines collapse in previews")
}

func TestPassageList_Navigation(t *testing.T) {
	p := NewPassageList(nil)
	p.SetPassages(testPassages())

	p.MoveUp()
	assert.Equal(t, 0, p.Selected())

	p.MoveDown()
	p.MoveDown()
	p.MoveDown()
	assert.Equal(t, 2, p.Selected())
	assert.Equal(t, 3, p.SelectedPassage().Rank)

	p.SetPassages(testPassages()[:1])
	assert.Equal(t, 0, p.Selected(), "new passages reset the selection")
}

func TestPassageList_ScrollsToSelection(t *testing.T) {
	p := NewPassageList(nil)
	p.SetDimensions(100, 5)
	p.SetPassages(testPassages())

	p.MoveDown()
	p.MoveDown()
	view := p.View()

	assert.Contains(t, view, "italy.md")
	assert.NotContains(t, view, "france.md")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))

	cut := Truncate(strings.Repeat("é", 30), 10)
	assert.Equal(t, 10, len([]rune(cut)))
}
