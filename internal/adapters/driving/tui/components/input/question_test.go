package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
)

func TestNewQuestionInput(t *testing.T) {
	q := NewQuestionInput(styles.DefaultStyles())

	require.NotNil(t, q)
	assert.True(t, q.Focused())
	assert.Empty(t, q.Value())
	assert.Equal(t, 60, q.Width())
}

func TestNewQuestionInput_NilStyles(t *testing.T) {
	q := NewQuestionInput(nil)

	require.NotNil(t, q)
	assert.NotNil(t, q.styles)
}

func TestQuestionInput_Init(t *testing.T) {
	assert.NotNil(t, NewQuestionInput(nil).Init())
}

func TestQuestionInput_TypingUpdatesValue(t *testing.T) {
	q := NewQuestionInput(nil)

	for _, r := range "why?" {
		q, _ = q.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "why?", q.Value())
}

func TestQuestionInput_SetValueAndReset(t *testing.T) {
	q := NewQuestionInput(nil)

	q.SetValue("What is the capital of France?")
	assert.Equal(t, "What is the capital of France?", q.Value())

	q.Reset()
	assert.Empty(t, q.Value())
}

func TestQuestionInput_FocusAndBlur(t *testing.T) {
	q := NewQuestionInput(nil)

	q.Blur()
	assert.False(t, q.Focused())

	q.Focus()
	assert.True(t, q.Focused())
}

func TestQuestionInput_SetWidth(t *testing.T) {
	q := NewQuestionInput(nil)

	q.SetWidth(100)
	assert.Equal(t, 100, q.Width())
	assert.Equal(t, 88, q.textinput.Width)

	q.SetWidth(10)
	assert.Equal(t, 20, q.textinput.Width, "input keeps a minimum width")
}

func TestQuestionInput_View(t *testing.T) {
	q := NewQuestionInput(nil)
	q.SetValue("hello")

	view := q.View()

	assert.Contains(t, view, "Ask:")
	assert.Contains(t, view, "hello")
}
