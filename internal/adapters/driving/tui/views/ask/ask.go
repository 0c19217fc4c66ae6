// Package ask provides the question view for the TUI: a question input,
// a scrollable answer with its cited context, and a passages browser.
package ask

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// reserved is the height taken by the header, input and status bar.
const reserved = 9

var citationPattern = regexp.MustCompile(`\[\^\d+\]`)

// View is the ask view.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	passages  *list.PassageList
	viewport  viewport.Model
	statusbar *status.Bar

	answerService    driving.AnswerService
	retrievalService driving.RetrievalService
	ctx              context.Context

	mode        messages.Mode
	question    string
	result      *domain.AnswerResult
	showContext bool
	busy        bool
	err         error

	width  int
	height int
	ready  bool
}

// NewView creates a new ask view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
	retrievalService driving.RetrievalService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:           s,
		keymap:           km,
		input:            input.NewQuestionInput(s),
		passages:         list.NewPassageList(s),
		viewport:         viewport.New(80, 24-reserved),
		statusbar:        status.NewBar(s, km),
		answerService:    answerService,
		retrievalService: retrievalService,
		ctx:              context.Background(),
		mode:             messages.ModeInput,
		width:            80,
		height:           24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.PassagesCompleted:
		v.handlePassages(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.mode == messages.ModeInput {
		return v.handleInputKey(msg)
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.NewQuestion):
		return v, v.focusInput(true)
	case keymap.Matches(msg.String(), v.keymap.Back):
		return v, v.focusInput(false)
	}

	if v.mode == messages.ModePassages {
		switch {
		case keymap.Matches(msg.String(), v.keymap.Up):
			v.passages.MoveUp()
		case keymap.Matches(msg.String(), v.keymap.Down):
			v.passages.MoveDown()
		}
		return v, nil
	}

	if keymap.Matches(msg.String(), v.keymap.ToggleContext) && v.result != nil {
		v.showContext = !v.showContext
		v.refreshViewport()
		return v, nil
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.busy {
		return v, nil
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Ask):
		return v, v.submit(false)
	case keymap.Matches(msg.String(), v.keymap.Retrieve):
		return v, v.submit(true)
	case keymap.Matches(msg.String(), v.keymap.Back):
		v.input.Reset()
		v.err = nil
		v.statusbar.Clear()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts an ask or a retrieval for the current input. Blank
// questions are ignored.
func (v *View) submit(passagesOnly bool) tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" {
		return nil
	}

	v.question = question
	v.busy = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")

	if passagesOnly {
		return v.retrieve(question)
	}
	return v.ask(question)
}

func (v *View) ask(question string) tea.Cmd {
	svc, ctx := v.answerService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		result, err := svc.Ask(ctx, question)
		return messages.AnswerCompleted{Question: question, Result: result, Err: err}
	}
}

func (v *View) retrieve(question string) tea.Cmd {
	svc, ctx := v.retrievalService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		chunks, err := svc.Retrieve(ctx, question)
		return messages.PassagesCompleted{Question: question, Chunks: chunks, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	if msg.Result == nil {
		v.setError(ErrNoAnswerService)
		return
	}

	v.busy = false
	v.result = msg.Result
	v.showContext = false
	v.mode = messages.ModeAnswer
	v.input.Blur()
	v.statusbar.SetState(status.StateAnswer)
	v.statusbar.SetMessage("")
	v.statusbar.SetCount(countPassages(msg.Result.Context))
	v.refreshViewport()
}

func (v *View) handlePassages(msg messages.PassagesCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.busy = false
	v.result = nil
	v.mode = messages.ModePassages
	v.input.Blur()
	v.passages.SetPassages(msg.Chunks)
	v.statusbar.SetState(status.StatePassages)
	v.statusbar.SetMessage("")
	v.statusbar.SetCount(len(msg.Chunks))
}

func (v *View) setError(err error) {
	v.busy = false
	v.err = err
	v.mode = messages.ModeInput
	v.input.Focus()
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// focusInput returns to question entry, optionally clearing the last question.
func (v *View) focusInput(clear bool) tea.Cmd {
	v.mode = messages.ModeInput
	v.err = nil
	if clear {
		v.input.Reset()
	}
	v.statusbar.Clear()
	return v.input.Focus()
}

// refreshViewport renders the answer or the context into the viewport.
func (v *View) refreshViewport() {
	if v.result == nil {
		v.viewport.SetContent("")
		return
	}

	text := v.result.Answer
	if v.showContext {
		text = v.result.Context
		if text == "" {
			text = "(no passages were retrieved)"
		}
		v.statusbar.SetMessage("Showing context")
	} else {
		v.statusbar.SetMessage("")
	}

	wrapped := lipgloss.NewStyle().Width(max(v.viewport.Width-2, 10)).Render(text)
	v.viewport.SetContent(highlightCitations(v.styles, wrapped))
	v.viewport.GotoTop()
}

func highlightCitations(s *styles.Styles, text string) string {
	return citationPattern.ReplaceAllStringFunc(text, func(m string) string {
		return s.Citation.Render(m)
	})
}

// countPassages counts the citation blocks in an assembled context.
func countPassages(context string) int {
	if context == "" {
		return 0
	}
	n := 0
	for _, block := range strings.Split(context, "\n\n") {
		if strings.HasPrefix(block, "[^") {
			n++
		}
	}
	return n
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("kbase"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	switch v.mode {
	case messages.ModeAnswer:
		label := "Answer"
		if v.showContext {
			label = "Context"
		}
		sections = append(sections,
			v.styles.Subtitle.Render(label+" · "+list.Truncate(v.question, max(v.width-20, 10))),
			v.styles.Pane.Render(v.viewport.View()),
		)
	case messages.ModePassages:
		sections = append(sections, v.passages.View())
	case messages.ModeInput:
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.passages.SetDimensions(width, height-reserved)
	v.viewport.Width = max(width-4, 10)
	v.viewport.Height = max(height-reserved-2, 3)
	v.statusbar.SetWidth(width)
	v.refreshViewport()
}

// Ready returns whether the view has received its dimensions.
func (v *View) Ready() bool {
	return v.ready
}

// Mode returns what the view is showing.
func (v *View) Mode() messages.Mode {
	return v.mode
}

// Question returns the last submitted question.
func (v *View) Question() string {
	return v.question
}

// Input returns the current input text.
func (v *View) Input() string {
	return v.input.Value()
}

// SetInput sets the input text.
func (v *View) SetInput(text string) {
	v.input.SetValue(text)
}

// Result returns the last answer, if any.
func (v *View) Result() *domain.AnswerResult {
	return v.result
}

// Passages returns the last retrieved passages.
func (v *View) Passages() []domain.RetrievedChunk {
	return v.passages.Passages()
}

// ShowingContext reports whether the context is shown instead of the answer.
func (v *View) ShowingContext() bool {
	return v.showContext
}

// Busy reports whether a request is in flight.
func (v *View) Busy() bool {
	return v.busy
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}
