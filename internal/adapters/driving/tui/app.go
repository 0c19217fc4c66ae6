package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/views/ask"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	askView *ask.View

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingAnswerService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:   ports,
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		askView: ask.NewView(s, km, ports.Answer, ports.Retrieval),
	}, nil
}

// WithContext sets the context for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("kbase"),
		a.askView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		// Outside the input, q quits; while typing it is just a letter.
		if a.askView.Mode() != messages.ModeInput && keymap.Matches(msg.String(), a.keymap.Quit) {
			return a, tea.Quit
		}
	}

	var cmd tea.Cmd
	a.askView, cmd = a.askView.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	return a.askView.View()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Mode returns what the ask view is showing.
func (a *App) Mode() messages.Mode {
	return a.askView.Mode()
}

// Err returns the last error shown.
func (a *App) Err() error {
	return a.askView.Err()
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.askView.SetDimensions(width, height)
}
