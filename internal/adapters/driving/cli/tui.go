package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui"
)

// runApp runs the TUI program. Tests replace it.
var runApp = func(app *tui.App) error {
	return app.Run()
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal interface for asking questions.

Controls:
  Enter    - Ask
  Ctrl+R   - Show matching passages only
  Tab/c    - Toggle the cited context
  ↑/k, ↓/j - Scroll / select passages
  n, /     - New question
  Esc      - Back
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	cache, _, _, err := openChainCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	app, err := tui.NewApp(tui.NewPorts(cache, cache))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := runApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
