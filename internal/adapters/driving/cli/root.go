// Package cli provides the kbase command-line interface.
package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/core/services"
	"github.com/custodia-labs/kbase/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	verbose   bool
	configDir string
)

// settingsService resolves configuration for every command. It is built
// from --config-dir on first use unless SetSettingsService injected one.
var settingsService driving.SettingsService

var rootCmd = &cobra.Command{
	Use:   "kbase",
	Short: "Cited question answering over your documents",
	Long: `kbase indexes a directory of documents into a local vector store and
answers questions from it with a language model, citing the passages it
used as [^n].

Build the index once with "kbase index build ./docs", then ask with
"kbase ask", "kbase tui", "kbase serve" or "kbase mcp serve".`,
	SilenceUsage:      true,
	PersistentPreRunE: initCommand,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.kbase)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version reported by "kbase version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetSettingsService injects the settings service used by all commands.
func SetSettingsService(svc driving.SettingsService) {
	settingsService = svc
}

func initCommand(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if settingsService != nil {
		return nil
	}

	loaded, err := file.LoadDotEnv()
	if err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	for _, p := range loaded {
		logger.Debug("loaded environment from %s", p)
	}

	dir := configDir
	if dir == "" {
		dir, err = file.DefaultConfigDir()
		if err != nil {
			return err
		}
	}

	store, err := file.NewConfigStore(dir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	logger.Debug("config file %s", store.Path())

	settingsService = services.NewSettingsService(store,
		services.WithDefaultPromptsDir(filepath.Join(dir, "prompts")))
	return nil
}

func requireSettings() (driving.SettingsService, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	return settingsService, nil
}
