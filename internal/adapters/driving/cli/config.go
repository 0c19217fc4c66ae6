package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/kbase/internal/adapters/driven/ai"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/services"
)

// ConfigValidator checks resolved settings against live providers.
type ConfigValidator interface {
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error
	ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error
	ValidateIndex(ctx context.Context, settings *domain.Settings) (domain.IndexInfo, error)
}

// configValidator is used by "config check". Tests replace it.
var configValidator ConfigValidator = ai.NewConfigValidator()

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Print the configuration after defaults, the config file and the
environment are applied. API keys are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a configuration value",
	Long: `Store a value in the config file. List values are comma separated.

Keys:
  ` + strings.Join(services.KnownKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration against the providers and index",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	out, err := yaml.Marshal(settings.Redacted())
	if err != nil {
		return fmt.Errorf("render settings: %w", err)
	}
	cmd.Printf("# %s\n", svc.ConfigPath())
	cmd.Print(string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	failed := false
	report := func(what string, err error) {
		if err != nil {
			failed = true
			cmd.Printf("  ✗ %-10s %v\n", what, err)
			return
		}
		cmd.Printf("  ✓ %s\n", what)
	}

	ctx := cmd.Context()
	report("settings", settings.Validate())
	report("embedding", configValidator.ValidateEmbedding(ctx, &settings.Embedding))
	report("llm", configValidator.ValidateLLM(ctx, &settings.LLM))

	info, err := configValidator.ValidateIndex(ctx, settings)
	report("index", err)
	if err == nil {
		if info.Count == 0 {
			cmd.Println("    index is empty; run \"kbase index build <docs_dir>\"")
		} else {
			cmd.Printf("    %d chunks, %s, dimension %d\n", info.Count, info.EmbeddingModel, info.Dimension)
		}
	}

	if failed {
		return fmt.Errorf("%w: configuration check failed", domain.ErrConfiguration)
	}
	return nil
}
