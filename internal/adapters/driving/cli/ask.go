package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieve the passages most relevant to the question and ask the
language model to answer from them. The answer cites passages as [^n];
the numbered context follows it.

Examples:
  kbase ask "How do I rotate the signing keys?"
  kbase ask --json "What ports does the gateway use?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer and context as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	cache, _, _, err := openChainCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	result, err := cache.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	cmd.Println(result.Answer)
	if result.Context != "" {
		cmd.Println()
		cmd.Println("Context:")
		cmd.Println(result.Context)
	}
	return nil
}
