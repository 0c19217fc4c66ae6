package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

var (
	indexClean    bool
	indexYes      bool
	indexPatterns []string
)

// isTerminal reports whether stdin is interactive. Tests replace it.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build <docs_dir>",
	Short: "Build the vector index from a directory of documents",
	Long: `Load every matching document under docs_dir, split it into overlapping
chunks, embed them and persist the index to the configured directory.

The index is built offline. Restart any running server afterwards so it
picks up the new index.

Examples:
  kbase index build ./docs
  kbase index build ./docs --pattern "**/*.md" --pattern "**/*.txt"
  kbase index build ./docs --clean --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexBuild,
}

func init() {
	indexBuildCmd.Flags().BoolVar(&indexClean, "clean", false, "delete the existing index before building")
	indexBuildCmd.Flags().BoolVarP(&indexYes, "yes", "y", false, "skip the --clean confirmation prompt")
	indexBuildCmd.Flags().StringArrayVarP(&indexPatterns, "pattern", "p", nil, "glob selecting documents (repeatable)")
	indexCmd.AddCommand(indexBuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	if indexClean && !indexYes {
		ok, err := confirmClean(cmd, settings.VectorStore.Dir)
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	indexer, release, err := newIndexer(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer release()

	report, err := indexer.Build(cmd.Context(), domain.BuildRequest{
		DocsDir:  args[0],
		Patterns: indexPatterns,
		Clean:    indexClean,
	})
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	cmd.Printf("Indexed %d chunks from %d documents into %s\n", report.Chunks, report.Documents, report.Dir)
	if len(report.Failures) > 0 {
		cmd.Printf("Skipped %d documents:\n", len(report.Failures))
		for _, f := range report.Failures {
			cmd.Printf("  %s: %v\n", f.SourceID, f.Err)
		}
	}
	return nil
}

// confirmClean asks before the index directory is wiped. Without a
// terminal to ask on, --yes is required.
func confirmClean(cmd *cobra.Command, dir string) (bool, error) {
	if !isTerminal() {
		return false, errors.New("--clean deletes the existing index; pass --yes to confirm non-interactively")
	}
	cmd.Printf("This deletes the index in %s. Continue? [y/N] ", dir)
	return readYes(cmd.InOrStdin())
}

func readYes(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
