package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbase/internal/adapters/driving/api"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

var (
	serveAddr string
	serveDocs string
)

// runServer serves the HTTP API until ctx is done. Tests replace it.
var runServer = func(ctx context.Context, srv *api.Server, addr string) error {
	return srv.Run(ctx, addr)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question answering HTTP API",
	Long: `Start the HTTP API:

  GET  /health              liveness, never touches the models
  POST /ask                 {"question": "..."} -> {"answer", "context"}
  GET  /sources             list source documents
  POST /sources             replace source documents from a .zip upload
  GET  /sources/{filename}  download a source document

Models and the index load once at startup. Prompt templates in the
prompts directory are reloaded when they change.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().StringVar(&serveDocs, "docs", "", "source documents directory (default from server.docs_dir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, prompts, settings, err := openChainCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	// Fail at startup rather than on the first request.
	if _, err := cache.Get(ctx); err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	watchPrompts(ctx, prompts)

	addr := settings.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	docs := settings.Server.DocsDir
	if serveDocs != "" {
		docs = serveDocs
	}

	cmd.Printf("kbase listening on %s\n", addr)
	return runServer(ctx, api.NewServer(cache, docs), addr)
}

// watchPrompts reloads prompt templates on change until ctx is done.
// Loading once first creates the directory with its default files.
func watchPrompts(ctx context.Context, prompts *file.PromptStore) {
	if _, err := prompts.Load(driven.PromptRAGAnswer); err != nil {
		logger.Warn("prompt templates unavailable: %v", err)
		return
	}
	go func() {
		err := file.WatchPrompts(ctx, prompts.Dir(), prompts, func(name string) {
			logger.Info("reloaded prompt %s", name)
		})
		if err != nil {
			logger.Warn("prompt watcher stopped: %v", err)
		}
	}()
}
