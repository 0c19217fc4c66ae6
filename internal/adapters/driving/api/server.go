// Package api provides the HTTP adapter: health, question answering and
// access to the source documents the index was built from.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	// maxAskBody bounds the JSON body of POST /ask.
	maxAskBody = 1 << 20

	// maxUploadBody bounds the zip archive accepted by POST /sources.
	maxUploadBody = 100 << 20
)

// Server serves the HTTP API.
type Server struct {
	answer  driving.AnswerService
	docsDir string
	handler http.Handler
}

// NewServer creates a server answering through answer and serving source
// files from docsDir.
func NewServer(answer driving.AnswerService, docsDir string) *Server {
	s := &Server{
		answer:  answer,
		docsDir: docsDir,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /sources", s.handleListSources)
	mux.HandleFunc("POST /sources", s.handleUploadSources)
	mux.HandleFunc("GET /sources/{filename}", s.handleGetSource)

	s.handler = withRequestID(withRecovery(withLogging(mux)))
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on addr and serves until the context is cancelled, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until the context is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logger.Info("listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
