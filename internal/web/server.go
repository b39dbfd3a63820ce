package web

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Server wraps the inference/session HTTP surface of the orchestrator.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and
// session controller.
func NewServer(addr string, handlers *Handlers) *Server {
	return &Server{
		addr:     addr,
		handlers: handlers,
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handlers.HandleStatus)
	mux.HandleFunc("POST /api/classify", s.handlers.HandleClassify)
	mux.HandleFunc("POST /api/session/start", s.handlers.HandleStart)
	mux.HandleFunc("POST /api/session/stop", s.handlers.HandleStop)
	mux.HandleFunc("GET /api/session/scores", s.handlers.HandleScores)

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("orchestrator server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
