// Package httpstatus serves live run progress over HTTP while a
// reconciliation is in progress.
package httpstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/citysync/internal/ports/primary"
)

const shutdownTimeout = 5 * time.Second

// Server exposes /healthz and /progress.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	source     primary.ProgressSource
	logger     *zap.Logger
}

// NewServer creates a status server listening on addr.
func NewServer(addr string, source primary.ProgressSource, logger *zap.Logger) *Server {
	router := mux.NewRouter()
	s := &Server{
		router: router,
		source: source,
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.healthCheck).Methods(http.MethodGet)
	s.router.HandleFunc("/progress", s.progress).Methods(http.MethodGet)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down status server: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// progressResponse separates "a run happened" from "a run is executing now".
type progressResponse struct {
	HasRun   bool              `json:"has_run"`
	Running  bool              `json:"running"`
	RunID    string            `json:"run_id,omitempty"`
	Counters *primary.Counters `json:"counters,omitempty"`
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	p, ok := s.source.Progress()
	if !ok {
		writeJSON(w, http.StatusOK, progressResponse{})
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		HasRun:   true,
		Running:  p.Running,
		RunID:    p.RunID,
		Counters: &p.Counters,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
