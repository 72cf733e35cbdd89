package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	webhookReadTimeout     = 30 * time.Second
	webhookWriteTimeout    = 30 * time.Second
	webhookIdleTimeout     = 60 * time.Second
	webhookShutdownTimeout = 5 * time.Second
	maxRequestBodySize     = 1024 * 1024 // 1MB max request body
)

// Server receives CI provider webhook requests and feeds them to the
// correlator. Malformed payloads are acknowledged with 200 so providers do
// not retry what can never succeed.
type Server struct {
	server     *http.Server
	port       int
	correlator *Correlator
	logger     *slog.Logger
	mu         sync.Mutex
	started    bool
	done       chan struct{}
	doneOnce   sync.Once
}

// NewServer creates a new webhook server instance.
func NewServer(port int, correlator *Correlator, logger *slog.Logger) *Server {
	return &Server{
		port:       port,
		correlator: correlator,
		logger:     logger.With("module", "webhook_server", "port", port),
		done:       make(chan struct{}),
	}
}

// Start starts the HTTP server and begins handling webhook requests.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  webhookReadTimeout,
		WriteTimeout: webhookWriteTimeout,
		IdleTimeout:  webhookIdleTimeout,
	}

	s.started = true
	s.logger.Info("Starting webhook server", "addr", s.server.Addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Webhook server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
		defer cancel()

		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error("Error during webhook server shutdown", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the webhook server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info("Stopping webhook server")

	shutdownCtx, cancel := context.WithTimeout(ctx, webhookShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during server shutdown", "error", err)

		return err
	}

	s.started = false
	s.doneOnce.Do(func() {
		close(s.done)
	})

	return nil
}

// Done returns a channel that's closed when the server is shut down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Handler returns the HTTP handler so it can also be mounted in tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/gitlab", s.handleGitLab)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// handleGitLab handles incoming GitLab pipeline events.
func (s *Server) handleGitLab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Only POST method allowed")

		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("Error reading request body", "error", err)
		s.writeErrorResponse(w, http.StatusBadRequest, "Error reading request body")

		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		// Acknowledge so the provider stops retrying a body that will
		// never parse.
		s.logger.Warn("Discarding non-JSON webhook body", "error", err, "remote_addr", r.RemoteAddr)
		s.writeAccepted(w, "discarded")

		return
	}

	if err := s.correlator.ProcessPipelineEvent(r.Context(), payload); err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			s.logger.Warn("Discarding invalid pipeline event", "error", err, "remote_addr", r.RemoteAddr)
			s.writeAccepted(w, "discarded")

			return
		}

		s.logger.Error("Error processing pipeline event", "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "Error processing webhook")

		return
	}

	s.writeAccepted(w, "processed")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Error("Error encoding health response", "error", err)
	}
}

func (s *Server) writeAccepted(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": result,
	}); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"message": message,
		"code":    statusCode,
	}); err != nil {
		s.logger.Error("Error encoding error response", "error", err)
	}
}
