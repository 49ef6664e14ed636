package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxBodyBytes caps webhook payloads at 2 MiB.
const maxBodyBytes = 2 << 20

// Server exposes the relay over HTTP: the webhook endpoint, a root alias for
// misconfigured senders, and a plain-text healthcheck.
type Server struct {
	relay  *Relay
	addr   string
	logger *slog.Logger
	server *http.Server
}

type ServerConfig struct {
	Host   string
	Port   int
	Relay  *Relay
	Logger *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	return &Server{
		relay:  cfg.Relay,
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		logger: cfg.Logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chatwoot-bot", s.handleWebhook)
	// Some senders are configured with the bare root URL.
	mux.HandleFunc("POST /{$}", s.handleWebhook)
	mux.HandleFunc("GET /{$}", s.handleHealth)
	return mux
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("relay server starting", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("relay server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	}
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, "OK")
}

// handleWebhook always answers 200 with an empty body. The sender retries on
// non-2xx, and a retried relay would post a duplicate outgoing message,
// which is worse than a dropped reply.
func (s *Server) handleWebhook(rw http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", uuid.NewString())

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic in relay pipeline", "panic", rec)
		}
		rw.WriteHeader(http.StatusOK)
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("failed to read webhook body", "err", err)
		return
	}
	defer r.Body.Close()

	s.relay.Handle(r.Context(), body)
}
