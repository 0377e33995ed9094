// Package server exposes consultations over HTTP: a JSON control surface, an
// SSE event stream and an equivalent websocket stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/huddle-core/core"
	"github.com/koscakluka/huddle-core/core/emergency"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultSessionIdleTimeout = 10 * time.Minute
	DefaultPruneInterval      = time.Minute
	shutdownTimeout           = 5 * time.Second
)

// EmergencyMatcher answers the quick red-flag check endpoint.
type EmergencyMatcher interface {
	Match(caseText string) emergency.Result
}

type Server struct {
	orchestrator   *orchestration.Orchestrator
	matcher        EmergencyMatcher
	strictEvents   bool
	allowedOrigins []string
	idleTimeout    time.Duration
	pruneInterval  time.Duration
	upgrader       websocket.Upgrader
}

type Option func(*Server)

// WithStrictEvents validates every event against the event schema before it
// is written to a stream.
func WithStrictEvents(strict bool) Option {
	return func(s *Server) { s.strictEvents = strict }
}

// WithAllowedOrigins restricts cross origin requests. No origins means any
// origin is allowed.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

func WithEmergencyMatcher(matcher EmergencyMatcher) Option {
	return func(s *Server) {
		if matcher != nil {
			s.matcher = matcher
		}
	}
}

// WithSessionIdleTimeout sets how long a created session may wait for a
// stream before it is dropped, and how often that is checked.
func WithSessionIdleTimeout(timeout, interval time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = timeout
		s.pruneInterval = interval
	}
}

func NewServer(orchestrator *orchestration.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orchestrator:  orchestrator,
		matcher:       emergency.NewPatternClassifier(),
		idleTimeout:   DefaultSessionIdleTimeout,
		pruneInterval: DefaultPruneInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}
	return s
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/debate/start", s.handleStart)
	mux.HandleFunc("GET /api/debate/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /api/debate/{id}/ws", s.handleWebsocket)
	mux.HandleFunc("POST /api/debate/{id}/interject", s.handleInterject)
	mux.HandleFunc("POST /api/debate/{id}/skip-question", s.handleSkipQuestion)
	mux.HandleFunc("POST /api/check-emergency", s.handleCheckEmergency)

	return otelhttp.NewHandler(s.withCORS(mux), "huddle")
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.pruneIdleSessions(ctx)

	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()
	logger.Info("listening", "addr", listener.Addr().String())

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) pruneIdleSessions(ctx context.Context) {
	if s.idleTimeout <= 0 || s.pruneInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := s.orchestrator.Store().PruneIdle(s.idleTimeout); pruned > 0 {
				logger.Info("pruned idle sessions", "count", pruned)
			}
		}
	}
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.allowedOrigins) == 0 || origin == "" {
		return true
	}
	return slices.Contains(s.allowedOrigins, origin)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			if len(s.allowedOrigins) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
