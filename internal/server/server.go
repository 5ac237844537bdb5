package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/gexpin-engine/internal/engine"
	"github.com/dgnsrekt/gexpin-engine/internal/journal"
	"github.com/dgnsrekt/gexpin-engine/internal/monitor"
	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

// EngineView is the read side of the engine served over HTTP.
type EngineView interface {
	Status() engine.StatusView
	OpenPositions() []engine.PositionView
	RecentDecisions() []engine.DecisionView
}

// Server exposes the engine state over HTTP and streams events over
// WebSocket. It also acts as an engine sink: each setup and decision is
// broadcast to connected clients, rate-limited so a burst replay does not
// flood the stream.
type Server struct {
	engine  EngineView
	hub     *Hub
	limiter *rate.Limiter
	logger  *zap.Logger
	http    *http.Server
}

// Compile-time interface verification
var _ engine.Sink = (*Server)(nil)

// New builds the server. streamPerSec caps WebSocket event fan-out; zero
// disables the cap.
func New(view EngineView, addr string, streamPerSec float64, logger *zap.Logger) *Server {
	s := &Server{
		engine: view,
		hub:    NewHub(logger),
		logger: logger,
	}
	if streamPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(streamPerSec), int(streamPerSec)+1)
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	r.Use(zapLoggerMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/positions", s.handlePositions)
	r.Get("/decisions", s.handleDecisions)
	r.Get("/ws", s.hub.HandleWS)

	return r
}

// Start runs the hub and the HTTP listener until the context ends.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// RecordSetup broadcasts an evaluation outcome to stream clients.
func (s *Server) RecordSetup(at time.Time, setup pin.Setup) {
	s.publish(journal.NewSetupEvent(at, setup))
}

// RecordExit broadcasts a monitor decision to stream clients.
func (s *Server) RecordExit(p *monitor.Position, d monitor.Decision) {
	s.publish(journal.NewExitEvent(p, d))
}

func (s *Server) publish(event any) {
	if s.limiter != nil && !s.limiter.Allow() {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("encoding stream event", zap.Error(err))
		return
	}
	s.hub.Broadcast(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.OpenPositions())
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.RecentDecisions())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r)
		})
	}
}
