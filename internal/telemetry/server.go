package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

// heartbeatStale is how old the scanner heartbeat may be before /health
// reports degraded.
const heartbeatStale = 2 * time.Minute

// Server is the read-only operational HTTP surface: health, metrics and the
// recent signal feed. It never mutates scanner state.
type Server struct {
	router  *mux.Router
	server  *http.Server
	kv      store.KV
	metrics *Metrics
}

// NewServer builds the server on the given listen address.
func NewServer(addr string, kv store.KV, metrics *Metrics) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		kv:      kv,
		metrics: metrics,
	}
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(
		metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Run serves until the context ends, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("telemetry server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Heartbeat string `json:"heartbeat,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok"}
	code := http.StatusOK

	if err := s.kv.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		code = http.StatusServiceUnavailable
	}

	if raw, err := s.kv.Get(r.Context(), store.HealthKey("scanner")); err == nil {
		resp.Heartbeat = string(raw)
		if ts, err := time.Parse(time.RFC3339, string(raw)); err == nil &&
			time.Since(ts) > heartbeatStale {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	} else {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	rows, err := s.kv.ListRange(r.Context(), store.SignalHistoryKey())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, raw := range rows {
		out = append(out, json.RawMessage(raw))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("response encode failed")
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(started)).
			Msg("http request")
	})
}
