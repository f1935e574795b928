package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hpungsan/clipd/internal/dispatch"
	"github.com/hpungsan/clipd/internal/errors"
	"github.com/hpungsan/clipd/internal/metric"
	"github.com/hpungsan/clipd/internal/protocol"
)

const shutdownGrace = 5 * time.Second

// HTTPConfig wires the HTTP surface. Metrics and Hub are optional; their
// routes disappear when nil.
type HTTPConfig struct {
	Addr       string
	Dispatcher *dispatch.Dispatcher
	Metrics    *metric.Metrics
	Hub        *Hub
	Version    string
	Log        *slog.Logger
}

// HTTP serves the JSON command endpoint plus health, metrics and events.
type HTTP struct {
	srv *http.Server
	hub *Hub
	log *slog.Logger
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	h := &httpHandlers{
		dispatcher: cfg.Dispatcher,
		version:    cfg.Version,
		log:        cfg.Log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", h.handleCommand)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	if cfg.Hub != nil {
		mux.HandleFunc("GET /events", cfg.Hub.HandleWS)
	}

	return &HTTP{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           securityHeaders(mux),
			ReadHeaderTimeout: 5 * time.Second,
		},
		hub: cfg.Hub,
		log: cfg.Log,
	}
}

// Addr returns the configured listen address.
func (s *HTTP) Addr() string {
	return s.srv.Addr
}

// Handler exposes the routed handler, mainly so tests can drive the surface
// through httptest.
func (s *HTTP) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then drains with a bounded grace
// period. WebSocket subscribers are hung up explicitly since Shutdown does
// not touch hijacked connections.
func (s *HTTP) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	s.log.Info("http server listening", "addr", s.srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if s.hub != nil {
			s.hub.Close()
		}
		err := s.srv.Shutdown(shutCtx)
		<-errCh
		s.log.Info("http server stopped")
		return err
	}
}

// securityHeaders adds baseline headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type httpHandlers struct {
	dispatcher *dispatch.Dispatcher
	version    string
	log        *slog.Logger
}

// handleCommand decodes one command document, runs it, and returns the
// payload document. Command failures ride inside a 200 payload; only
// transport-level problems map to HTTP error statuses.
func (h *httpHandlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd protocol.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, h.log, errors.NewParseFailed(err))
		return
	}

	p, err := h.dispatcher.Submit(r.Context(), cmd)
	if err != nil {
		if stderrors.Is(err, dispatch.ErrStopped) {
			writeError(w, h.log, &errors.ClipError{
				Code:    errors.ErrUnavailable,
				Status:  503,
				Message: "daemon is shutting down",
			})
			return
		}
		writeError(w, h.log, errors.NewInvalidRequest(err.Error()))
		return
	}

	writeJSON(w, h.log, http.StatusOK, p)
}

func (h *httpHandlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.log, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// errorDoc is the HTTP error envelope.
type errorDoc struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeError(w http.ResponseWriter, log *slog.Logger, cerr *errors.ClipError) {
	writeJSON(w, log, cerr.Status, errorDoc{Error: errorBody{
		Code:    string(cerr.Code),
		Message: cerr.Message,
		Status:  cerr.Status,
	}})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("response write failed", "error", err)
	}
}
