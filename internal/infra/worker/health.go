package worker

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	hhttp "werss-client/internal/handler/http"
	"werss-client/internal/handler/http/control"
	"werss-client/internal/handler/http/requestid"
	"werss-client/internal/handler/http/respond"
	"werss-client/internal/observability/tracing"
)

const (
	shutdownTimeout    = 5 * time.Second
	controlTimeout     = 30 * time.Second
	maxControlBodySize = 64 << 10
)

// healthResponse is the body of the liveness and readiness probes.
type healthResponse struct {
	Status string `json:"status"`
}

// HealthServer serves probes, metrics and the monitor control endpoints on
// one listener. Every request gets a request id, a server span and an
// access log line.
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	control *control.Handler
	isReady atomic.Bool
	server  *http.Server
	bound   chan net.Addr
}

// NewHealthServer creates the server. ctrl may be nil, in which case only
// probes and /metrics are served.
func NewHealthServer(addr string, ctrl *control.Handler, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthServer{
		addr:    addr,
		logger:  logger,
		control: ctrl,
		bound:   make(chan net.Addr, 1),
	}
}

// Handler builds the routed, instrumented handler.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", hhttp.Instrument("/health", http.HandlerFunc(h.handleLiveness)))
	mux.Handle("GET /health/ready", hhttp.Instrument("/health/ready", http.HandlerFunc(h.handleReadiness)))
	mux.Handle("GET /metrics", hhttp.MetricsHandler())
	if h.control != nil {
		for _, rt := range h.control.Routes() {
			mux.Handle(rt.Pattern, hhttp.Instrument(rt.Label, rt.Handler))
		}
	}

	return hhttp.Chain(mux,
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Logging(h.logger),
		hhttp.Recover(h.logger),
		hhttp.LimitRequestBody(maxControlBodySize),
		hhttp.Timeout(controlTimeout),
	)
}

// Start serves until ctx is cancelled, then shuts down gracefully within
// five seconds. It returns http.ErrServerClosed after a clean shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		h.logger.Error("health server failed", slog.String("addr", h.addr), slog.Any("error", err))
		return err
	}
	h.bound <- ln.Addr()

	h.server = &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      controlTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", ln.Addr().String()))
		errChan <- h.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// Addr blocks until the listener is bound and returns its address. It is
// useful with port 0.
func (h *HealthServer) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case a := <-h.bound:
		h.bound <- a
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetReady flips the readiness probe.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		respond.JSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	respond.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}
