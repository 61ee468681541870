// Package control serves the daemon's monitor control endpoints. The
// `werss notify` commands talk to these.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"werss-client/internal/handler/http/respond"
	"werss-client/internal/usecase/monitor"
	"werss-client/internal/usecase/notify"
)

// Monitor is the subset of *monitor.Monitor the endpoints drive.
type Monitor interface {
	Status() monitor.Status
	Enable(ctx context.Context) (bool, error)
	Disable(ctx context.Context)
	Toggle(ctx context.Context) (bool, error)
	ResetTitle()
}

// ChannelHealthReporter reports alert channel circuit breaker state.
type ChannelHealthReporter interface {
	GetChannelHealth() []notify.ChannelHealthStatus
}

// ChannelHealthResponse is the body of GET /health/channels.
type ChannelHealthResponse struct {
	Healthy  bool                         `json:"healthy"`
	Channels []notify.ChannelHealthStatus `json:"channels"`
}

// Handler implements the control endpoints.
type Handler struct {
	Monitor  Monitor
	Channels ChannelHealthReporter
	Logger   *slog.Logger
}

// Route pairs a ServeMux pattern with a fixed metrics label.
type Route struct {
	Pattern string
	Label   string
	Handler http.HandlerFunc
}

// Routes lists the endpoints. Channels may be nil, in which case
// /health/channels answers 503.
func (h *Handler) Routes() []Route {
	return []Route{
		{Pattern: "GET /monitor", Label: "/monitor", Handler: h.status},
		{Pattern: "POST /monitor/enable", Label: "/monitor/enable", Handler: h.enable},
		{Pattern: "POST /monitor/disable", Label: "/monitor/disable", Handler: h.disable},
		{Pattern: "POST /monitor/toggle", Label: "/monitor/toggle", Handler: h.toggle},
		{Pattern: "POST /monitor/reset-title", Label: "/monitor/reset-title", Handler: h.resetTitle},
		{Pattern: "GET /health/channels", Label: "/health/channels", Handler: h.channelHealth},
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Monitor.Status())
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Monitor.Enable(r.Context()); err != nil {
		h.writeEnableError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.Monitor.Status())
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	h.Monitor.Disable(r.Context())
	respond.JSON(w, http.StatusOK, h.Monitor.Status())
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Monitor.Toggle(r.Context()); err != nil {
		h.writeEnableError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.Monitor.Status())
}

func (h *Handler) resetTitle(w http.ResponseWriter, r *http.Request) {
	h.Monitor.ResetTitle()
	respond.JSON(w, http.StatusOK, h.Monitor.Status())
}

// writeEnableError maps Enable failures. A superseded enable is a conflict;
// anything else came from the backend or the permission prompt.
func (h *Handler) writeEnableError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrSuperseded):
		respond.Error(w, http.StatusConflict, err)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(w, http.StatusGatewayTimeout, err)
	default:
		h.logger().Warn("enable via control endpoint failed", slog.String("error", respond.SanitizeError(err)))
		respond.Error(w, http.StatusBadGateway, err)
	}
}

// channelHealth answers 503 when any enabled channel has its breaker open.
func (h *Handler) channelHealth(w http.ResponseWriter, r *http.Request) {
	if h.Channels == nil {
		respond.Error(w, http.StatusServiceUnavailable, errors.New("notification service not initialized"))
		return
	}

	statuses := h.Channels.GetChannelHealth()
	healthy := true
	for _, st := range statuses {
		if st.Enabled && st.CircuitBreakerOpen {
			healthy = false
			break
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	respond.JSON(w, code, ChannelHealthResponse{Healthy: healthy, Channels: statuses})
}
