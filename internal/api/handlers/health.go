package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	statusOK   = "ok"
	statusFail = "fail"
)

// ReadinessChecker reports whether the service's dependencies answer.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler serves /health/live and /health/ready.
type HealthHandler struct {
	checker ReadinessChecker
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates the handler. A nil checker is always ready.
func NewHealthHandler(checker ReadinessChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, timeout: 2 * time.Second, logger: logger}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// Live answers 200 while the process runs.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready answers 200 when the metadata store responds, 503 otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: statusOK, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK

	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.checker.Ready(ctx); err != nil {
			h.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			resp.Status = statusFail
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
