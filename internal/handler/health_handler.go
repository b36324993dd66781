package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 3 * time.Second

// Check pings one backing service.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks  []Check
	startAt time.Time
}

// NewHealthHandler creates a health handler over the given dependency checks.
func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, startAt: time.Now()}
}

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ReadyResponse is the readiness probe body.
type ReadyResponse struct {
	Status        string                 `json:"status"`
	Checks        map[string]CheckResult `json:"checks"`
	UptimeSeconds int                    `json:"uptime_seconds"`
}

// Live godoc
// @Summary Liveness probe
// @Tags ops
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (h *HealthHandler) Live(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready godoc
// @Summary Readiness probe with dependency checks
// @Tags ops
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	resp := ReadyResponse{
		Status:        "healthy",
		Checks:        make(map[string]CheckResult, len(h.checks)),
		UptimeSeconds: int(time.Since(h.startAt).Seconds()),
	}
	for _, check := range h.checks {
		start := time.Now()
		err := check.Ping(ctx)
		result := CheckResult{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			result.Status = "down"
			result.Error = "connection failed"
			resp.Status = "degraded"
		}
		resp.Checks[check.Name] = result
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}
