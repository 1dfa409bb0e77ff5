package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck tests one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports dependency health. Required checks fail the endpoint;
// optional ones only mark the response degraded.
type HealthHandler struct {
	required map[string]HealthCheck
	optional map[string]HealthCheck
	now      func() time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		required: map[string]HealthCheck{},
		optional: map[string]HealthCheck{},
		now:      time.Now,
	}
}

// Require registers a check whose failure makes the service unhealthy
func (h *HealthHandler) Require(name string, check HealthCheck) *HealthHandler {
	h.required[name] = check
	return h
}

// Optional registers a check whose failure only degrades the service
func (h *HealthHandler) Optional(name string, check HealthCheck) *HealthHandler {
	h.optional[name] = check
	return h
}

// HealthResponse is the /health payload
type HealthResponse struct {
	Status string            `json:"status" example:"healthy"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks"`
}

// Health godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.required)+len(h.optional))
	checks := make([]HealthCheck, 0, cap(names))
	for name, check := range h.required {
		names = append(names, name)
		checks = append(checks, check)
	}
	for name, check := range h.optional {
		names = append(names, name)
		checks = append(checks, check)
	}

	results := make([]error, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{
		Status: "healthy",
		Time:   h.now().UTC().Format(time.RFC3339),
		Checks: make(map[string]string, len(names)),
	}
	status := http.StatusOK
	for i, name := range names {
		if results[i] == nil {
			resp.Checks[name] = "ok"
			continue
		}
		resp.Checks[name] = "error"
		logger.L(c.Request.Context()).Warn("Health check failed", zap.String("check", name), zap.Error(results[i]))
		if _, ok := h.required[name]; ok {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else if resp.Status == "healthy" {
			resp.Status = "degraded"
		}
	}
	c.JSON(status, resp)
}
