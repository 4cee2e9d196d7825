package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/commerce-core/internal/lib/api/response"
)

// HealthCheck pings one dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// HealthHandler handles GET /health. Any failing check turns the answer into 503.
func HealthHandler(log *slog.Logger, checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.HealthHandler"
		logger := log.With(slog.String("op", op))

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", Components: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				logger.Warn("health check failed", slog.String("component", c.Name), slog.Any("error", err))
				resp.Components[c.Name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Components[c.Name] = "ok"
		}
		response.JSON(w, logger, status, resp)
	}
}
