package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthHandler reports process liveness and backing-store reachability.
type HealthHandler struct {
	redis   *redis.Client
	version string
}

// NewHealthHandler builds the handler. redisClient may be nil.
func NewHealthHandler(redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{redis: redisClient, version: version}
}

// Check answers the health probe.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"status":  "ok",
		"version": h.version,
		"time":    time.Now().UTC(),
	}
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			out["redis"] = "unreachable"
		} else {
			out["redis"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, out)
}
