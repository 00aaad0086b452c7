package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danaru/lending-engine/pkg/response"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db      *sqlx.DB
	redis   *redis.Client
	started time.Time
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		started: time.Now(),
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, HealthStatus{
		Status:    "ok",
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	})
}

// Ready reports whether the service can actually serve loan traffic:
// postgres reachable with the loans schema migrated, and redis answering.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pgStart := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		status.Status = "error"
		status.Checks["postgres"] = "failed: " + err.Error()
	} else {
		// Every request path needs the loans table, so readiness holds
		// until migrations have run.
		var tables int
		schemaQuery := `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'loans'`
		if err := h.db.GetContext(ctx, &tables, schemaQuery); err != nil || tables == 0 {
			status.Status = "error"
			status.Checks["postgres"] = "loans schema not migrated"
		} else {
			status.Checks["postgres"] = fmt.Sprintf("ok (%s)", time.Since(pgStart).Round(time.Millisecond))
		}
	}

	redisStart := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		status.Status = "error"
		status.Checks["redis"] = "failed: " + err.Error()
	} else {
		status.Checks["redis"] = fmt.Sprintf("ok (%s)", time.Since(redisStart).Round(time.Millisecond))
	}

	if status.Status == "error" {
		response.Error(w, http.StatusServiceUnavailable, "service not ready", nil)
		return
	}

	response.Success(w, status)
}
