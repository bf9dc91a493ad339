package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/bet-analytics/internal/services"
	"github.com/jstittsworth/bet-analytics/pkg/database"
)

// Pinger is any dependency that can report liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db       *database.DB
	cache    Pinger
	hub      *services.DataIntegrationHub
	breakers *services.CircuitBreakerService
	started  time.Time
}

// NewHealthHandler creates the health handler. db, cache and breakers may be nil.
func NewHealthHandler(db *database.DB, cache Pinger, hub *services.DataIntegrationHub, breakers *services.CircuitBreakerService) *HealthHandler {
	return &HealthHandler{
		db:       db,
		cache:    cache,
		hub:      hub,
		breakers: breakers,
		started:  time.Now(),
	}
}

// GetHealth is the liveness probe; it returns 200 while the process runs
func (h *HealthHandler) GetHealth(c *gin.Context) {
	body := gin.H{
		"status":         "ok",
		"service":        "bet-analytics",
		"timestamp":      time.Now().UTC(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"adapters":       h.hub.Adapters(),
		"sources":        h.hub.SourceMetrics(),
	}
	if h.breakers != nil {
		body["circuit_breakers"] = h.breakers.Statuses()
	}
	c.JSON(http.StatusOK, body)
}

// GetReady is the readiness probe: storage must answer and a snapshot must exist
func (h *HealthHandler) GetReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			checks["database"] = err.Error()
			ready = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			ready = false
		} else {
			checks["cache"] = "ok"
		}
	}
	if last := h.hub.LastSync(); last.IsZero() {
		checks["snapshot"] = "pending"
		ready = false
	} else {
		checks["snapshot"] = last.UTC()
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
