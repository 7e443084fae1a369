package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

// DBPinger is satisfied by the admin *sqlx.DB of the tenant registry.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger is satisfied by *redis.Client.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type HealthHandler struct {
	db      DBPinger
	redis   RedisPinger
	timeout time.Duration
	started time.Time
	log     logrus.FieldLogger
}

func NewHealthHandler(db DBPinger, redis RedisPinger, timeout time.Duration, log logrus.FieldLogger) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		db:      db,
		redis:   redis,
		timeout: timeout,
		started: time.Now(),
		log:     log,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) status() HealthStatus {
	now := time.Now()
	return HealthStatus{
		Status:    "ok",
		Timestamp: now,
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
	}
}

// Health reports that the process is serving, without touching dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.status())
}

// Ready pings the admin database handle and Redis under one deadline.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", h.db.PingContext},
		{"redis", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }},
	}

	status := h.status()
	status.Checks = make(map[string]string, len(checks))
	for _, c := range checks {
		if err := c.ping(ctx); err != nil {
			h.log.WithError(err).WithField("check", c.name).Warn("Readiness check failed")
			status.Status = "error"
			status.Checks[c.name] = "failed"
			continue
		}
		status.Checks[c.name] = "ok"
	}

	if status.Status != "ok" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}
	response.Success(w, status)
}
