package handler

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db     *gorm.DB
	rdb    *redis.Client
	quota  *quota.Client
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB, rdb *redis.Client, quotaClient *quota.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, quota: quotaClient, logger: logger}
}

// Live reports process liveness
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DB reports database connectivity
func (h *HealthHandler) DB(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "component": "database"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports full readiness: database, redis and the quota service.
// Redis and quota degrade gracefully at runtime, so their failures are
// reported but still mark the service unready for rollout gating.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"quota":    "ok",
	}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		components["database"] = "down"
		healthy = false
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(r.Context()).Err(); err != nil {
			components["redis"] = "down"
			healthy = false
		}
	} else {
		components["redis"] = "disabled"
	}
	if err := h.quota.Health(r.Context()); err != nil {
		components["quota"] = "down"
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]interface{}{"status": components})
}
