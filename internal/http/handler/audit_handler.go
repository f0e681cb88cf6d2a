package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// AuditHandler handles HTTP requests for the audit trail
type AuditHandler struct {
	audit  *service.AuditLogService
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// List returns a filtered page of audit entries newest first
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.audit.List(r.Context(), parseListParams(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListForEntity returns one record's audit history
func (h *AuditHandler) ListForEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID, ok := pathID(w, r, "entityId")
	if !ok {
		return
	}
	entries, err := h.audit.ListByEntity(r.Context(), entityType, entityID, queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
