package handler

import (
	"net/http"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// CustomFieldHandler handles HTTP requests for custom field definitions
type CustomFieldHandler struct {
	fields *service.CustomFieldService
	logger *zap.Logger
}

// NewCustomFieldHandler creates a new CustomFieldHandler
func NewCustomFieldHandler(fields *service.CustomFieldService, logger *zap.Logger) *CustomFieldHandler {
	return &CustomFieldHandler{fields: fields, logger: logger}
}

// List returns an entity type's field definitions
func (h *CustomFieldHandler) List(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entityType")
	activeOnly := r.URL.Query().Get("includeInactive") != "true"
	fields, err := h.fields.List(r.Context(), entityType, activeOnly)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"fields": fields})
}

// Get returns a field definition by id
func (h *CustomFieldHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	field, err := h.fields.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, field)
}

// Create defines a new custom field
func (h *CustomFieldHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	field, err := h.fields.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, field)
}

// Update edits a field definition's mutable attributes
func (h *CustomFieldHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateCustomFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	field, err := h.fields.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, field)
}

// Delete removes a field definition; stored values remain in documents
func (h *CustomFieldHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.fields.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
