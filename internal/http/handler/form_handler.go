package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// FormHandler handles HTTP requests for form layouts
type FormHandler struct {
	forms  *service.FormService
	logger *zap.Logger
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(forms *service.FormService, logger *zap.Logger) *FormHandler {
	return &FormHandler{forms: forms, logger: logger}
}

// List returns the tenant's form definitions
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.forms.ListForms(r.Context(), r.URL.Query().Get("entityType"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"forms": forms})
}

// Schema returns the effective form schema for an entity type,
// materializing the built-in default on first access and appending
// active custom fields.
func (h *FormHandler) Schema(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	formType := r.URL.Query().Get("formType")
	if formType == "" {
		formType = "create"
	}
	form, err := h.forms.GetSchema(r.Context(), entityType, formType)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

// Update edits a form layout
func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateFormRequest
	if !decodeBody(w, r, &req) {
		return
	}
	form, err := h.forms.UpdateForm(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}
