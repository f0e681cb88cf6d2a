package handler

import (
	"net/http"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// LeadHandler handles HTTP requests for leads
type LeadHandler struct {
	leads  *service.LeadService
	logger *zap.Logger
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(leads *service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{leads: leads, logger: logger}
}

// List returns a paginated, filtered page of leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.leads.List(r.Context(), parseListParams(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a lead by id
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lead, err := h.leads.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Create adds a new lead
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lead, err := h.leads.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, lead)
}

// Update edits an unconverted lead
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lead, err := h.leads.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Delete soft-deletes a lead
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.leads.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Restore brings back a soft-deleted lead
func (h *LeadHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lead, err := h.leads.Restore(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// BulkUpdate applies the same changes to a set of leads
func (h *LeadHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.leads.BulkUpdate(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

// Convert promotes a lead into an optional contact, company and deal
// in one operation.
func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ConvertLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.leads.Convert(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Disqualify marks a lead unqualified with a reason
func (h *LeadHandler) Disqualify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.DisqualifyLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lead, err := h.leads.Disqualify(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}
