package handler

import (
	"net/http"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// ContactHandler handles HTTP requests for contacts
type ContactHandler struct {
	contacts *service.ContactService
	logger   *zap.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contacts *service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// List returns a paginated, filtered page of contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.contacts.List(r.Context(), parseListParams(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a contact by id
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	contact, err := h.contacts.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// Create adds a new contact
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	contact, err := h.contacts.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, contact)
}

// Update edits an existing contact
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateContactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	contact, err := h.contacts.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// Delete soft-deletes a contact
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.contacts.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Restore brings back a soft-deleted contact
func (h *ContactHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	contact, err := h.contacts.Restore(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// CheckDuplicates previews likely duplicates before a create
func (h *ContactHandler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckDuplicatesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	candidates, err := h.contacts.CheckDuplicates(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates})
}

// Merge folds a duplicate contact into the primary
func (h *ContactHandler) Merge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.MergeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	contact, err := h.contacts.Merge(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// BulkDelete soft-deletes a set of contacts
func (h *ContactHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deleted, err := h.contacts.BulkDelete(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// BulkUpdate applies the same changes to a set of contacts
func (h *ContactHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.contacts.BulkUpdate(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}
