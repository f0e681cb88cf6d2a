package handler

import (
	"net/http"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// CompanyHandler handles HTTP requests for companies
type CompanyHandler struct {
	companies *service.CompanyService
	contacts  *service.ContactService
	logger    *zap.Logger
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companies *service.CompanyService, contacts *service.ContactService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, contacts: contacts, logger: logger}
}

// List returns a paginated, filtered page of companies
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.companies.List(r.Context(), parseListParams(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a company by id
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	company, err := h.companies.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// Create adds a new company
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCompanyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := h.companies.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, company)
}

// Update edits an existing company
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateCompanyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := h.companies.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// Delete soft-deletes a company
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.companies.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Restore brings back a soft-deleted company
func (h *CompanyHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	company, err := h.companies.Restore(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// CheckDuplicates previews likely duplicates before a create
func (h *CompanyHandler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckDuplicatesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	candidates, err := h.companies.CheckDuplicates(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates})
}

// Merge folds a duplicate company into the primary
func (h *CompanyHandler) Merge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.MergeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := h.companies.Merge(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// BulkDelete soft-deletes a set of companies
func (h *CompanyHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deleted, err := h.companies.BulkDelete(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// BulkUpdate applies the same changes to a set of companies
func (h *CompanyHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.companies.BulkUpdate(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

// ListContacts returns the people linked to the company
func (h *CompanyHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	contacts, err := h.contacts.ListByCompany(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contacts": contacts})
}

// LinkContact associates a contact with the company
func (h *CompanyHandler) LinkContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.LinkContactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.companies.LinkContact(r.Context(), id, req.ContactID, req.Title, req.IsPrimary); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// UnlinkContact removes a contact association
func (h *CompanyHandler) UnlinkContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	contactID, ok := pathID(w, r, "contactId")
	if !ok {
		return
	}
	if err := h.companies.UnlinkContact(r.Context(), id, contactID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
