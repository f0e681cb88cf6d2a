package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// DealHandler handles HTTP requests for deals
type DealHandler struct {
	deals  *service.DealService
	logger *zap.Logger
}

// NewDealHandler creates a new DealHandler
func NewDealHandler(deals *service.DealService, logger *zap.Logger) *DealHandler {
	return &DealHandler{deals: deals, logger: logger}
}

// List returns a paginated, filtered page of deals
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.deals.List(r.Context(), parseListParams(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a deal by id
func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	deal, err := h.deals.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// Create opens a new deal
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deal, err := h.deals.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, deal)
}

// Update edits an existing deal
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateDealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deal, err := h.deals.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// Delete soft-deletes a deal
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.deals.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Restore brings back a soft-deleted deal
func (h *DealHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	deal, err := h.deals.Restore(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// MoveStage transitions a deal to another stage
func (h *DealHandler) MoveStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.MoveDealStageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deal, err := h.deals.MoveStage(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// Win closes a deal as won
func (h *DealHandler) Win(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.WinDealRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	deal, err := h.deals.Win(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// Lose closes a deal as lost with a reason
func (h *DealHandler) Lose(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.LoseDealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deal, err := h.deals.Lose(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// Reopen moves a closed deal back into an open stage. The body may
// carry an optional target stage id.
func (h *DealHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		StageID *uuid.UUID `json:"stageId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	deal, err := h.deals.Reopen(r.Context(), id, body.StageID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// History returns a deal's stage transitions
func (h *DealHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	history, err := h.deals.ListHistory(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// Forecast projects open deals by expected close month
func (h *DealHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.deals.GetForecast(r.Context(), queryInt(r, "days", 90))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, forecast)
}

// WonLost analyzes closed deals in the window
func (h *DealHandler) WonLost(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.deals.GetWonLostAnalysis(r.Context(), queryInt(r, "days", 90))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// BulkDelete soft-deletes a set of deals
func (h *DealHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deleted, err := h.deals.BulkDelete(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// BulkUpdate applies the same changes to a set of deals
func (h *DealHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.deals.BulkUpdate(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}
