package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// ActivityHandler handles HTTP requests for activities
type ActivityHandler struct {
	activities *service.ActivityService
	logger     *zap.Logger
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activities *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger}
}

// List returns a paginated, filtered page of activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.activities.List(r.Context(), parseListParams(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns an activity by id
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	activity, err := h.activities.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// Create records a new activity
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	activity, err := h.activities.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, activity)
}

// Update edits an existing activity
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	activity, err := h.activities.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// Complete marks an activity done
func (h *ActivityHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	activity, err := h.activities.Complete(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// Delete soft-deletes an activity
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.activities.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Stats returns the caller's workload summary
func (h *ActivityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	stats, err := h.activities.GetStats(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Overdue lists the caller's overdue open activities
func (h *ActivityHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	activities, err := h.activities.GetOverdue(r.Context(), userID, queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

// Upcoming lists the caller's activities due in the coming days
func (h *ActivityHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	activities, err := h.activities.GetUpcoming(r.Context(), userID, queryInt(r, "days", 7), queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

// Timeline returns an entity's activity history newest first
func (h *ActivityHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID, ok := pathID(w, r, "entityId")
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	result, err := h.activities.GetTimeline(r.Context(), entityType, entityID, limit, offset)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
