package handler

import (
	"net/http"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// PipelineHandler handles HTTP requests for pipelines and stages
type PipelineHandler struct {
	pipelines *service.PipelineService
	deals     *service.DealService
	logger    *zap.Logger
}

// NewPipelineHandler creates a new PipelineHandler
func NewPipelineHandler(pipelines *service.PipelineService, deals *service.DealService, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{pipelines: pipelines, deals: deals, logger: logger}
}

// List returns the tenant's pipelines with stages
func (h *PipelineHandler) List(w http.ResponseWriter, r *http.Request) {
	pipelines, err := h.pipelines.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"pipelines": pipelines})
}

// Get returns a pipeline by id
func (h *PipelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pipeline, err := h.pipelines.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, pipeline)
}

// Create adds a pipeline, seeding default stages when none are given
func (h *PipelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pipeline, err := h.pipelines.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, pipeline)
}

// Update edits pipeline attributes
func (h *PipelineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdatePipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pipeline, err := h.pipelines.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, pipeline)
}

// Delete removes an empty pipeline
func (h *PipelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.pipelines.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// CreateStage appends a stage to the pipeline
func (h *PipelineHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CreateStageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	stage, err := h.pipelines.CreateStage(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, stage)
}

// UpdateStage edits a stage
func (h *PipelineHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stageID, ok := pathID(w, r, "stageId")
	if !ok {
		return
	}
	var req domain.UpdateStageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	stage, err := h.pipelines.UpdateStage(r.Context(), id, stageID, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stage)
}

// DeleteStage removes an empty stage
func (h *PipelineHandler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stageID, ok := pathID(w, r, "stageId")
	if !ok {
		return
	}
	if err := h.pipelines.DeleteStage(r.Context(), id, stageID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ReorderStages applies a full new stage ordering
func (h *PipelineHandler) ReorderStages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ReorderStagesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	stages, err := h.pipelines.ReorderStages(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"stages": stages})
}

// Stats returns the pipeline's aggregate deal statistics
func (h *PipelineHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.deals.GetStats(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Kanban returns the pipeline's board view
func (h *PipelineHandler) Kanban(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	board, err := h.deals.GetKanban(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}
