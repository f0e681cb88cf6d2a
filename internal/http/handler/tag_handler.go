package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// TagHandler handles HTTP requests for tags
type TagHandler struct {
	tags   *service.TagService
	logger *zap.Logger
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tags *service.TagService, logger *zap.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// List returns the tenant's tags, optionally scoped to an entity type
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context(), r.URL.Query().Get("entityType"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

// Create adds a new tag
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.tags.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

// Update renames or recolors a tag
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.tags.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// Delete removes a tag and all its attachments
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.tags.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Attach links a tag to an entity
func (h *TagHandler) Attach(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AttachTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.tags.Attach(r.Context(), id, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Detach unlinks a tag from an entity
func (h *TagHandler) Detach(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AttachTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.tags.Detach(r.Context(), id, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// BulkAttach links several tags to several entities in one call
func (h *TagHandler) BulkAttach(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.tags.BulkAttach(r.Context(), &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Merge folds source tags into the target tag
func (h *TagHandler) Merge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.MergeTagsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.tags.Merge(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// ListForEntity returns the tags attached to an entity
func (h *TagHandler) ListForEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID, ok := pathID(w, r, "entityId")
	if !ok {
		return
	}
	tags, err := h.tags.ListForEntity(r.Context(), entityType, entityID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}
