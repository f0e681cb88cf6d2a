package handler

import (
	"net/http"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/service"
	"go.uber.org/zap"
)

// SearchHandler handles the global cross-entity search
type SearchHandler struct {
	search *service.SearchService
	logger *zap.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(search *service.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// Search fans the query out over contacts, companies, leads and deals
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.search.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 10))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
