package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
)

// InternalHandler serves the service-to-service surface. Callers are
// authenticated by shared secret, not a user token, so the org scope
// arrives as an explicit parameter and is stamped onto the context
// before touching the repositories.
type InternalHandler struct {
	contactRepo  *repository.ContactRepository
	companyRepo  *repository.CompanyRepository
	leadRepo     *repository.LeadRepository
	dealRepo     *repository.DealRepository
	pipelineRepo *repository.PipelineRepository
	permStore    *auth.PermVersionStore
	logger       *zap.Logger
}

// NewInternalHandler creates a new InternalHandler
func NewInternalHandler(
	contactRepo *repository.ContactRepository,
	companyRepo *repository.CompanyRepository,
	leadRepo *repository.LeadRepository,
	dealRepo *repository.DealRepository,
	pipelineRepo *repository.PipelineRepository,
	permStore *auth.PermVersionStore,
	logger *zap.Logger,
) *InternalHandler {
	return &InternalHandler{
		contactRepo:  contactRepo,
		companyRepo:  companyRepo,
		leadRepo:     leadRepo,
		dealRepo:     dealRepo,
		pipelineRepo: pipelineRepo,
		permStore:    permStore,
		logger:       logger,
	}
}

func (h *InternalHandler) orgScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(r.URL.Query().Get("orgId"))
	if err != nil || orgID == uuid.Nil {
		respondError(w, h.logger, domain.NewValidationError("orgId must be a valid UUID"))
		return uuid.Nil, false
	}
	return orgID, true
}

// GetEntity resolves an entity reference for another service, returning
// a minimal projection.
func (h *InternalHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgScope(w, r)
	if !ok {
		return
	}
	entityID, ok := pathID(w, r, "entityId")
	if !ok {
		return
	}
	ctx := auth.WithTenantContext(r.Context(), &auth.TenantContext{OrgID: orgID})

	entityType := chi.URLParam(r, "entityType")
	var hit *domain.SearchHit
	switch entityType {
	case "contact":
		if contact, err := h.contactRepo.GetByID(ctx, entityID); err == nil {
			hit = &domain.SearchHit{EntityType: "contact", ID: contact.ID, Title: contact.FullName(), Subtitle: contact.Email}
		}
	case "company":
		if company, err := h.companyRepo.GetByID(ctx, entityID); err == nil {
			hit = &domain.SearchHit{EntityType: "company", ID: company.ID, Title: company.Name, Subtitle: company.Website}
		}
	case "lead":
		if lead, err := h.leadRepo.GetByID(ctx, entityID); err == nil {
			hit = &domain.SearchHit{EntityType: "lead", ID: lead.ID, Title: lead.FullName(), Subtitle: lead.CompanyName}
		}
	case "deal":
		if deal, err := h.dealRepo.GetByID(ctx, entityID); err == nil {
			hit = &domain.SearchHit{EntityType: "deal", ID: deal.ID, Title: deal.Name, Subtitle: deal.Currency}
		}
	default:
		respondError(w, h.logger, domain.NewValidationError("unknown entity type"))
		return
	}

	if hit == nil {
		respondError(w, h.logger, domain.NewEntityNotFound(entityType))
		return
	}
	respondJSON(w, http.StatusOK, hit)
}

// GetUsage reports the org's local feature counts for quota
// reconciliation.
func (h *InternalHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgScope(w, r)
	if !ok {
		return
	}
	ctx := auth.WithTenantContext(r.Context(), &auth.TenantContext{OrgID: orgID})

	usage := domain.OrgUsage{OrgID: orgID, Counts: map[string]int64{}}
	counters := map[string]func() (int64, error){
		"contacts":  func() (int64, error) { return h.contactRepo.Count(ctx) },
		"companies": func() (int64, error) { return h.companyRepo.Count(ctx) },
		"leads":     func() (int64, error) { return h.leadRepo.Count(ctx) },
		"deals":     func() (int64, error) { return h.dealRepo.Count(ctx) },
		"pipelines": func() (int64, error) { return h.pipelineRepo.Count(ctx) },
	}
	for feature, count := range counters {
		n, err := count()
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		usage.Counts[feature] = n
	}
	respondJSON(w, http.StatusOK, usage)
}

// BumpPermissions records a new permission version for a user, causing
// older tokens to be rejected as stale.
func (h *InternalHandler) BumpPermissions(w http.ResponseWriter, r *http.Request) {
	var req domain.BumpPermissionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.permStore.Bump(r.Context(), req.UserID, req.Version); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
