package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/http/handler"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/http/middleware"
	"go.uber.org/zap"
)

type Router struct {
	cfg                *config.Config
	logger             *zap.Logger
	authMiddleware     *auth.Middleware
	rateLimiter        *middleware.RateLimiter
	healthHandler      *handler.HealthHandler
	contactHandler     *handler.ContactHandler
	companyHandler     *handler.CompanyHandler
	leadHandler        *handler.LeadHandler
	pipelineHandler    *handler.PipelineHandler
	dealHandler        *handler.DealHandler
	activityHandler    *handler.ActivityHandler
	tagHandler         *handler.TagHandler
	customFieldHandler *handler.CustomFieldHandler
	formHandler        *handler.FormHandler
	auditHandler       *handler.AuditHandler
	searchHandler      *handler.SearchHandler
	internalHandler    *handler.InternalHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	healthHandler *handler.HealthHandler,
	contactHandler *handler.ContactHandler,
	companyHandler *handler.CompanyHandler,
	leadHandler *handler.LeadHandler,
	pipelineHandler *handler.PipelineHandler,
	dealHandler *handler.DealHandler,
	activityHandler *handler.ActivityHandler,
	tagHandler *handler.TagHandler,
	customFieldHandler *handler.CustomFieldHandler,
	formHandler *handler.FormHandler,
	auditHandler *handler.AuditHandler,
	searchHandler *handler.SearchHandler,
	internalHandler *handler.InternalHandler,
) *Router {
	return &Router{
		cfg:                cfg,
		logger:             logger,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		healthHandler:      healthHandler,
		contactHandler:     contactHandler,
		companyHandler:     companyHandler,
		leadHandler:        leadHandler,
		pipelineHandler:    pipelineHandler,
		dealHandler:        dealHandler,
		activityHandler:    activityHandler,
		tagHandler:         tagHandler,
		customFieldHandler: customFieldHandler,
		formHandler:        formHandler,
		auditHandler:       auditHandler,
		searchHandler:      searchHandler,
		internalHandler:    internalHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(chimiddleware.Timeout(rt.cfg.Server.RequestTimeoutDuration()))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health probes
	r.Get("/health", rt.healthHandler.Live)
	r.Get("/health/db", rt.healthHandler.DB)
	r.Get("/health/ready", rt.healthHandler.Ready)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)

		// Contacts
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", rt.contactHandler.List)
			r.Post("/", rt.contactHandler.Create)
			r.Post("/check-duplicates", rt.contactHandler.CheckDuplicates)
			r.Post("/bulk-delete", rt.contactHandler.BulkDelete)
			r.Post("/bulk-update", rt.contactHandler.BulkUpdate)
			r.Get("/{id}", rt.contactHandler.Get)
			r.Put("/{id}", rt.contactHandler.Update)
			r.Delete("/{id}", rt.contactHandler.Delete)
			r.Post("/{id}/restore", rt.contactHandler.Restore)
			r.Post("/{id}/merge", rt.contactHandler.Merge)
		})

		// Companies
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", rt.companyHandler.List)
			r.Post("/", rt.companyHandler.Create)
			r.Post("/check-duplicates", rt.companyHandler.CheckDuplicates)
			r.Post("/bulk-delete", rt.companyHandler.BulkDelete)
			r.Post("/bulk-update", rt.companyHandler.BulkUpdate)
			r.Get("/{id}", rt.companyHandler.Get)
			r.Put("/{id}", rt.companyHandler.Update)
			r.Delete("/{id}", rt.companyHandler.Delete)
			r.Post("/{id}/restore", rt.companyHandler.Restore)
			r.Post("/{id}/merge", rt.companyHandler.Merge)
			r.Get("/{id}/contacts", rt.companyHandler.ListContacts)
			r.Post("/{id}/contacts", rt.companyHandler.LinkContact)
			r.Delete("/{id}/contacts/{contactId}", rt.companyHandler.UnlinkContact)
		})

		// Leads
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", rt.leadHandler.List)
			r.Post("/", rt.leadHandler.Create)
			r.Post("/bulk-update", rt.leadHandler.BulkUpdate)
			r.Get("/{id}", rt.leadHandler.Get)
			r.Put("/{id}", rt.leadHandler.Update)
			r.Delete("/{id}", rt.leadHandler.Delete)
			r.Post("/{id}/restore", rt.leadHandler.Restore)
			r.Post("/{id}/convert", rt.leadHandler.Convert)
			r.Post("/{id}/disqualify", rt.leadHandler.Disqualify)
		})

		// Pipelines
		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", rt.pipelineHandler.List)
			r.Post("/", rt.pipelineHandler.Create)
			r.Get("/{id}", rt.pipelineHandler.Get)
			r.Put("/{id}", rt.pipelineHandler.Update)
			r.Delete("/{id}", rt.pipelineHandler.Delete)
			r.Post("/{id}/stages", rt.pipelineHandler.CreateStage)
			r.Put("/{id}/stages/reorder", rt.pipelineHandler.ReorderStages)
			r.Put("/{id}/stages/{stageId}", rt.pipelineHandler.UpdateStage)
			r.Delete("/{id}/stages/{stageId}", rt.pipelineHandler.DeleteStage)
			r.Get("/{id}/stats", rt.pipelineHandler.Stats)
			r.Get("/{id}/kanban", rt.pipelineHandler.Kanban)
		})

		// Deals
		r.Route("/deals", func(r chi.Router) {
			r.Get("/", rt.dealHandler.List)
			r.Post("/", rt.dealHandler.Create)
			r.Get("/forecast", rt.dealHandler.Forecast)
			r.Get("/won-lost", rt.dealHandler.WonLost)
			r.Post("/bulk-delete", rt.dealHandler.BulkDelete)
			r.Post("/bulk-update", rt.dealHandler.BulkUpdate)
			r.Get("/{id}", rt.dealHandler.Get)
			r.Put("/{id}", rt.dealHandler.Update)
			r.Delete("/{id}", rt.dealHandler.Delete)
			r.Post("/{id}/restore", rt.dealHandler.Restore)
			r.Post("/{id}/move-stage", rt.dealHandler.MoveStage)
			r.Post("/{id}/win", rt.dealHandler.Win)
			r.Post("/{id}/lose", rt.dealHandler.Lose)
			r.Post("/{id}/reopen", rt.dealHandler.Reopen)
			r.Get("/{id}/history", rt.dealHandler.History)
		})

		// Activities
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", rt.activityHandler.List)
			r.Post("/", rt.activityHandler.Create)
			r.Get("/stats", rt.activityHandler.Stats)
			r.Get("/overdue", rt.activityHandler.Overdue)
			r.Get("/upcoming", rt.activityHandler.Upcoming)
			r.Get("/timeline/{entityType}/{entityId}", rt.activityHandler.Timeline)
			r.Get("/{id}", rt.activityHandler.Get)
			r.Put("/{id}", rt.activityHandler.Update)
			r.Delete("/{id}", rt.activityHandler.Delete)
			r.Post("/{id}/complete", rt.activityHandler.Complete)
		})

		// Tags
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", rt.tagHandler.List)
			r.Post("/", rt.tagHandler.Create)
			r.Post("/bulk-attach", rt.tagHandler.BulkAttach)
			r.Get("/entity/{entityType}/{entityId}", rt.tagHandler.ListForEntity)
			r.Put("/{id}", rt.tagHandler.Update)
			r.Delete("/{id}", rt.tagHandler.Delete)
			r.Post("/{id}/attach", rt.tagHandler.Attach)
			r.Post("/{id}/detach", rt.tagHandler.Detach)
			r.Post("/{id}/merge", rt.tagHandler.Merge)
		})

		// Custom fields
		r.Route("/custom-fields", func(r chi.Router) {
			r.Get("/", rt.customFieldHandler.List)
			r.Post("/", rt.customFieldHandler.Create)
			r.Get("/{id}", rt.customFieldHandler.Get)
			r.Put("/{id}", rt.customFieldHandler.Update)
			r.Delete("/{id}", rt.customFieldHandler.Delete)
		})

		// Forms
		r.Route("/forms", func(r chi.Router) {
			r.Get("/", rt.formHandler.List)
			r.Get("/schema/{entityType}", rt.formHandler.Schema)
			r.Put("/{id}", rt.formHandler.Update)
		})

		// Audit logs
		r.Route("/audit", func(r chi.Router) {
			r.Get("/", rt.auditHandler.List)
			r.Get("/entity/{entityType}/{entityId}", rt.auditHandler.ListForEntity)
		})

		// Search
		r.Get("/search", rt.searchHandler.Search)
	})

	// Service-to-service surface, shared secret auth
	r.Route("/internal", func(r chi.Router) {
		r.Use(auth.ServiceAuth(rt.cfg.Quota.ServiceSecret, rt.logger))

		r.Get("/entities/{entityType}/{entityId}", rt.internalHandler.GetEntity)
		r.Get("/usage", rt.internalHandler.GetUsage)
		r.Post("/permissions/bump", rt.internalHandler.BumpPermissions)
	})

	return r
}
