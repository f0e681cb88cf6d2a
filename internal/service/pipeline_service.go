package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/cache"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultStageTemplate seeds a pipeline created without explicit stages
var defaultStageTemplate = []domain.StageInput{
	{Name: "Qualification", Probability: 10},
	{Name: "Discovery", Probability: 20},
	{Name: "Proposal", Probability: 40},
	{Name: "Negotiation", Probability: 60},
	{Name: "Closed Won", Probability: 100, IsWon: true},
	{Name: "Closed Lost", Probability: 0, IsLost: true},
}

// PipelineService manages pipelines and their stage layout. The
// per-tenant pipeline list and stage sets are cached in redis and
// invalidated synchronously on every mutation.
type PipelineService struct {
	db           *gorm.DB
	pipelineRepo *repository.PipelineRepository
	cache        *cache.Cache
	cacheCfg     *config.CacheConfig
	quota        *quota.Client
	audit        *AuditLogService
	logger       *zap.Logger
}

func NewPipelineService(
	db *gorm.DB,
	pipelineRepo *repository.PipelineRepository,
	cacheClient *cache.Cache,
	cacheCfg *config.CacheConfig,
	quotaClient *quota.Client,
	audit *AuditLogService,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		db:           db,
		pipelineRepo: pipelineRepo,
		cache:        cacheClient,
		cacheCfg:     cacheCfg,
		quota:        quotaClient,
		audit:        audit,
		logger:       logger,
	}
}

// List returns the tenant's pipelines with stages, served from cache
// when fresh.
func (s *PipelineService) List(ctx context.Context) ([]domain.Pipeline, error) {
	orgID := auth.OrgIDFromContext(ctx)
	key := cache.PipelineListKey(orgID)

	var pipelines []domain.Pipeline
	if s.cache.GetJSON(ctx, key, &pipelines) {
		return pipelines, nil
	}

	pipelines, err := s.pipelineRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	s.cache.SetJSON(ctx, key, pipelines, s.cacheCfg.PipelineTTLDuration())
	return pipelines, nil
}

func (s *PipelineService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pipeline, error) {
	pipeline, err := s.pipelineRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	return pipeline, nil
}

// GetDefault returns the tenant's default pipeline
func (s *PipelineService) GetDefault(ctx context.Context) (*domain.Pipeline, error) {
	pipeline, err := s.pipelineRepo.GetDefault(ctx)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	return pipeline, nil
}

// Create builds a pipeline with the requested stages, or the built-in
// template when none are given. The tenant's first pipeline becomes the
// default regardless of the request.
func (s *PipelineService) Create(ctx context.Context, req *domain.CreatePipelineRequest) (*domain.Pipeline, error) {
	if err := validateStageFlags(req.Stages); err != nil {
		return nil, err
	}

	current, err := s.pipelineRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pipelines: %w", err)
	}
	orgID := auth.OrgIDFromContext(ctx)
	check := s.quota.Check(ctx, orgID, "pipelines", 1, current)
	if !check.Allowed {
		return nil, domain.NewLimitExceeded("pipelines", check.Limit, current)
	}

	stages := req.Stages
	if len(stages) == 0 {
		stages = defaultStageTemplate
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	isDefault := req.IsDefault || current == 0

	pipeline := &domain.Pipeline{
		TenantModel: domain.TenantModel{
			OrgID:   orgID,
			OwnerID: auth.UserIDFromContext(ctx),
		},
		Name:        req.Name,
		Description: req.Description,
		Currency:    currency,
		IsDefault:   isDefault,
		IsActive:    true,
	}
	for i, input := range stages {
		pipeline.Stages = append(pipeline.Stages, domain.PipelineStage{
			OrgID:        orgID,
			Name:         input.Name,
			DisplayOrder: i + 1,
			Probability:  input.Probability,
			IsWon:        input.IsWon,
			IsLost:       input.IsLost,
			RottingDays:  input.RottingDays,
			Color:        input.Color,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txPipelines := s.pipelineRepo.WithTx(tx)
		if err := txPipelines.Create(ctx, pipeline); err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}
		if isDefault {
			if err := txPipelines.ClearDefault(ctx, pipeline.ID); err != nil {
				return fmt.Errorf("failed to clear previous default: %w", err)
			}
		}
		s.audit.Record(ctx, domain.AuditActionCreate, "pipeline", pipeline.ID, pipeline.Name, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, orgID, pipeline.ID)
	return pipeline, nil
}

func (s *PipelineService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdatePipelineRequest) (*domain.Pipeline, error) {
	pipeline, err := s.pipelineRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	if err := auth.Authorize(ctx, "pipelines", "update", pipeline.OwnerID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		pipeline.Name = *req.Name
	}
	if req.Description != nil {
		pipeline.Description = *req.Description
	}
	if req.Currency != nil {
		pipeline.Currency = *req.Currency
	}
	if req.IsActive != nil {
		pipeline.IsActive = *req.IsActive
	}
	makeDefault := req.IsDefault != nil && *req.IsDefault && !pipeline.IsDefault
	if req.IsDefault != nil && !*req.IsDefault && pipeline.IsDefault {
		return nil, domain.NewInvalidOperation("demote the default by promoting another pipeline")
	}
	if makeDefault {
		pipeline.IsDefault = true
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txPipelines := s.pipelineRepo.WithTx(tx)
		if err := txPipelines.Update(ctx, pipeline); err != nil {
			return fmt.Errorf("failed to update pipeline: %w", err)
		}
		if makeDefault {
			if err := txPipelines.ClearDefault(ctx, pipeline.ID); err != nil {
				return fmt.Errorf("failed to clear previous default: %w", err)
			}
		}
		s.audit.Record(ctx, domain.AuditActionUpdate, "pipeline", pipeline.ID, pipeline.Name, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, pipeline.OrgID, pipeline.ID)
	return pipeline, nil
}

// Delete removes a pipeline. Rejects while deals still reference it.
// Deleting the default promotes the oldest remaining pipeline.
func (s *PipelineService) Delete(ctx context.Context, id uuid.UUID) error {
	pipeline, err := s.pipelineRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "pipeline")
	}
	if err := auth.Authorize(ctx, "pipelines", "delete", pipeline.OwnerID); err != nil {
		return err
	}

	dealCount, err := s.pipelineRepo.CountDealsInPipeline(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count deals: %w", err)
	}
	if dealCount > 0 {
		return domain.NewInvalidOperation("pipeline still has deals; move or delete them first").
			WithDetail("dealCount", dealCount)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txPipelines := s.pipelineRepo.WithTx(tx)
		if err := txPipelines.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete pipeline: %w", err)
		}
		if pipeline.IsDefault {
			remaining, err := txPipelines.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list pipelines: %w", err)
			}
			if len(remaining) > 0 {
				if err := txPipelines.SetDefault(ctx, remaining[0].ID); err != nil {
					return fmt.Errorf("failed to promote new default: %w", err)
				}
			}
		}
		s.audit.Record(ctx, domain.AuditActionDelete, "pipeline", pipeline.ID, pipeline.Name, nil)
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, pipeline.OrgID, id)
	if count, err := s.pipelineRepo.Count(ctx); err == nil {
		s.quota.SyncUsage(context.Background(), pipeline.OrgID, "pipelines", count)
	}
	return nil
}

// --- stages ---

// CreateStage appends a stage to a pipeline
func (s *PipelineService) CreateStage(ctx context.Context, pipelineID uuid.UUID, req *domain.CreateStageRequest) (*domain.PipelineStage, error) {
	pipeline, err := s.pipelineRepo.GetByID(ctx, pipelineID)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	if err := auth.Authorize(ctx, "pipelines", "update", pipeline.OwnerID); err != nil {
		return nil, err
	}
	if req.IsWon && req.IsLost {
		return nil, domain.NewInvalidOperation("a stage cannot be both won and lost")
	}
	for _, existing := range pipeline.Stages {
		if req.IsWon && existing.IsWon {
			return nil, domain.NewInvalidOperation("pipeline already has a won stage")
		}
		if req.IsLost && existing.IsLost {
			return nil, domain.NewInvalidOperation("pipeline already has a lost stage")
		}
	}

	maxOrder, err := s.pipelineRepo.MaxStageOrder(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stage order: %w", err)
	}

	stage := &domain.PipelineStage{
		OrgID:        pipeline.OrgID,
		PipelineID:   pipelineID,
		Name:         req.Name,
		DisplayOrder: maxOrder + 1,
		Probability:  req.Probability,
		IsWon:        req.IsWon,
		IsLost:       req.IsLost,
		RottingDays:  req.RottingDays,
		Color:        req.Color,
	}
	if err := s.pipelineRepo.CreateStage(ctx, stage); err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}

	s.invalidate(ctx, pipeline.OrgID, pipelineID)
	return stage, nil
}

// UpdateStage edits a stage's mutable attributes. Won/lost flags are
// fixed at creation to keep the state machine stable.
func (s *PipelineService) UpdateStage(ctx context.Context, pipelineID, stageID uuid.UUID, req *domain.UpdateStageRequest) (*domain.PipelineStage, error) {
	pipeline, err := s.pipelineRepo.GetByID(ctx, pipelineID)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	if err := auth.Authorize(ctx, "pipelines", "update", pipeline.OwnerID); err != nil {
		return nil, err
	}
	stage, err := s.pipelineRepo.GetStage(ctx, stageID)
	if err != nil || stage.PipelineID != pipelineID {
		return nil, notFound(gorm.ErrRecordNotFound, "stage")
	}

	if req.Name != nil {
		stage.Name = *req.Name
	}
	if req.Probability != nil {
		stage.Probability = *req.Probability
	}
	if req.RottingDays != nil {
		stage.RottingDays = req.RottingDays
	}
	if req.Color != nil {
		stage.Color = *req.Color
	}

	if err := s.pipelineRepo.UpdateStage(ctx, stage); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}
	s.invalidate(ctx, pipeline.OrgID, pipelineID)
	return stage, nil
}

// DeleteStage removes an empty stage
func (s *PipelineService) DeleteStage(ctx context.Context, pipelineID, stageID uuid.UUID) error {
	pipeline, err := s.pipelineRepo.GetByID(ctx, pipelineID)
	if err != nil {
		return notFound(err, "pipeline")
	}
	if err := auth.Authorize(ctx, "pipelines", "update", pipeline.OwnerID); err != nil {
		return err
	}
	stage, err := s.pipelineRepo.GetStage(ctx, stageID)
	if err != nil || stage.PipelineID != pipelineID {
		return notFound(gorm.ErrRecordNotFound, "stage")
	}

	dealCount, err := s.pipelineRepo.CountDealsInStage(ctx, stageID)
	if err != nil {
		return fmt.Errorf("failed to count deals: %w", err)
	}
	if dealCount > 0 {
		return domain.NewInvalidOperation("stage still has deals; move them first").
			WithDetail("dealCount", dealCount)
	}

	if err := s.pipelineRepo.DeleteStage(ctx, stageID); err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	s.invalidate(ctx, pipeline.OrgID, pipelineID)
	return nil
}

// ReorderStages applies a full new ordering. The id set must match the
// pipeline's stages exactly.
func (s *PipelineService) ReorderStages(ctx context.Context, pipelineID uuid.UUID, req *domain.ReorderStagesRequest) ([]domain.PipelineStage, error) {
	pipeline, err := s.pipelineRepo.GetByID(ctx, pipelineID)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	if err := auth.Authorize(ctx, "pipelines", "update", pipeline.OwnerID); err != nil {
		return nil, err
	}

	if len(req.StageIDs) != len(pipeline.Stages) {
		return nil, domain.NewInvalidOperation("stage id set does not match the pipeline")
	}
	known := make(map[uuid.UUID]bool, len(pipeline.Stages))
	for _, stage := range pipeline.Stages {
		known[stage.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(req.StageIDs))
	for _, id := range req.StageIDs {
		if !known[id] || seen[id] {
			return nil, domain.NewInvalidOperation("stage id set does not match the pipeline")
		}
		seen[id] = true
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txPipelines := s.pipelineRepo.WithTx(tx)
		for i, id := range req.StageIDs {
			if err := txPipelines.SetStageOrder(ctx, id, i+1); err != nil {
				return fmt.Errorf("failed to reorder stages: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, pipeline.OrgID, pipelineID)
	return s.pipelineRepo.ListStages(ctx, pipelineID)
}

func (s *PipelineService) invalidate(ctx context.Context, orgID, pipelineID uuid.UUID) {
	s.cache.Delete(ctx,
		cache.PipelineListKey(orgID),
		cache.PipelineStagesKey(orgID, pipelineID))
}

func validateStageFlags(stages []domain.StageInput) error {
	wonSeen, lostSeen := false, false
	for _, stage := range stages {
		if stage.IsWon && stage.IsLost {
			return domain.NewInvalidOperation("a stage cannot be both won and lost")
		}
		if stage.IsWon {
			if wonSeen {
				return domain.NewInvalidOperation("at most one won stage per pipeline")
			}
			wonSeen = true
		}
		if stage.IsLost {
			if lostSeen {
				return domain.NewInvalidOperation("at most one lost stage per pipeline")
			}
			lostSeen = true
		}
	}
	return nil
}
