package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DealService implements the deal lifecycle: CRUD, the stage state
// machine with its transition history, and the pipeline analytics
// views (stats, forecast, kanban, won/lost).
type DealService struct {
	db           *gorm.DB
	dealRepo     *repository.DealRepository
	historyRepo  *repository.DealStageHistoryRepository
	pipelineRepo *repository.PipelineRepository
	contactRepo  *repository.ContactRepository
	companyRepo  *repository.CompanyRepository
	tagService   *TagService
	formService  *FormService
	quota        *quota.Client
	events       events.Publisher
	audit        *AuditLogService
	logger       *zap.Logger
}

func NewDealService(
	db *gorm.DB,
	dealRepo *repository.DealRepository,
	historyRepo *repository.DealStageHistoryRepository,
	pipelineRepo *repository.PipelineRepository,
	contactRepo *repository.ContactRepository,
	companyRepo *repository.CompanyRepository,
	tagService *TagService,
	formService *FormService,
	quotaClient *quota.Client,
	publisher events.Publisher,
	audit *AuditLogService,
	logger *zap.Logger,
) *DealService {
	return &DealService{
		db:           db,
		dealRepo:     dealRepo,
		historyRepo:  historyRepo,
		pipelineRepo: pipelineRepo,
		contactRepo:  contactRepo,
		companyRepo:  companyRepo,
		tagService:   tagService,
		formService:  formService,
		quota:        quotaClient,
		events:       publisher,
		audit:        audit,
		logger:       logger,
	}
}

func (s *DealService) List(ctx context.Context, params domain.ListParams) (*domain.PaginatedResponse, error) {
	deals, total, err := s.dealRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	ids := make([]uuid.UUID, len(deals))
	for i := range deals {
		ids[i] = deals[i].ID
	}
	index := make(map[uuid.UUID]*domain.Deal, len(deals))
	for i := range deals {
		index[deals[i].ID] = &deals[i]
	}
	if err := s.tagService.DecorateTags(ctx, domain.TagEntityDeal, ids, func(id uuid.UUID, tags []domain.Tag) {
		index[id].Tags = tags
	}); err != nil {
		s.logger.Warn("failed to decorate deal tags", zap.Error(err))
	}

	resp := domain.NewPaginatedResponse(deals, params, total)
	return &resp, nil
}

func (s *DealService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "deal")
	}
	tags, err := s.tagService.ListForEntity(ctx, string(domain.TagEntityDeal), id)
	if err == nil {
		deal.Tags = tags
	}
	return deal, nil
}

// Create opens a deal in the resolved pipeline stage and seeds the
// stage history with the entry transition.
func (s *DealService) Create(ctx context.Context, req *domain.CreateDealRequest) (*domain.Deal, error) {
	if req.EntityData != nil {
		if err := s.formService.ValidateEntityData(ctx, domain.TagEntityDeal, req.EntityData, nil); err != nil {
			return nil, err
		}
	}

	pipeline, stage, err := s.resolveTarget(ctx, req.PipelineID, req.StageID)
	if err != nil {
		return nil, err
	}
	if req.ContactID != nil {
		if _, err := s.contactRepo.GetByID(ctx, *req.ContactID); err != nil {
			return nil, notFound(err, "contact")
		}
	}
	if req.CompanyID != nil {
		if _, err := s.companyRepo.GetByID(ctx, *req.CompanyID); err != nil {
			return nil, notFound(err, "company")
		}
	}

	current, err := s.dealRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals: %w", err)
	}
	orgID := auth.OrgIDFromContext(ctx)
	check := s.quota.Check(ctx, orgID, "deals", 1, current)
	if !check.Allowed {
		return nil, domain.NewLimitExceeded("deals", check.Limit, current)
	}

	actorID := auth.UserIDFromContext(ctx)
	ownerID := actorID
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}
	currency := req.Currency
	if currency == "" {
		currency = pipeline.Currency
	}
	now := time.Now().UTC()

	deal := &domain.Deal{
		TenantModel:       domain.TenantModel{OrgID: orgID, OwnerID: ownerID},
		Name:              req.Name,
		PipelineID:        pipeline.ID,
		StageID:           stage.ID,
		Value:             req.Value,
		Currency:          currency,
		Probability:       req.Probability,
		ExpectedCloseDate: req.ExpectedCloseDate,
		StageEnteredAt:    now,
		Status:            statusForStage(stage),
		ContactID:         req.ContactID,
		CompanyID:         req.CompanyID,
		Description:       req.Description,
		EntityData:        req.EntityData,
	}
	if deal.Status != domain.DealStatusOpen {
		deal.ActualCloseDate = &now
	}

	var hooks afterCommit
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).Create(ctx, deal); err != nil {
			return fmt.Errorf("failed to create deal: %w", err)
		}
		entry := &domain.DealStageHistory{
			OrgID:       orgID,
			DealID:      deal.ID,
			FromStageID: &stage.ID,
			ToStageID:   stage.ID,
			ChangedBy:   actorID,
		}
		if err := s.historyRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to record stage entry: %w", err)
		}
		if len(req.TagIDs) > 0 {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityDeal, deal.ID, req.TagIDs)
			if err != nil {
				return err
			}
			deal.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionCreate, "deal", deal.ID, deal.Name, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	hooks.Add(func() {
		s.quota.SyncUsage(context.Background(), orgID, "deals", current+1)
		s.events.Publish(context.Background(), events.Event{
			Type: "deal.created", OrgID: orgID, ActorID: actorID,
			EntityType: "deal", EntityID: deal.ID,
		})
	})
	hooks.Run()

	deal.Stage = stage
	return deal, nil
}

func (s *DealService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDealRequest) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "deal")
	}
	if err := auth.Authorize(ctx, "deals", "update", deal.OwnerID); err != nil {
		return nil, err
	}

	if req.EntityData != nil {
		if err := s.formService.ValidateEntityData(ctx, domain.TagEntityDeal, req.EntityData, &id); err != nil {
			return nil, err
		}
	}
	if req.ContactID != nil {
		if _, err := s.contactRepo.GetByID(ctx, *req.ContactID); err != nil {
			return nil, notFound(err, "contact")
		}
	}
	if req.CompanyID != nil {
		if _, err := s.companyRepo.GetByID(ctx, *req.CompanyID); err != nil {
			return nil, notFound(err, "company")
		}
	}

	before := *deal
	applyDealUpdate(deal, req)

	var hooks afterCommit
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).Update(ctx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		if req.TagIDs != nil {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityDeal, deal.ID, *req.TagIDs)
			if err != nil {
				return err
			}
			deal.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "deal", deal.ID, deal.Name, BuildDiff(before, *deal))
		return nil
	})
	if err != nil {
		return nil, err
	}

	orgID := auth.OrgIDFromContext(ctx)
	actorID := auth.UserIDFromContext(ctx)
	hooks.Add(func() {
		s.events.Publish(context.Background(), events.Event{
			Type: "deal.updated", OrgID: orgID, ActorID: actorID,
			EntityType: "deal", EntityID: deal.ID,
		})
	})
	hooks.Run()

	return deal, nil
}

// MoveStage transitions a deal to another stage of its pipeline. The
// history row records the time spent in the stage being left, and the
// deal status mirrors the target stage flags.
func (s *DealService) MoveStage(ctx context.Context, id uuid.UUID, req *domain.MoveDealStageRequest) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "deal")
	}
	if err := auth.Authorize(ctx, "deals", "update", deal.OwnerID); err != nil {
		return nil, err
	}
	if deal.Status != domain.DealStatusOpen {
		return nil, domain.NewInvalidOperation("only open deals can change stage")
	}
	if req.StageID == deal.StageID {
		return deal, nil
	}

	stage, err := s.pipelineRepo.GetStage(ctx, req.StageID)
	if err != nil {
		return nil, notFound(err, "stage")
	}
	if stage.PipelineID != deal.PipelineID {
		return nil, domain.NewInvalidOperation("stage does not belong to the deal's pipeline")
	}

	if err := s.transition(ctx, deal, stage, nil); err != nil {
		return nil, err
	}
	return deal, nil
}

// Win closes the deal through the pipeline's won stage
func (s *DealService) Win(ctx context.Context, id uuid.UUID, req *domain.WinDealRequest) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "deal")
	}
	if err := auth.Authorize(ctx, "deals", "update", deal.OwnerID); err != nil {
		return nil, err
	}
	if deal.Status != domain.DealStatusOpen {
		return nil, domain.NewInvalidOperation("only open deals can be won")
	}

	stage, err := s.terminalStage(ctx, deal.PipelineID, true)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, deal, stage, func(d *domain.Deal) {
		if req != nil && req.ActualCloseDate != nil {
			d.ActualCloseDate = req.ActualCloseDate
		}
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

// Lose closes the deal through the pipeline's lost stage, recording
// why.
func (s *DealService) Lose(ctx context.Context, id uuid.UUID, req *domain.LoseDealRequest) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "deal")
	}
	if err := auth.Authorize(ctx, "deals", "update", deal.OwnerID); err != nil {
		return nil, err
	}
	if deal.Status != domain.DealStatusOpen {
		return nil, domain.NewInvalidOperation("only open deals can be lost")
	}

	stage, err := s.terminalStage(ctx, deal.PipelineID, false)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, deal, stage, func(d *domain.Deal) {
		d.LossReason = req.Reason
		d.LossNotes = req.Notes
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

// Reopen moves a closed deal back into an open stage. When no stage is
// given the deal returns to the pipeline's first non-terminal stage.
// Loss fields and the close date are cleared.
func (s *DealService) Reopen(ctx context.Context, id uuid.UUID, stageID *uuid.UUID) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "deal")
	}
	if err := auth.Authorize(ctx, "deals", "update", deal.OwnerID); err != nil {
		return nil, err
	}
	if deal.Status == domain.DealStatusOpen {
		return nil, domain.NewInvalidOperation("deal is already open")
	}

	pipeline, err := s.pipelineRepo.GetByID(ctx, deal.PipelineID)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	var stage *domain.PipelineStage
	if stageID != nil {
		for i := range pipeline.Stages {
			if pipeline.Stages[i].ID == *stageID {
				stage = &pipeline.Stages[i]
				break
			}
		}
		if stage == nil {
			return nil, domain.NewInvalidOperation("stage does not belong to the deal's pipeline")
		}
		if stage.IsWon || stage.IsLost {
			return nil, domain.NewInvalidOperation("cannot reopen into a closed stage")
		}
	} else {
		for i := range pipeline.Stages {
			if !pipeline.Stages[i].IsWon && !pipeline.Stages[i].IsLost {
				stage = &pipeline.Stages[i]
				break
			}
		}
		if stage == nil {
			return nil, domain.NewInvalidOperation("pipeline has no open stages")
		}
	}

	if err := s.transition(ctx, deal, stage, func(d *domain.Deal) {
		d.LossReason = ""
		d.LossNotes = ""
		d.ActualCloseDate = nil
	}); err != nil {
		return nil, err
	}
	return deal, nil
}

// transition is the single writer for stage changes: history row,
// stage pointer, status mirror and close date in one transaction.
func (s *DealService) transition(ctx context.Context, deal *domain.Deal, stage *domain.PipelineStage, mutate func(*domain.Deal)) error {
	now := time.Now().UTC()
	timeInStage := int64(now.Sub(deal.StageEnteredAt).Seconds())
	if timeInStage < 0 {
		timeInStage = 0
	}
	fromStageID := deal.StageID
	actorID := auth.UserIDFromContext(ctx)
	orgID := auth.OrgIDFromContext(ctx)

	deal.StageID = stage.ID
	deal.StageEnteredAt = now
	deal.Status = statusForStage(stage)
	switch deal.Status {
	case domain.DealStatusOpen:
		deal.ActualCloseDate = nil
	default:
		deal.ActualCloseDate = &now
	}
	if mutate != nil {
		mutate(deal)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).Update(ctx, deal); err != nil {
			return fmt.Errorf("failed to move deal: %w", err)
		}
		entry := &domain.DealStageHistory{
			OrgID:              orgID,
			DealID:             deal.ID,
			FromStageID:        &fromStageID,
			ToStageID:          stage.ID,
			ChangedBy:          actorID,
			TimeInStageSeconds: timeInStage,
		}
		if err := s.historyRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to record stage change: %w", err)
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionStageChange, "deal", deal.ID, deal.Name, map[string]interface{}{
			"stage": map[string]interface{}{"from": fromStageID, "to": stage.ID},
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(context.Background(), events.Event{
		Type: "deal.stage_changed", OrgID: orgID, ActorID: actorID,
		EntityType: "deal", EntityID: deal.ID,
		Payload: map[string]interface{}{
			"fromStageId": fromStageID.String(),
			"toStageId":   stage.ID.String(),
			"status":      string(deal.Status),
		},
	})
	deal.Stage = stage
	return nil
}

// terminalStage finds the pipeline's won or lost stage
func (s *DealService) terminalStage(ctx context.Context, pipelineID uuid.UUID, won bool) (*domain.PipelineStage, error) {
	stages, err := s.pipelineRepo.ListStages(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	for i := range stages {
		if won && stages[i].IsWon {
			return &stages[i], nil
		}
		if !won && stages[i].IsLost {
			return &stages[i], nil
		}
	}
	if won {
		return nil, domain.NewInvalidOperation("pipeline has no won stage")
	}
	return nil, domain.NewInvalidOperation("pipeline has no lost stage")
}

func (s *DealService) Delete(ctx context.Context, id uuid.UUID) error {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "deal")
	}
	if err := auth.Authorize(ctx, "deals", "delete", deal.OwnerID); err != nil {
		return err
	}

	actorID := auth.UserIDFromContext(ctx)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).SoftDelete(ctx, id, actorID); err != nil {
			return fmt.Errorf("failed to delete deal: %w", err)
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionDelete, "deal", deal.ID, deal.Name, nil)
		return nil
	})
	if err != nil {
		return err
	}

	orgID := auth.OrgIDFromContext(ctx)
	if count, err := s.dealRepo.Count(ctx); err == nil {
		s.quota.SyncUsage(context.Background(), orgID, "deals", count)
	}
	s.events.Publish(context.Background(), events.Event{
		Type: "deal.deleted", OrgID: orgID, ActorID: actorID,
		EntityType: "deal", EntityID: deal.ID,
	})
	return nil
}

func (s *DealService) Restore(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetDeletedByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "deal")
	}
	if err := auth.Authorize(ctx, "deals", "update", deal.OwnerID); err != nil {
		return nil, err
	}
	if err := s.dealRepo.Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore deal: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionRestore, "deal", deal.ID, deal.Name, nil)
	return s.dealRepo.GetByID(ctx, id)
}

// BulkDelete soft-deletes the given deals, skipping those the caller
// may not delete. Returns the number actually removed.
func (s *DealService) BulkDelete(ctx context.Context, req *domain.BulkDeleteRequest) (int, error) {
	actorID := auth.UserIDFromContext(ctx)
	deleted := 0
	for _, id := range req.IDs {
		deal, err := s.dealRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := auth.Authorize(ctx, "deals", "delete", deal.OwnerID); err != nil {
			continue
		}
		if err := s.dealRepo.SoftDelete(ctx, id, actorID); err != nil {
			s.logger.Warn("bulk delete failed for deal", zap.String("deal_id", id.String()), zap.Error(err))
			continue
		}
		s.audit.Record(ctx, domain.AuditActionDelete, "deal", deal.ID, deal.Name, nil)
		deleted++
	}
	if deleted > 0 {
		orgID := auth.OrgIDFromContext(ctx)
		if count, err := s.dealRepo.Count(ctx); err == nil {
			s.quota.SyncUsage(context.Background(), orgID, "deals", count)
		}
	}
	return deleted, nil
}

// BulkUpdate applies the same field changes to a set of deals,
// skipping rows the caller may not update. Deal status is driven by
// the stage operations, so a status change here is rejected.
func (s *DealService) BulkUpdate(ctx context.Context, req *domain.BulkUpdateRequest) (int, error) {
	if req.Status != nil {
		return 0, domain.NewInvalidOperation("deal status changes go through the stage operations")
	}

	updated := 0
	for _, id := range req.IDs {
		deal, err := s.dealRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := auth.Authorize(ctx, "deals", "update", deal.OwnerID); err != nil {
			continue
		}

		before := *deal
		if req.OwnerID != nil {
			deal.OwnerID = *req.OwnerID
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.dealRepo.WithTx(tx).Update(ctx, deal); err != nil {
				return err
			}
			if req.TagIDs != nil {
				if _, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityDeal, deal.ID, *req.TagIDs); err != nil {
					return err
				}
			}
			s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "deal", deal.ID, deal.Name, BuildDiff(before, *deal))
			return nil
		})
		if err != nil {
			s.logger.Warn("bulk update failed for deal", zap.String("deal_id", id.String()), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// GetStats aggregates a pipeline's deals in one query and folds the
// (stage, status) rows into totals and a per-stage breakdown.
func (s *DealService) GetStats(ctx context.Context, pipelineID uuid.UUID) (*domain.PipelineStats, error) {
	pipeline, err := s.pipelineRepo.GetByID(ctx, pipelineID)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}

	rows, err := s.dealRepo.AggregateByStage(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate deals: %w", err)
	}

	stats := &domain.PipelineStats{PipelineID: pipelineID}
	byStage := make(map[uuid.UUID]*domain.StageStats, len(pipeline.Stages))
	for _, stage := range pipeline.Stages {
		byStage[stage.ID] = &domain.StageStats{
			StageID:      stage.ID,
			StageName:    stage.Name,
			DisplayOrder: stage.DisplayOrder,
		}
	}

	for _, row := range rows {
		stats.TotalDeals += row.Count
		switch row.Status {
		case domain.DealStatusOpen:
			stats.OpenDeals += row.Count
			stats.OpenValue += row.TotalValue
			stats.WeightedValue += row.WeightedValue
		case domain.DealStatusWon:
			stats.WonDeals += row.Count
			stats.WonValue += row.TotalValue
		case domain.DealStatusLost:
			stats.LostDeals += row.Count
		}
		if stage, ok := byStage[row.StageID]; ok {
			stage.DealCount += row.Count
			stage.TotalValue += row.TotalValue
			stage.WeightedValue += row.WeightedValue
		}
	}

	if stats.OpenDeals > 0 {
		stats.AvgDealValue = stats.OpenValue / float64(stats.OpenDeals)
	}
	if closed := stats.WonDeals + stats.LostDeals; closed > 0 {
		stats.WinRate = float64(stats.WonDeals) / float64(closed)
	}

	for _, stage := range pipeline.Stages {
		stats.Stages = append(stats.Stages, *byStage[stage.ID])
	}
	return stats, nil
}

// GetForecast buckets open deals by expected close month within the
// window, weighting values by probability.
func (s *DealService) GetForecast(ctx context.Context, days int) (*domain.DealForecast, error) {
	if days <= 0 {
		days = 90
	}
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	until := now.AddDate(0, 0, days)
	deals, err := s.dealRepo.ListOpenClosingBetween(ctx, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to load forecast deals: %w", err)
	}

	forecast := &domain.DealForecast{Days: days}
	byMonth := make(map[string]*domain.ForecastBucket)
	for i := range deals {
		deal := &deals[i]
		weighted := deal.Value * float64(deal.EffectiveProbability(deal.Stage)) / 100.0

		forecast.DealCount++
		forecast.TotalValue += deal.Value
		forecast.WeightedValue += weighted

		month := deal.ExpectedCloseDate.Format("2006-01")
		bucket, ok := byMonth[month]
		if !ok {
			bucket = &domain.ForecastBucket{Month: month}
			byMonth[month] = bucket
		}
		bucket.DealCount++
		bucket.TotalValue += deal.Value
		bucket.WeightedValue += weighted
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		forecast.Buckets = append(forecast.Buckets, *byMonth[month])
	}
	return forecast, nil
}

// GetKanban builds the board view: one column per stage, every deal
// fetched in a single query and distributed onto the columns. A deal
// only shows in a column when its status matches the stage type, so a
// reopened deal parked in a closed stage never renders twice.
func (s *DealService) GetKanban(ctx context.Context, pipelineID uuid.UUID) (*domain.KanbanBoard, error) {
	pipeline, err := s.pipelineRepo.GetByID(ctx, pipelineID)
	if err != nil {
		return nil, notFound(err, "pipeline")
	}
	deals, err := s.dealRepo.ListByPipeline(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load board deals: %w", err)
	}

	now := time.Now().UTC()
	board := &domain.KanbanBoard{PipelineID: pipelineID}
	columnIndex := make(map[uuid.UUID]int, len(pipeline.Stages))
	for i, stage := range pipeline.Stages {
		columnIndex[stage.ID] = i
		board.Columns = append(board.Columns, domain.KanbanColumn{
			Stage: stage,
			Deals: []domain.KanbanDeal{},
		})
	}

	for i := range deals {
		deal := &deals[i]
		idx, ok := columnIndex[deal.StageID]
		if !ok {
			continue
		}
		column := &board.Columns[idx]
		if deal.Status != statusForStage(&column.Stage) {
			continue
		}
		daysInStage := int(now.Sub(deal.StageEnteredAt).Hours() / 24)
		rotting := column.Stage.RottingDays != nil && daysInStage >= *column.Stage.RottingDays

		card := domain.KanbanDeal{
			ID:           deal.ID,
			Name:         deal.Name,
			Value:        deal.Value,
			Currency:     deal.Currency,
			Status:       deal.Status,
			ContactID:    deal.ContactID,
			CompanyID:    deal.CompanyID,
			OwnerID:      deal.OwnerID,
			DaysInStage:  daysInStage,
			IsRotting:    rotting,
			ExpectedDate: deal.ExpectedCloseDate,
		}
		if deal.Contact != nil {
			card.ContactName = deal.Contact.FullName()
		}
		if deal.Company != nil {
			card.CompanyName = deal.Company.Name
		}
		column.Deals = append(column.Deals, card)
		column.DealCount++
		column.TotalValue += deal.Value
	}
	return board, nil
}

// GetWonLostAnalysis summarizes deals closed in the window: monthly
// trend, win rate, loss reasons and average time to close.
func (s *DealService) GetWonLostAnalysis(ctx context.Context, days int) (*domain.WonLostAnalysis, error) {
	if days <= 0 {
		days = 90
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	deals, err := s.dealRepo.ListClosedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load closed deals: %w", err)
	}

	analysis := &domain.WonLostAnalysis{Days: days}
	byMonth := make(map[string]*domain.MonthlyWonLost)
	byReason := make(map[string]*domain.LossReasonCount)
	var daysToCloseSum float64
	var daysToCloseCount int64

	for i := range deals {
		deal := &deals[i]
		month := deal.ActualCloseDate.Format("2006-01")
		bucket, ok := byMonth[month]
		if !ok {
			bucket = &domain.MonthlyWonLost{Month: month}
			byMonth[month] = bucket
		}

		switch deal.Status {
		case domain.DealStatusWon:
			analysis.WonCount++
			analysis.WonValue += deal.Value
			bucket.WonCount++
			bucket.WonValue += deal.Value
			daysToCloseSum += deal.ActualCloseDate.Sub(deal.CreatedAt).Hours() / 24
			daysToCloseCount++
		case domain.DealStatusLost:
			analysis.LostCount++
			analysis.LostValue += deal.Value
			bucket.LostCount++
			bucket.LostValue += deal.Value
			if deal.LossReason != "" {
				reason, ok := byReason[deal.LossReason]
				if !ok {
					reason = &domain.LossReasonCount{Reason: deal.LossReason}
					byReason[deal.LossReason] = reason
				}
				reason.Count++
				reason.LostValue += deal.Value
			}
		}
	}

	if closed := analysis.WonCount + analysis.LostCount; closed > 0 {
		analysis.WinRate = float64(analysis.WonCount) / float64(closed)
	}
	if daysToCloseCount > 0 {
		analysis.AvgDaysToClose = daysToCloseSum / float64(daysToCloseCount)
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		analysis.Monthly = append(analysis.Monthly, *byMonth[month])
	}

	for _, reason := range byReason {
		analysis.TopLossReasons = append(analysis.TopLossReasons, *reason)
	}
	sort.Slice(analysis.TopLossReasons, func(i, j int) bool {
		return analysis.TopLossReasons[i].Count > analysis.TopLossReasons[j].Count
	})
	if len(analysis.TopLossReasons) > 10 {
		analysis.TopLossReasons = analysis.TopLossReasons[:10]
	}
	return analysis, nil
}

// ListHistory returns a deal's stage transitions oldest first
func (s *DealService) ListHistory(ctx context.Context, dealID uuid.UUID) ([]domain.DealStageHistory, error) {
	if _, err := s.dealRepo.GetByID(ctx, dealID); err != nil {
		return nil, notFound(err, "deal")
	}
	return s.historyRepo.ListByDeal(ctx, dealID)
}

// TouchActivity records that something happened on the deal
func (s *DealService) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.dealRepo.TouchActivity(ctx, id, at)
}

// resolveTarget picks the pipeline and stage for a new deal: explicit
// ids when given, otherwise the default pipeline's first stage.
func (s *DealService) resolveTarget(ctx context.Context, pipelineID, stageID *uuid.UUID) (*domain.Pipeline, *domain.PipelineStage, error) {
	var pipeline *domain.Pipeline
	var err error
	if pipelineID != nil {
		pipeline, err = s.pipelineRepo.GetByID(ctx, *pipelineID)
		if err != nil {
			return nil, nil, notFound(err, "pipeline")
		}
	} else {
		pipeline, err = s.pipelineRepo.GetDefault(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, nil, domain.NewInvalidOperation("no default pipeline configured")
			}
			return nil, nil, fmt.Errorf("failed to load default pipeline: %w", err)
		}
	}
	if len(pipeline.Stages) == 0 {
		return nil, nil, domain.NewInvalidOperation("pipeline has no stages")
	}

	if stageID != nil {
		for i := range pipeline.Stages {
			if pipeline.Stages[i].ID == *stageID {
				return pipeline, &pipeline.Stages[i], nil
			}
		}
		return nil, nil, domain.NewInvalidOperation("stage does not belong to the pipeline")
	}
	return pipeline, &pipeline.Stages[0], nil
}

func applyDealUpdate(deal *domain.Deal, req *domain.UpdateDealRequest) {
	if req.Name != nil {
		deal.Name = *req.Name
	}
	if req.Value != nil {
		deal.Value = *req.Value
	}
	if req.Currency != nil {
		deal.Currency = *req.Currency
	}
	if req.Probability != nil {
		deal.Probability = req.Probability
	}
	if req.ExpectedCloseDate != nil {
		deal.ExpectedCloseDate = req.ExpectedCloseDate
	}
	if req.ContactID != nil {
		deal.ContactID = req.ContactID
	}
	if req.CompanyID != nil {
		deal.CompanyID = req.CompanyID
	}
	if req.Description != nil {
		deal.Description = *req.Description
	}
	if req.OwnerID != nil {
		deal.OwnerID = *req.OwnerID
	}
	if req.EntityData != nil {
		deal.EntityData = req.EntityData
	}
}
