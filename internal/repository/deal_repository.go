package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

var dealOrderFields = map[string]string{
	"created_at":          "created_at",
	"updated_at":          "updated_at",
	"name":                "name",
	"value":               "value",
	"status":              "status",
	"stage_entered_at":    "stage_entered_at",
	"expected_close_date": "expected_close_date",
	"actual_close_date":   "actual_close_date",
}

var dealFilterFields = map[string]FilterField{
	"name":                {Column: "name", Kind: KindText},
	"status":              {Column: "status", Kind: KindEnum},
	"pipeline_id":         {Column: "pipeline_id", Kind: KindUUID},
	"stage_id":            {Column: "stage_id", Kind: KindUUID},
	"contact_id":          {Column: "contact_id", Kind: KindUUID},
	"company_id":          {Column: "company_id", Kind: KindUUID},
	"owner_id":            {Column: "owner_id", Kind: KindUUID},
	"value":               {Column: "value", Kind: KindNumber},
	"currency":            {Column: "currency", Kind: KindEnum},
	"loss_reason":         {Column: "loss_reason", Kind: KindText},
	"expected_close_date": {Column: "expected_close_date", Kind: KindDate},
	"created_at":          {Column: "created_at", Kind: KindDate},
}

// DealRepository handles database operations for deals
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *DealRepository) WithTx(tx *gorm.DB) *DealRepository {
	return &DealRepository{db: tx}
}

// List returns a filtered, ordered page of deals with the total count
func (r *DealRepository) List(ctx context.Context, params domain.ListParams) ([]domain.Deal, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Deal{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}
	query = ApplyFilters(query, params.Filters, params.FilterLogic, dealFilterFields)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deals []domain.Deal
	err := query.
		Preload("Stage").
		Preload("Contact").
		Preload("Company").
		Order(BuildOrderClause(params.OrderBy, dealOrderFields)).
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&deals).Error
	return deals, total, err
}

// GetByID returns a deal with stage and linked parties
func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Preload("Stage").
		Preload("Contact").
		Preload("Company").
		First(&deal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// GetDeletedByID returns a soft-deleted deal for restore
func (r *DealRepository) GetDeletedByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Where("deleted_at IS NOT NULL").
		First(&deal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Create inserts a new deal
func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit("Stage", "Pipeline", "Contact", "Company").Create(deal).Error
}

// Update saves an existing deal
func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit("Stage", "Pipeline", "Contact", "Company").Save(deal).Error
}

// SoftDelete hides a deal, recording who deleted it
func (r *DealRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC(), "deleted_by": deletedBy}).Error
}

// HardDelete permanently removes a deal
func (r *DealRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Delete(&domain.Deal{}, "id = ?", id).Error
}

// Restore clears the soft-delete markers
func (r *DealRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": nil, "deleted_by": nil}).Error
}

// Count returns the tenant's live deal count for quota checks
func (r *DealRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Count(&count).Error
	return count, err
}

// StageAggregateRow is one (stage, status) slice of the pipeline
// aggregate query.
type StageAggregateRow struct {
	StageID       uuid.UUID
	Status        domain.DealStatus
	Count         int64
	TotalValue    float64
	WeightedValue float64
}

// AggregateByStage computes the pipeline statistics in a single query.
// Weighted value uses the deal's probability override when present,
// falling back to the stage probability.
func (r *DealRepository) AggregateByStage(ctx context.Context, pipelineID uuid.UUID) ([]StageAggregateRow, error) {
	var rows []StageAggregateRow
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Select(`deals.stage_id,
			deals.status,
			COUNT(*) AS count,
			COALESCE(SUM(deals.value), 0) AS total_value,
			COALESCE(SUM(deals.value * COALESCE(deals.probability, pipeline_stages.probability, 0) / 100.0), 0) AS weighted_value`).
		Joins("JOIN pipeline_stages ON pipeline_stages.id = deals.stage_id").
		Scopes(TenantScopeColumn(ctx, "deals.org_id")).
		Where("deals.pipeline_id = ?", pipelineID).
		Group("deals.stage_id, deals.status").
		Scan(&rows).Error
	return rows, err
}

// ListByPipeline returns every deal in a pipeline in one fetch,
// ordered by time in stage. Used by the kanban board.
func (r *DealRepository) ListByPipeline(ctx context.Context, pipelineID uuid.UUID) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Preload("Contact").
		Preload("Company").
		Where("pipeline_id = ?", pipelineID).
		Order("stage_entered_at ASC").
		Find(&deals).Error
	return deals, err
}

// ListOpenClosingBetween returns open deals expected to close inside
// the window; used by the forecast.
func (r *DealRepository) ListOpenClosingBetween(ctx context.Context, from, until time.Time) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Preload("Stage").
		Where("status = ? AND expected_close_date IS NOT NULL AND expected_close_date >= ? AND expected_close_date <= ?",
			domain.DealStatusOpen, from, until).
		Find(&deals).Error
	return deals, err
}

// ListClosedSince returns won and lost deals closed in the window
func (r *DealRepository) ListClosedSince(ctx context.Context, since time.Time) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("status IN ? AND actual_close_date IS NOT NULL AND actual_close_date >= ?",
			[]domain.DealStatus{domain.DealStatusWon, domain.DealStatusLost}, since).
		Find(&deals).Error
	return deals, err
}

// FindUniqueValue scans for other deals whose entity_data may hold the
// same value for a unique custom field.
func (r *DealRepository) FindUniqueValue(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.Deal, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_data LIKE ?", pattern)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var deals []domain.Deal
	err := query.Limit(50).Find(&deals).Error
	return deals, err
}

// Search returns lightweight hits for the global search
func (r *DealRepository) Search(ctx context.Context, query string, limit int) ([]domain.Deal, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var deals []domain.Deal
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(name) LIKE ?", pattern).
		Limit(limit).
		Find(&deals).Error
	return deals, err
}

// TouchActivity bumps last_activity_at
func (r *DealRepository) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}
