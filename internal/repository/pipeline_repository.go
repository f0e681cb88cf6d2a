package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

// PipelineRepository handles database operations for pipelines and
// their stages.
type PipelineRepository struct {
	db *gorm.DB
}

// NewPipelineRepository creates a new pipeline repository
func NewPipelineRepository(db *gorm.DB) *PipelineRepository {
	return &PipelineRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PipelineRepository) WithTx(tx *gorm.DB) *PipelineRepository {
	return &PipelineRepository{db: tx}
}

// List returns all pipelines for the tenant with ordered stages
func (r *PipelineRepository) List(ctx context.Context) ([]domain.Pipeline, error) {
	var pipelines []domain.Pipeline
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Order("created_at ASC").
		Find(&pipelines).Error
	return pipelines, err
}

// GetByID returns a pipeline with its ordered stages
func (r *PipelineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		First(&pipeline, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// GetDefault returns the tenant's default pipeline
func (r *PipelineRepository) GetDefault(ctx context.Context) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("is_default = ?", true).
		First(&pipeline).Error
	if err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// Create inserts a pipeline together with its stages
func (r *PipelineRepository) Create(ctx context.Context, pipeline *domain.Pipeline) error {
	return r.db.WithContext(ctx).Create(pipeline).Error
}

// Update saves pipeline fields (not stages)
func (r *PipelineRepository) Update(ctx context.Context, pipeline *domain.Pipeline) error {
	return r.db.WithContext(ctx).Omit("Stages").Save(pipeline).Error
}

// Delete removes a pipeline and cascades to its stages
func (r *PipelineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Select("Stages").
		Delete(&domain.Pipeline{TenantModel: domain.TenantModel{ID: id}}).Error
}

// Count returns the tenant's pipeline count for quota checks
func (r *PipelineRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Pipeline{}).
		Scopes(TenantScope(ctx)).
		Count(&count).Error
	return count, err
}

// ClearDefault demotes the current default pipeline, if any
func (r *PipelineRepository) ClearDefault(ctx context.Context, exceptID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Pipeline{}).
		Scopes(TenantScope(ctx)).
		Where("is_default = ? AND id <> ?", true, exceptID).
		Update("is_default", false).Error
}

// SetDefault promotes a pipeline to the tenant default
func (r *PipelineRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Pipeline{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Update("is_default", true).Error
}

// --- stages ---

// GetStage returns a single stage within the tenant
func (r *PipelineRepository) GetStage(ctx context.Context, stageID uuid.UUID) (*domain.PipelineStage, error) {
	var stage domain.PipelineStage
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		First(&stage, "id = ?", stageID).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// ListStages returns a pipeline's stages in display order
func (r *PipelineRepository) ListStages(ctx context.Context, pipelineID uuid.UUID) ([]domain.PipelineStage, error) {
	var stages []domain.PipelineStage
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("pipeline_id = ?", pipelineID).
		Order("display_order ASC").
		Find(&stages).Error
	return stages, err
}

// CreateStage inserts a stage
func (r *PipelineRepository) CreateStage(ctx context.Context, stage *domain.PipelineStage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

// UpdateStage saves a stage
func (r *PipelineRepository) UpdateStage(ctx context.Context, stage *domain.PipelineStage) error {
	return r.db.WithContext(ctx).Save(stage).Error
}

// DeleteStage removes a stage
func (r *PipelineRepository) DeleteStage(ctx context.Context, stageID uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Delete(&domain.PipelineStage{}, "id = ?", stageID).Error
}

// MaxStageOrder returns the highest display_order in a pipeline
func (r *PipelineRepository) MaxStageOrder(ctx context.Context, pipelineID uuid.UUID) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&domain.PipelineStage{}).
		Scopes(TenantScope(ctx)).
		Where("pipeline_id = ?", pipelineID).
		Select("MAX(display_order)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

// SetStageOrder updates one stage's position
func (r *PipelineRepository) SetStageOrder(ctx context.Context, stageID uuid.UUID, order int) error {
	return r.db.WithContext(ctx).Model(&domain.PipelineStage{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", stageID).
		Update("display_order", order).Error
}

// CountDealsInStage reports how many live deals sit in a stage
func (r *PipelineRepository) CountDealsInStage(ctx context.Context, stageID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Where("stage_id = ?", stageID).
		Count(&count).Error
	return count, err
}

// CountDealsInPipeline reports how many live deals reference a pipeline
func (r *PipelineRepository) CountDealsInPipeline(ctx context.Context, pipelineID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Where("pipeline_id = ?", pipelineID).
		Count(&count).Error
	return count, err
}
