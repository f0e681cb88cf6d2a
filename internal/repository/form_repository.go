package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

// FormRepository handles database operations for form definitions
type FormRepository struct {
	db *gorm.DB
}

// NewFormRepository creates a new form repository
func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *FormRepository) WithTx(tx *gorm.DB) *FormRepository {
	return &FormRepository{db: tx}
}

// GetDefault returns the tenant's default active form for one entity
// and form type, if materialized.
func (r *FormRepository) GetDefault(ctx context.Context, entityType domain.TagEntityType, formType domain.FormType) (*domain.FormDefinition, error) {
	var form domain.FormDefinition
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_type = ? AND form_type = ? AND is_default = ? AND is_active = ?",
			entityType, formType, true, true).
		First(&form).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// GetByID returns a form within the request's tenant
func (r *FormRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FormDefinition, error) {
	var form domain.FormDefinition
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		First(&form, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// List returns the tenant's forms for an entity type
func (r *FormRepository) List(ctx context.Context, entityType domain.TagEntityType) ([]domain.FormDefinition, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx))
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	var forms []domain.FormDefinition
	err := query.Order("entity_type ASC, form_type ASC").Find(&forms).Error
	return forms, err
}

// Create inserts a new form
func (r *FormRepository) Create(ctx context.Context, form *domain.FormDefinition) error {
	return r.db.WithContext(ctx).Create(form).Error
}

// Update saves an existing form
func (r *FormRepository) Update(ctx context.Context, form *domain.FormDefinition) error {
	return r.db.WithContext(ctx).Save(form).Error
}
