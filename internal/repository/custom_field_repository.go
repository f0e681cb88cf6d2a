package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

// CustomFieldRepository handles database operations for custom field
// definitions.
type CustomFieldRepository struct {
	db *gorm.DB
}

// NewCustomFieldRepository creates a new custom field repository
func NewCustomFieldRepository(db *gorm.DB) *CustomFieldRepository {
	return &CustomFieldRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *CustomFieldRepository) WithTx(tx *gorm.DB) *CustomFieldRepository {
	return &CustomFieldRepository{db: tx}
}

// List returns the definitions for an entity type in display order
func (r *CustomFieldRepository) List(ctx context.Context, entityType domain.TagEntityType, activeOnly bool) ([]domain.CustomFieldDefinition, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_type = ?", entityType)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var fields []domain.CustomFieldDefinition
	err := query.Order("display_order ASC, created_at ASC").Find(&fields).Error
	return fields, err
}

// GetByID returns a definition within the request's tenant
func (r *CustomFieldRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomFieldDefinition, error) {
	var field domain.CustomFieldDefinition
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		First(&field, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}

// FindByName matches a definition by entity type and exact name
func (r *CustomFieldRepository) FindByName(ctx context.Context, entityType domain.TagEntityType, name string) (*domain.CustomFieldDefinition, error) {
	var field domain.CustomFieldDefinition
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_type = ? AND LOWER(name) = ?", entityType, strings.ToLower(name)).
		First(&field).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}

// Create inserts a new definition
func (r *CustomFieldRepository) Create(ctx context.Context, field *domain.CustomFieldDefinition) error {
	return r.db.WithContext(ctx).Create(field).Error
}

// Update saves an existing definition
func (r *CustomFieldRepository) Update(ctx context.Context, field *domain.CustomFieldDefinition) error {
	return r.db.WithContext(ctx).Save(field).Error
}

// Delete removes a definition; stored entity_data values are left in
// place and simply stop being projected.
func (r *CustomFieldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Delete(&domain.CustomFieldDefinition{}, "id = ?", id).Error
}

// Count returns the tenant's definition count for quota checks
func (r *CustomFieldRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CustomFieldDefinition{}).
		Scopes(TenantScope(ctx)).
		Count(&count).Error
	return count, err
}

// MaxDisplayOrder returns the highest display_order for an entity type
func (r *CustomFieldRepository) MaxDisplayOrder(ctx context.Context, entityType domain.TagEntityType) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&domain.CustomFieldDefinition{}).
		Scopes(TenantScope(ctx)).
		Where("entity_type = ?", entityType).
		Select("MAX(display_order)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}
