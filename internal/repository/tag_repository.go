package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

// TagRepository handles database operations for tags and their
// attachments to entities.
type TagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *TagRepository) WithTx(tx *gorm.DB) *TagRepository {
	return &TagRepository{db: tx}
}

// List returns the tenant's tags, optionally filtered by entity type
func (r *TagRepository) List(ctx context.Context, entityType domain.TagEntityType) ([]domain.Tag, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx))
	if entityType != "" {
		query = query.Where("entity_type IN ?", []domain.TagEntityType{entityType, domain.TagEntityAll})
	}
	var tags []domain.Tag
	err := query.Order("name ASC").Find(&tags).Error
	return tags, err
}

// GetByID returns a tag within the request's tenant
func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		First(&tag, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetByIDs returns the subset of ids that exist in the tenant
func (r *TagRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []domain.Tag
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("id IN ?", ids).
		Find(&tags).Error
	return tags, err
}

// FindByNameAndType matches a tag by case-insensitive name and scope
func (r *TagRepository) FindByNameAndType(ctx context.Context, name string, entityType domain.TagEntityType) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(name) = ? AND entity_type = ?", strings.ToLower(name), entityType).
		First(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// Create inserts a new tag
func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// Update saves an existing tag
func (r *TagRepository) Update(ctx context.Context, tag *domain.Tag) error {
	return r.db.WithContext(ctx).Save(tag).Error
}

// Delete removes a tag and all of its attachments
func (r *TagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(TenantScope(ctx)).
			Delete(&domain.EntityTag{}, "tag_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Scopes(TenantScope(ctx)).
			Delete(&domain.Tag{}, "id = ?", id).Error
	})
}

// Count returns the tenant's tag count for quota checks
func (r *TagRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Tag{}).
		Scopes(TenantScope(ctx)).
		Count(&count).Error
	return count, err
}

// --- attachments ---

// Attach links a tag to an entity. Idempotent: attaching twice leaves
// a single row.
func (r *TagRepository) Attach(ctx context.Context, orgID, tagID uuid.UUID, entityType domain.TagEntityType, entityID uuid.UUID) error {
	link := domain.EntityTag{
		OrgID:      orgID,
		TagID:      tagID,
		EntityType: entityType,
		EntityID:   entityID,
	}
	return r.db.WithContext(ctx).
		Where("org_id = ? AND tag_id = ? AND entity_type = ? AND entity_id = ?",
			orgID, tagID, entityType, entityID).
		FirstOrCreate(&link).Error
}

// Detach removes the tag link; detaching an absent link is a no-op
func (r *TagRepository) Detach(ctx context.Context, tagID uuid.UUID, entityType domain.TagEntityType, entityID uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("tag_id = ? AND entity_type = ? AND entity_id = ?", tagID, entityType, entityID).
		Delete(&domain.EntityTag{}).Error
}

// ListForEntity returns the tags attached to one entity
func (r *TagRepository) ListForEntity(ctx context.Context, entityType domain.TagEntityType, entityID uuid.UUID) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := r.db.WithContext(ctx).Model(&domain.Tag{}).
		Scopes(TenantScopeColumn(ctx, "tags.org_id")).
		Joins("JOIN entity_tags ON entity_tags.tag_id = tags.id").
		Where("entity_tags.entity_type = ? AND entity_tags.entity_id = ?", entityType, entityID).
		Order("tags.name ASC").
		Find(&tags).Error
	return tags, err
}

// ListForEntities returns the attachments for a batch of entity ids,
// tag preloaded, so list endpoints resolve tags in one query.
func (r *TagRepository) ListForEntities(ctx context.Context, entityType domain.TagEntityType, entityIDs []uuid.UUID) ([]domain.EntityTag, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	var links []domain.EntityTag
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Preload("Tag").
		Where("entity_type = ? AND entity_id IN ?", entityType, entityIDs).
		Find(&links).Error
	return links, err
}

// ReplaceForEntity swaps an entity's full tag set in one transaction
func (r *TagRepository) ReplaceForEntity(ctx context.Context, orgID uuid.UUID, entityType domain.TagEntityType, entityID uuid.UUID, tagIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(TenantScope(ctx)).
			Where("entity_type = ? AND entity_id = ?", entityType, entityID).
			Delete(&domain.EntityTag{}).Error; err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			link := domain.EntityTag{
				OrgID:      orgID,
				TagID:      tagID,
				EntityType: entityType,
				EntityID:   entityID,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CountAttachments reports how many entities carry the tag
func (r *TagRepository) CountAttachments(ctx context.Context, tagID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.EntityTag{}).
		Scopes(TenantScope(ctx)).
		Where("tag_id = ?", tagID).
		Count(&count).Error
	return count, err
}

// MoveEntityAttachments repoints every tag attachment of one entity
// onto another, dropping rows that would duplicate an attachment the
// target already carries. Used when entities are merged.
func (r *TagRepository) MoveEntityAttachments(ctx context.Context, entityType domain.TagEntityType, fromID, toID uuid.UUID) error {
	var links []domain.EntityTag
	if err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_type = ? AND entity_id = ?", entityType, fromID).
		Find(&links).Error; err != nil {
		return err
	}
	for _, link := range links {
		target := domain.EntityTag{
			OrgID:      link.OrgID,
			TagID:      link.TagID,
			EntityType: entityType,
			EntityID:   toID,
		}
		if err := r.db.WithContext(ctx).
			Where("org_id = ? AND tag_id = ? AND entity_type = ? AND entity_id = ?",
				link.OrgID, link.TagID, entityType, toID).
			FirstOrCreate(&target).Error; err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_type = ? AND entity_id = ?", entityType, fromID).
		Delete(&domain.EntityTag{}).Error
}

// Merge repoints every attachment of source onto target, dropping rows
// that would duplicate an existing target attachment, then deletes the
// source tag.
func (r *TagRepository) Merge(ctx context.Context, sourceID, targetID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var links []domain.EntityTag
		if err := tx.Scopes(TenantScope(ctx)).
			Where("tag_id = ?", sourceID).
			Find(&links).Error; err != nil {
			return err
		}
		for _, link := range links {
			target := domain.EntityTag{
				OrgID:      link.OrgID,
				TagID:      targetID,
				EntityType: link.EntityType,
				EntityID:   link.EntityID,
			}
			if err := tx.Where("org_id = ? AND tag_id = ? AND entity_type = ? AND entity_id = ?",
				link.OrgID, targetID, link.EntityType, link.EntityID).
				FirstOrCreate(&target).Error; err != nil {
				return err
			}
		}
		if err := tx.Scopes(TenantScope(ctx)).
			Delete(&domain.EntityTag{}, "tag_id = ?", sourceID).Error; err != nil {
			return err
		}
		return tx.Scopes(TenantScope(ctx)).
			Delete(&domain.Tag{}, "id = ?", sourceID).Error
	})
}
