package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TagService manages tags and their attachments across entity types
type TagService struct {
	tagRepo *repository.TagRepository
	quota   *quota.Client
	audit   *AuditLogService
	logger  *zap.Logger
}

func NewTagService(
	tagRepo *repository.TagRepository,
	quotaClient *quota.Client,
	audit *AuditLogService,
	logger *zap.Logger,
) *TagService {
	return &TagService{tagRepo: tagRepo, quota: quotaClient, audit: audit, logger: logger}
}

// WithTx returns a service whose tag writes join the given transaction.
// The entity services use this so tag replacement rolls back with the
// mutation that requested it.
func (s *TagService) WithTx(tx *gorm.DB) *TagService {
	return &TagService{tagRepo: s.tagRepo.WithTx(tx), quota: s.quota, audit: s.audit, logger: s.logger}
}

// List returns the tenant's tags, scoped to an entity type when given
func (s *TagService) List(ctx context.Context, entityType string) ([]domain.Tag, error) {
	var scope domain.TagEntityType
	if entityType != "" {
		t := domain.TagEntityType(entityType)
		if !t.IsValid() {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown entity type %q", entityType))
		}
		scope = t
	}
	return s.tagRepo.List(ctx, scope)
}

func (s *TagService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "tag")
	}
	return tag, nil
}

func (s *TagService) Create(ctx context.Context, req *domain.CreateTagRequest) (*domain.Tag, error) {
	entityType := domain.TagEntityType(req.EntityType)
	if req.EntityType == "" {
		entityType = domain.TagEntityAll
	}
	if !entityType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown entity type %q", req.EntityType))
	}

	if existing, err := s.tagRepo.FindByNameAndType(ctx, req.Name, entityType); err == nil && existing != nil {
		return nil, domain.NewDuplicateEntity("tag", "name", req.Name)
	} else if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to check tag name: %w", err)
	}

	current, err := s.tagRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}
	check := s.quota.Check(ctx, auth.OrgIDFromContext(ctx), "tags", 1, current)
	if !check.Allowed {
		return nil, domain.NewLimitExceeded("tags", check.Limit, current)
	}

	tag := &domain.Tag{
		TenantModel: domain.TenantModel{
			OrgID:   auth.OrgIDFromContext(ctx),
			OwnerID: auth.UserIDFromContext(ctx),
		},
		Name:       req.Name,
		EntityType: entityType,
		Color:      req.Color,
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionCreate, "tag", tag.ID, tag.Name, nil)
	return tag, nil
}

func (s *TagService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateTagRequest) (*domain.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "tag")
	}
	if err := auth.Authorize(ctx, "tags", "update", tag.OwnerID); err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != tag.Name {
		if existing, err := s.tagRepo.FindByNameAndType(ctx, *req.Name, tag.EntityType); err == nil && existing != nil && existing.ID != tag.ID {
			return nil, domain.NewDuplicateEntity("tag", "name", *req.Name)
		} else if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to check tag name: %w", err)
		}
		tag.Name = *req.Name
	}
	if req.Color != nil {
		tag.Color = *req.Color
	}

	if err := s.tagRepo.Update(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionUpdate, "tag", tag.ID, tag.Name, nil)
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "tag")
	}
	if err := auth.Authorize(ctx, "tags", "delete", tag.OwnerID); err != nil {
		return err
	}
	if err := s.tagRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionDelete, "tag", tag.ID, tag.Name, nil)
	return nil
}

// Attach links a tag to an entity. Idempotent; a tag scoped to one
// entity type cannot be attached to another.
func (s *TagService) Attach(ctx context.Context, tagID uuid.UUID, req *domain.AttachTagRequest) error {
	tag, err := s.tagRepo.GetByID(ctx, tagID)
	if err != nil {
		return notFound(err, "tag")
	}
	entityType := domain.TagEntityType(req.EntityType)
	if !tag.EntityType.Accepts(entityType) {
		return domain.NewInvalidOperation(
			fmt.Sprintf("tag %q is scoped to %s entities", tag.Name, tag.EntityType))
	}
	return s.tagRepo.Attach(ctx, auth.OrgIDFromContext(ctx), tagID, entityType, req.EntityID)
}

// Detach removes a tag link; detaching an absent link is a no-op
func (s *TagService) Detach(ctx context.Context, tagID uuid.UUID, req *domain.AttachTagRequest) error {
	if _, err := s.tagRepo.GetByID(ctx, tagID); err != nil {
		return notFound(err, "tag")
	}
	return s.tagRepo.Detach(ctx, tagID, domain.TagEntityType(req.EntityType), req.EntityID)
}

// ListForEntity returns an entity's tags
func (s *TagService) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.Tag, error) {
	t := domain.TagEntityType(entityType)
	if !t.IsValid() || t == domain.TagEntityAll {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown entity type %q", entityType))
	}
	return s.tagRepo.ListForEntity(ctx, t, entityID)
}

// BulkAttach applies a set of tags to a set of entities in one call
func (s *TagService) BulkAttach(ctx context.Context, req *domain.BulkTagRequest) error {
	entityType := domain.TagEntityType(req.EntityType)
	tags, err := s.tagRepo.GetByIDs(ctx, req.TagIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve tags: %w", err)
	}
	if len(tags) != len(req.TagIDs) {
		return domain.NewEntityNotFound("tag")
	}
	for _, tag := range tags {
		if !tag.EntityType.Accepts(entityType) {
			return domain.NewInvalidOperation(
				fmt.Sprintf("tag %q is scoped to %s entities", tag.Name, tag.EntityType))
		}
	}

	orgID := auth.OrgIDFromContext(ctx)
	for _, entityID := range req.EntityIDs {
		for _, tag := range tags {
			if err := s.tagRepo.Attach(ctx, orgID, tag.ID, entityType, entityID); err != nil {
				return fmt.Errorf("failed to attach tag: %w", err)
			}
		}
	}
	return nil
}

// Merge folds the source tag into the target, repointing attachments
// and deleting the source.
func (s *TagService) Merge(ctx context.Context, targetID uuid.UUID, req *domain.MergeTagsRequest) (*domain.Tag, error) {
	if targetID == req.SourceID {
		return nil, domain.NewInvalidOperation("cannot merge a tag into itself")
	}
	target, err := s.tagRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, notFound(err, "tag")
	}
	source, err := s.tagRepo.GetByID(ctx, req.SourceID)
	if err != nil {
		return nil, notFound(err, "tag")
	}
	if err := auth.Authorize(ctx, "tags", "delete", source.OwnerID); err != nil {
		return nil, err
	}
	if source.EntityType != target.EntityType &&
		source.EntityType != domain.TagEntityAll && target.EntityType != domain.TagEntityAll {
		return nil, domain.NewInvalidOperation("cannot merge tags with different entity scopes")
	}

	if err := s.tagRepo.Merge(ctx, source.ID, target.ID); err != nil {
		return nil, fmt.Errorf("failed to merge tags: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionMerge, "tag", target.ID, target.Name,
		map[string]interface{}{"mergedFrom": source.ID, "mergedFromName": source.Name})
	return target, nil
}

// resolveTags validates a tag id set for one entity type and returns
// the tag rows. Shared by the entity services.
func (s *TagService) resolveTags(ctx context.Context, entityType domain.TagEntityType, tagIDs []uuid.UUID) ([]domain.Tag, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	tags, err := s.tagRepo.GetByIDs(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}
	if len(tags) != len(tagIDs) {
		return nil, domain.NewEntityNotFound("tag")
	}
	for _, tag := range tags {
		if !tag.EntityType.Accepts(entityType) {
			return nil, domain.NewInvalidOperation(
				fmt.Sprintf("tag %q is scoped to %s entities", tag.Name, tag.EntityType))
		}
	}
	return tags, nil
}

// ReplaceEntityTags swaps an entity's tag set after validating scope
func (s *TagService) ReplaceEntityTags(ctx context.Context, entityType domain.TagEntityType, entityID uuid.UUID, tagIDs []uuid.UUID) ([]domain.Tag, error) {
	tags, err := s.resolveTags(ctx, entityType, tagIDs)
	if err != nil {
		return nil, err
	}
	if err := s.tagRepo.ReplaceForEntity(ctx, auth.OrgIDFromContext(ctx), entityType, entityID, tagIDs); err != nil {
		return nil, fmt.Errorf("failed to replace tags: %w", err)
	}
	return tags, nil
}

// MoveEntityTags unions one entity's tag set into another's. Used by
// the contact and company merges.
func (s *TagService) MoveEntityTags(ctx context.Context, entityType domain.TagEntityType, fromID, toID uuid.UUID) error {
	return s.tagRepo.MoveEntityAttachments(ctx, entityType, fromID, toID)
}

// DecorateTags populates the transient Tags field for a batch of
// entities in a single query.
func (s *TagService) DecorateTags(ctx context.Context, entityType domain.TagEntityType, ids []uuid.UUID, assign func(entityID uuid.UUID, tags []domain.Tag)) error {
	links, err := s.tagRepo.ListForEntities(ctx, entityType, ids)
	if err != nil {
		return err
	}
	byEntity := make(map[uuid.UUID][]domain.Tag)
	for _, link := range links {
		if link.Tag != nil {
			byEntity[link.EntityID] = append(byEntity[link.EntityID], *link.Tag)
		}
	}
	for _, id := range ids {
		assign(id, byEntity[id])
	}
	return nil
}
