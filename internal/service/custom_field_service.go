package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
)

// fieldNamePattern constrains custom field names to safe identifiers
var fieldNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CustomFieldService manages per-tenant custom field definitions.
// Name and field type are immutable after creation; stored values are
// validated against the definitions by the form service.
type CustomFieldService struct {
	fieldRepo *repository.CustomFieldRepository
	formRepo  *repository.FormRepository
	quota     *quota.Client
	audit     *AuditLogService
	logger    *zap.Logger
}

func NewCustomFieldService(
	fieldRepo *repository.CustomFieldRepository,
	formRepo *repository.FormRepository,
	quotaClient *quota.Client,
	audit *AuditLogService,
	logger *zap.Logger,
) *CustomFieldService {
	return &CustomFieldService{
		fieldRepo: fieldRepo,
		formRepo:  formRepo,
		quota:     quotaClient,
		audit:     audit,
		logger:    logger,
	}
}

// List returns the definitions for an entity type in display order
func (s *CustomFieldService) List(ctx context.Context, entityType string, activeOnly bool) ([]domain.CustomFieldDefinition, error) {
	t := domain.TagEntityType(entityType)
	if !t.IsValid() || t == domain.TagEntityAll {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown entity type %q", entityType))
	}
	return s.fieldRepo.List(ctx, t, activeOnly)
}

func (s *CustomFieldService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomFieldDefinition, error) {
	field, err := s.fieldRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "custom field")
	}
	return field, nil
}

func (s *CustomFieldService) Create(ctx context.Context, req *domain.CreateCustomFieldRequest) (*domain.CustomFieldDefinition, error) {
	entityType := domain.TagEntityType(req.EntityType)
	if !entityType.IsValid() || entityType == domain.TagEntityAll {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown entity type %q", req.EntityType))
	}
	fieldType := domain.FieldType(req.FieldType)
	if !fieldType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown field type %q", req.FieldType))
	}
	if !fieldNamePattern.MatchString(req.Name) {
		return nil, domain.NewValidationError("field name must be lowercase letters, digits and underscores, starting with a letter")
	}
	if fieldType.RequiresOptions() && len(req.Options) == 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("field type %q requires an options list", req.FieldType))
	}

	if existing, err := s.fieldRepo.FindByName(ctx, entityType, req.Name); err == nil && existing != nil {
		return nil, domain.NewDuplicateEntity("custom field", "name", req.Name)
	} else if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to check field name: %w", err)
	}

	current, err := s.fieldRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count custom fields: %w", err)
	}
	check := s.quota.Check(ctx, auth.OrgIDFromContext(ctx), "custom_fields", 1, current)
	if !check.Allowed {
		return nil, domain.NewLimitExceeded("custom_fields", check.Limit, current)
	}

	displayOrder := req.DisplayOrder
	if displayOrder == 0 {
		max, err := s.fieldRepo.MaxDisplayOrder(ctx, entityType)
		if err != nil {
			return nil, fmt.Errorf("failed to compute display order: %w", err)
		}
		displayOrder = max + 1
	}

	field := &domain.CustomFieldDefinition{
		TenantModel: domain.TenantModel{
			OrgID:   auth.OrgIDFromContext(ctx),
			OwnerID: auth.UserIDFromContext(ctx),
		},
		EntityType:      entityType,
		Name:            req.Name,
		Label:           req.Label,
		FieldType:       fieldType,
		IsRequired:      req.IsRequired,
		IsUnique:        req.IsUnique,
		DefaultValue:    req.DefaultValue,
		Options:         req.Options,
		ValidationRules: req.ValidationRules,
		DisplayOrder:    displayOrder,
		IsActive:        true,
	}
	if err := s.fieldRepo.Create(ctx, field); err != nil {
		return nil, fmt.Errorf("failed to create custom field: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionCreate, "custom_field", field.ID, field.Name, nil)
	return field, nil
}

// Update changes the mutable attributes of a definition. Name and field
// type cannot change once values may reference them.
func (s *CustomFieldService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCustomFieldRequest) (*domain.CustomFieldDefinition, error) {
	field, err := s.fieldRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "custom field")
	}
	if err := auth.Authorize(ctx, "custom_fields", "update", field.OwnerID); err != nil {
		return nil, err
	}

	if req.Label != nil {
		field.Label = *req.Label
	}
	if req.IsRequired != nil {
		field.IsRequired = *req.IsRequired
	}
	if req.DefaultValue != nil {
		field.DefaultValue = *req.DefaultValue
	}
	if req.Options != nil {
		if field.FieldType.RequiresOptions() && len(*req.Options) == 0 {
			return nil, domain.NewValidationError(fmt.Sprintf("field type %q requires an options list", field.FieldType))
		}
		field.Options = *req.Options
	}
	if req.ValidationRules != nil {
		field.ValidationRules = *req.ValidationRules
	}
	if req.DisplayOrder != nil {
		field.DisplayOrder = *req.DisplayOrder
	}
	if req.IsActive != nil {
		field.IsActive = *req.IsActive
	}

	if err := s.fieldRepo.Update(ctx, field); err != nil {
		return nil, fmt.Errorf("failed to update custom field: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionUpdate, "custom_field", field.ID, field.Name, nil)
	return field, nil
}

// Delete removes a definition. Values already stored in entity_data are
// left in place; they stop being validated or projected.
func (s *CustomFieldService) Delete(ctx context.Context, id uuid.UUID) error {
	field, err := s.fieldRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "custom field")
	}
	if err := auth.Authorize(ctx, "custom_fields", "delete", field.OwnerID); err != nil {
		return err
	}
	if err := s.fieldRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete custom field: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionDelete, "custom_field", field.ID, field.Name, nil)
	return nil
}
