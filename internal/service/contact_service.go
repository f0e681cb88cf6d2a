package service

import (
	"context"
	"fmt"
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

// ContactService implements the contact lifecycle: CRUD with soft
// delete, duplicate detection, merge, tag replacement, quota
// enforcement and audit.
type ContactService struct {
	db          *gorm.DB
	contactRepo *repository.ContactRepository
	companyRepo *repository.CompanyRepository
	tagService  *TagService
	formService *FormService
	quota       *quota.Client
	events      events.Publisher
	audit       *AuditLogService
	logger      *zap.Logger
}

func NewContactService(
	db *gorm.DB,
	contactRepo *repository.ContactRepository,
	companyRepo *repository.CompanyRepository,
	tagService *TagService,
	formService *FormService,
	quotaClient *quota.Client,
	publisher events.Publisher,
	audit *AuditLogService,
	logger *zap.Logger,
) *ContactService {
	return &ContactService{
		db:          db,
		contactRepo: contactRepo,
		companyRepo: companyRepo,
		tagService:  tagService,
		formService: formService,
		quota:       quotaClient,
		events:      publisher,
		audit:       audit,
		logger:      logger,
	}
}

func (s *ContactService) List(ctx context.Context, params domain.ListParams) (*domain.PaginatedResponse, error) {
	contacts, total, err := s.contactRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	ids := make([]uuid.UUID, len(contacts))
	for i := range contacts {
		ids[i] = contacts[i].ID
	}
	index := make(map[uuid.UUID]*domain.Contact, len(contacts))
	for i := range contacts {
		index[contacts[i].ID] = &contacts[i]
	}
	if err := s.tagService.DecorateTags(ctx, domain.TagEntityContact, ids, func(id uuid.UUID, tags []domain.Tag) {
		index[id].Tags = tags
	}); err != nil {
		s.logger.Warn("failed to decorate contact tags", zap.Error(err))
	}

	resp := domain.NewPaginatedResponse(contacts, params, total)
	return &resp, nil
}

func (s *ContactService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "contact")
	}
	tags, err := s.tagService.ListForEntity(ctx, string(domain.TagEntityContact), id)
	if err == nil {
		contact.Tags = tags
	}
	return contact, nil
}

func (s *ContactService) Create(ctx context.Context, req *domain.CreateContactRequest) (*domain.Contact, error) {
	if err := s.formService.ValidateEntityData(ctx, domain.TagEntityContact, req.EntityData, nil); err != nil {
		return nil, err
	}

	if req.Email != "" {
		if existing, err := s.contactRepo.FindByEmail(ctx, req.Email, nil); err == nil && existing != nil {
			return nil, domain.NewDuplicateEntity("contact", "email", req.Email)
		} else if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to check contact email: %w", err)
		}
	}

	if req.PrimaryCompanyID != nil {
		if _, err := s.companyRepo.GetByID(ctx, *req.PrimaryCompanyID); err != nil {
			return nil, notFound(err, "company")
		}
	}

	current, err := s.contactRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	orgID := auth.OrgIDFromContext(ctx)
	check := s.quota.Check(ctx, orgID, "contacts", 1, current)
	if !check.Allowed {
		return nil, domain.NewLimitExceeded("contacts", check.Limit, current)
	}

	actorID := auth.UserIDFromContext(ctx)
	ownerID := actorID
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}
	status := domain.ContactStatus(req.Status)
	if status == "" {
		status = domain.ContactStatusActive
	}

	contact := &domain.Contact{
		TenantModel:      domain.TenantModel{OrgID: orgID, OwnerID: ownerID},
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		SecondaryEmail:   req.SecondaryEmail,
		Phone:            req.Phone,
		Mobile:           req.Mobile,
		Title:            req.Title,
		Department:       req.Department,
		Status:           status,
		PrimaryCompanyID: req.PrimaryCompanyID,
		Address:          req.Address,
		City:             req.City,
		PostalCode:       req.PostalCode,
		Country:          req.Country,
		LinkedInURL:      req.LinkedInURL,
		TwitterURL:       req.TwitterURL,
		Source:           req.Source,
		SourceDetail:     req.SourceDetail,
		Description:      req.Description,
		EntityData:       req.EntityData,
	}

	var hooks afterCommit
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txContacts := s.contactRepo.WithTx(tx)
		if err := txContacts.Create(ctx, contact); err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}
		if req.PrimaryCompanyID != nil {
			link := &domain.ContactCompany{
				OrgID:     orgID,
				ContactID: contact.ID,
				CompanyID: *req.PrimaryCompanyID,
				IsPrimary: true,
				IsCurrent: true,
			}
			if err := s.companyRepo.WithTx(tx).LinkContact(ctx, link); err != nil {
				return fmt.Errorf("failed to link primary company: %w", err)
			}
		}
		if len(req.TagIDs) > 0 {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityContact, contact.ID, req.TagIDs)
			if err != nil {
				return err
			}
			contact.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionCreate, "contact", contact.ID, contact.FullName(), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	hooks.Add(func() {
		s.quota.SyncUsage(context.Background(), orgID, "contacts", current+1)
		s.events.Publish(context.Background(), events.Event{
			Type: "contact.created", OrgID: orgID, ActorID: actorID,
			EntityType: "contact", EntityID: contact.ID,
		})
	})
	hooks.Run()

	return contact, nil
}

func (s *ContactService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateContactRequest) (*domain.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "contact")
	}
	if err := auth.Authorize(ctx, "contacts", "update", contact.OwnerID); err != nil {
		return nil, err
	}

	if req.EntityData != nil {
		if err := s.formService.ValidateEntityData(ctx, domain.TagEntityContact, req.EntityData, &id); err != nil {
			return nil, err
		}
	}
	if req.Email != nil && *req.Email != "" && *req.Email != contact.Email {
		if existing, err := s.contactRepo.FindByEmail(ctx, *req.Email, &id); err == nil && existing != nil {
			return nil, domain.NewDuplicateEntity("contact", "email", *req.Email)
		} else if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to check contact email: %w", err)
		}
	}

	before := *contact
	applyContactUpdate(contact, req)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.contactRepo.WithTx(tx).Update(ctx, contact); err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
		if req.TagIDs != nil {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityContact, contact.ID, *req.TagIDs)
			if err != nil {
				return err
			}
			contact.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "contact", contact.ID, contact.FullName(),
			BuildDiff(&before, contact))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(context.Background(), events.Event{
		Type: "contact.updated", OrgID: contact.OrgID, ActorID: auth.UserIDFromContext(ctx),
		EntityType: "contact", EntityID: contact.ID,
	})
	return contact, nil
}

func applyContactUpdate(contact *domain.Contact, req *domain.UpdateContactRequest) {
	if req.FirstName != nil {
		contact.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		contact.LastName = *req.LastName
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.SecondaryEmail != nil {
		contact.SecondaryEmail = *req.SecondaryEmail
	}
	if req.Phone != nil {
		contact.Phone = *req.Phone
	}
	if req.Mobile != nil {
		contact.Mobile = *req.Mobile
	}
	if req.Title != nil {
		contact.Title = *req.Title
	}
	if req.Department != nil {
		contact.Department = *req.Department
	}
	if req.Status != nil {
		contact.Status = domain.ContactStatus(*req.Status)
	}
	if req.PrimaryCompanyID != nil {
		contact.PrimaryCompanyID = req.PrimaryCompanyID
	}
	if req.Address != nil {
		contact.Address = *req.Address
	}
	if req.City != nil {
		contact.City = *req.City
	}
	if req.PostalCode != nil {
		contact.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		contact.Country = *req.Country
	}
	if req.LinkedInURL != nil {
		contact.LinkedInURL = *req.LinkedInURL
	}
	if req.TwitterURL != nil {
		contact.TwitterURL = *req.TwitterURL
	}
	if req.Source != nil {
		contact.Source = *req.Source
	}
	if req.SourceDetail != nil {
		contact.SourceDetail = *req.SourceDetail
	}
	if req.Description != nil {
		contact.Description = *req.Description
	}
	if req.OwnerID != nil {
		contact.OwnerID = *req.OwnerID
	}
	if req.EntityData != nil {
		contact.EntityData = req.EntityData
	}
}

// Delete soft-deletes a contact
func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "contact")
	}
	if err := auth.Authorize(ctx, "contacts", "delete", contact.OwnerID); err != nil {
		return err
	}

	actorID := auth.UserIDFromContext(ctx)
	if err := s.contactRepo.SoftDelete(ctx, id, actorID); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionDelete, "contact", contact.ID, contact.FullName(), nil)

	if count, err := s.contactRepo.Count(ctx); err == nil {
		s.quota.SyncUsage(context.Background(), contact.OrgID, "contacts", count)
	}
	s.events.Publish(context.Background(), events.Event{
		Type: "contact.deleted", OrgID: contact.OrgID, ActorID: actorID,
		EntityType: "contact", EntityID: contact.ID,
	})
	return nil
}

// Restore revives a soft-deleted contact
func (s *ContactService) Restore(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	contact, err := s.contactRepo.GetDeletedByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "contact")
	}
	if err := auth.Authorize(ctx, "contacts", "update", contact.OwnerID); err != nil {
		return nil, err
	}
	if err := s.contactRepo.Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore contact: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionRestore, "contact", contact.ID, contact.FullName(), nil)
	return s.GetByID(ctx, id)
}

// CheckDuplicates lists heuristic duplicate candidates by name/email
func (s *ContactService) CheckDuplicates(ctx context.Context, req *domain.CheckDuplicatesRequest) ([]domain.DuplicateCandidate, error) {
	contacts, err := s.contactRepo.FindDuplicates(ctx, req.Name, req.Email, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicates: %w", err)
	}
	candidates := make([]domain.DuplicateCandidate, 0, len(contacts))
	for _, c := range contacts {
		matched := "name"
		if req.Email != "" && c.Email == req.Email {
			matched = "email"
		}
		candidates = append(candidates, domain.DuplicateCandidate{
			ID: c.ID, Name: c.FullName(), Email: c.Email, MatchedOn: matched,
		})
	}
	return candidates, nil
}

// Merge folds the duplicate contact into the primary one. keep_primary
// discards the duplicate's values; fill_empty copies them into unset
// primary fields. Either way the duplicate's deals, activities,
// company links and tags move onto the primary, a distinct duplicate
// email is kept as the secondary email, and the duplicate is
// soft-deleted.
func (s *ContactService) Merge(ctx context.Context, primaryID uuid.UUID, req *domain.MergeRequest) (*domain.Contact, error) {
	if primaryID == req.DuplicateID {
		return nil, domain.NewInvalidOperation("cannot merge a contact into itself")
	}
	primary, err := s.contactRepo.GetByID(ctx, primaryID)
	if err != nil {
		return nil, notFound(err, "contact")
	}
	duplicate, err := s.contactRepo.GetByID(ctx, req.DuplicateID)
	if err != nil {
		return nil, notFound(err, "contact")
	}
	if err := auth.Authorize(ctx, "contacts", "delete", duplicate.OwnerID); err != nil {
		return nil, err
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.MergeKeepPrimary
	}
	if strategy == domain.MergeFillEmpty {
		fillEmptyContactFields(primary, duplicate)
	}
	if duplicate.Email != "" && duplicate.Email != primary.Email && primary.SecondaryEmail == "" {
		primary.SecondaryEmail = duplicate.Email
	}

	actorID := auth.UserIDFromContext(ctx)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txContacts := s.contactRepo.WithTx(tx)
		if err := txContacts.Update(ctx, primary); err != nil {
			return fmt.Errorf("failed to update merge target: %w", err)
		}
		if err := txContacts.MoveRelated(ctx, duplicate.ID, primary.ID, primary.PrimaryCompanyID != nil); err != nil {
			return fmt.Errorf("failed to move merged contact relations: %w", err)
		}
		if err := s.tagService.WithTx(tx).MoveEntityTags(ctx, domain.TagEntityContact, duplicate.ID, primary.ID); err != nil {
			return fmt.Errorf("failed to move merged contact tags: %w", err)
		}
		if err := txContacts.SoftDelete(ctx, duplicate.ID, actorID); err != nil {
			return fmt.Errorf("failed to retire merged contact: %w", err)
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionMerge, "contact", primary.ID, primary.FullName(),
			map[string]interface{}{"mergedFrom": duplicate.ID, "strategy": string(strategy)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return primary, nil
}

func fillEmptyContactFields(primary, duplicate *domain.Contact) {
	if primary.LastName == "" {
		primary.LastName = duplicate.LastName
	}
	if primary.Email == "" {
		primary.Email = duplicate.Email
	}
	if primary.SecondaryEmail == "" {
		primary.SecondaryEmail = duplicate.SecondaryEmail
	}
	if primary.Phone == "" {
		primary.Phone = duplicate.Phone
	}
	if primary.Mobile == "" {
		primary.Mobile = duplicate.Mobile
	}
	if primary.Title == "" {
		primary.Title = duplicate.Title
	}
	if primary.Department == "" {
		primary.Department = duplicate.Department
	}
	if primary.PrimaryCompanyID == nil {
		primary.PrimaryCompanyID = duplicate.PrimaryCompanyID
	}
	if primary.Address == "" {
		primary.Address = duplicate.Address
	}
	if primary.City == "" {
		primary.City = duplicate.City
	}
	if primary.Country == "" {
		primary.Country = duplicate.Country
	}
	if primary.Description == "" {
		primary.Description = duplicate.Description
	}
	for key, value := range duplicate.EntityData {
		if _, exists := primary.EntityData[key]; !exists {
			if primary.EntityData == nil {
				primary.EntityData = domain.EntityData{}
			}
			primary.EntityData[key] = value
		}
	}
}

// BulkDelete soft-deletes a set of contacts, skipping rows the actor
// may not modify. Returns the number deleted.
func (s *ContactService) BulkDelete(ctx context.Context, req *domain.BulkDeleteRequest) (int, error) {
	actorID := auth.UserIDFromContext(ctx)
	deleted := 0
	for _, id := range req.IDs {
		contact, err := s.contactRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := auth.Authorize(ctx, "contacts", "delete", contact.OwnerID); err != nil {
			continue
		}
		if err := s.contactRepo.SoftDelete(ctx, id, actorID); err != nil {
			return deleted, fmt.Errorf("failed to delete contact: %w", err)
		}
		s.audit.Record(ctx, domain.AuditActionDelete, "contact", contact.ID, contact.FullName(), nil)
		deleted++
	}
	if count, err := s.contactRepo.Count(ctx); err == nil {
		s.quota.SyncUsage(context.Background(), auth.OrgIDFromContext(ctx), "contacts", count)
	}
	return deleted, nil
}

// BulkUpdate applies the same field changes to a set of contacts,
// skipping rows the actor may not modify. Returns the number updated.
func (s *ContactService) BulkUpdate(ctx context.Context, req *domain.BulkUpdateRequest) (int, error) {
	if req.Status != nil && !domain.ContactStatus(*req.Status).IsValid() {
		return 0, domain.NewValidationError(fmt.Sprintf("unknown contact status %q", *req.Status))
	}

	updated := 0
	for _, id := range req.IDs {
		contact, err := s.contactRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := auth.Authorize(ctx, "contacts", "update", contact.OwnerID); err != nil {
			continue
		}

		before := *contact
		if req.OwnerID != nil {
			contact.OwnerID = *req.OwnerID
		}
		if req.Status != nil {
			contact.Status = domain.ContactStatus(*req.Status)
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.contactRepo.WithTx(tx).Update(ctx, contact); err != nil {
				return err
			}
			if req.TagIDs != nil {
				if _, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityContact, contact.ID, *req.TagIDs); err != nil {
					return err
				}
			}
			s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "contact", contact.ID, contact.FullName(),
				BuildDiff(&before, contact))
			return nil
		})
		if err != nil {
			s.logger.Warn("bulk update failed for contact", zap.String("contact_id", id.String()), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// ListByCompany returns contacts currently linked to a company
func (s *ContactService) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Contact, error) {
	if _, err := s.companyRepo.GetByID(ctx, companyID); err != nil {
		return nil, notFound(err, "company")
	}
	return s.contactRepo.ListByCompany(ctx, companyID)
}

// TouchActivity records that something happened on the contact
func (s *ContactService) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time, contacted bool) error {
	return s.contactRepo.TouchActivity(ctx, id, at, contacted)
}
