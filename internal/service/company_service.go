package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompanyService implements the company lifecycle: CRUD with soft
// delete, case-insensitive name uniqueness, merge and contact links.
type CompanyService struct {
	db          *gorm.DB
	companyRepo *repository.CompanyRepository
	contactRepo *repository.ContactRepository
	tagService  *TagService
	formService *FormService
	quota       *quota.Client
	events      events.Publisher
	audit       *AuditLogService
	logger      *zap.Logger
}

func NewCompanyService(
	db *gorm.DB,
	companyRepo *repository.CompanyRepository,
	contactRepo *repository.ContactRepository,
	tagService *TagService,
	formService *FormService,
	quotaClient *quota.Client,
	publisher events.Publisher,
	audit *AuditLogService,
	logger *zap.Logger,
) *CompanyService {
	return &CompanyService{
		db:          db,
		companyRepo: companyRepo,
		contactRepo: contactRepo,
		tagService:  tagService,
		formService: formService,
		quota:       quotaClient,
		events:      publisher,
		audit:       audit,
		logger:      logger,
	}
}

func (s *CompanyService) List(ctx context.Context, params domain.ListParams) (*domain.PaginatedResponse, error) {
	companies, total, err := s.companyRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	ids := make([]uuid.UUID, len(companies))
	index := make(map[uuid.UUID]*domain.Company, len(companies))
	for i := range companies {
		ids[i] = companies[i].ID
		index[companies[i].ID] = &companies[i]
	}
	if err := s.tagService.DecorateTags(ctx, domain.TagEntityCompany, ids, func(id uuid.UUID, tags []domain.Tag) {
		index[id].Tags = tags
	}); err != nil {
		s.logger.Warn("failed to decorate company tags", zap.Error(err))
	}

	resp := domain.NewPaginatedResponse(companies, params, total)
	return &resp, nil
}

func (s *CompanyService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "company")
	}
	tags, err := s.tagService.ListForEntity(ctx, string(domain.TagEntityCompany), id)
	if err == nil {
		company.Tags = tags
	}
	return company, nil
}

func (s *CompanyService) Create(ctx context.Context, req *domain.CreateCompanyRequest) (*domain.Company, error) {
	if err := s.formService.ValidateEntityData(ctx, domain.TagEntityCompany, req.EntityData, nil); err != nil {
		return nil, err
	}

	if existing, err := s.companyRepo.FindByNameCI(ctx, req.Name, nil); err == nil && existing != nil {
		return nil, domain.NewDuplicateEntity("company", "name", req.Name)
	} else if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to check company name: %w", err)
	}

	current, err := s.companyRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	orgID := auth.OrgIDFromContext(ctx)
	check := s.quota.Check(ctx, orgID, "companies", 1, current)
	if !check.Allowed {
		return nil, domain.NewLimitExceeded("companies", check.Limit, current)
	}

	actorID := auth.UserIDFromContext(ctx)
	ownerID := actorID
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}

	company := &domain.Company{
		TenantModel:   domain.TenantModel{OrgID: orgID, OwnerID: ownerID},
		Name:          req.Name,
		Industry:      req.Industry,
		Size:          domain.CompanySize(req.Size),
		Email:         req.Email,
		Phone:         req.Phone,
		Website:       req.Website,
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		EmployeeCount: req.EmployeeCount,
		AnnualRevenue: req.AnnualRevenue,
		LinkedInURL:   req.LinkedInURL,
		TwitterURL:    req.TwitterURL,
		Description:   req.Description,
		EntityData:    req.EntityData,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.companyRepo.WithTx(tx).Create(ctx, company); err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		if len(req.TagIDs) > 0 {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityCompany, company.ID, req.TagIDs)
			if err != nil {
				return err
			}
			company.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionCreate, "company", company.ID, company.Name, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.quota.SyncUsage(context.Background(), orgID, "companies", current+1)
	s.events.Publish(context.Background(), events.Event{
		Type: "company.created", OrgID: orgID, ActorID: actorID,
		EntityType: "company", EntityID: company.ID,
	})
	return company, nil
}

func (s *CompanyService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCompanyRequest) (*domain.Company, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "company")
	}
	if err := auth.Authorize(ctx, "companies", "update", company.OwnerID); err != nil {
		return nil, err
	}

	if req.EntityData != nil {
		if err := s.formService.ValidateEntityData(ctx, domain.TagEntityCompany, req.EntityData, &id); err != nil {
			return nil, err
		}
	}
	if req.Name != nil && *req.Name != company.Name {
		if existing, err := s.companyRepo.FindByNameCI(ctx, *req.Name, &id); err == nil && existing != nil {
			return nil, domain.NewDuplicateEntity("company", "name", *req.Name)
		} else if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to check company name: %w", err)
		}
	}

	before := *company
	applyCompanyUpdate(company, req)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.companyRepo.WithTx(tx).Update(ctx, company); err != nil {
			return fmt.Errorf("failed to update company: %w", err)
		}
		if req.TagIDs != nil {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityCompany, company.ID, *req.TagIDs)
			if err != nil {
				return err
			}
			company.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "company", company.ID, company.Name,
			BuildDiff(&before, company))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(context.Background(), events.Event{
		Type: "company.updated", OrgID: company.OrgID, ActorID: auth.UserIDFromContext(ctx),
		EntityType: "company", EntityID: company.ID,
	})
	return company, nil
}

func applyCompanyUpdate(company *domain.Company, req *domain.UpdateCompanyRequest) {
	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.Industry != nil {
		company.Industry = *req.Industry
	}
	if req.Size != nil {
		company.Size = domain.CompanySize(*req.Size)
	}
	if req.Email != nil {
		company.Email = *req.Email
	}
	if req.Phone != nil {
		company.Phone = *req.Phone
	}
	if req.Website != nil {
		company.Website = *req.Website
	}
	if req.Address != nil {
		company.Address = *req.Address
	}
	if req.City != nil {
		company.City = *req.City
	}
	if req.PostalCode != nil {
		company.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		company.Country = *req.Country
	}
	if req.EmployeeCount != nil {
		company.EmployeeCount = req.EmployeeCount
	}
	if req.AnnualRevenue != nil {
		company.AnnualRevenue = req.AnnualRevenue
	}
	if req.LinkedInURL != nil {
		company.LinkedInURL = *req.LinkedInURL
	}
	if req.TwitterURL != nil {
		company.TwitterURL = *req.TwitterURL
	}
	if req.Description != nil {
		company.Description = *req.Description
	}
	if req.OwnerID != nil {
		company.OwnerID = *req.OwnerID
	}
	if req.EntityData != nil {
		company.EntityData = req.EntityData
	}
}

func (s *CompanyService) Delete(ctx context.Context, id uuid.UUID) error {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "company")
	}
	if err := auth.Authorize(ctx, "companies", "delete", company.OwnerID); err != nil {
		return err
	}

	actorID := auth.UserIDFromContext(ctx)
	if err := s.companyRepo.SoftDelete(ctx, id, actorID); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionDelete, "company", company.ID, company.Name, nil)

	if count, err := s.companyRepo.Count(ctx); err == nil {
		s.quota.SyncUsage(context.Background(), company.OrgID, "companies", count)
	}
	s.events.Publish(context.Background(), events.Event{
		Type: "company.deleted", OrgID: company.OrgID, ActorID: actorID,
		EntityType: "company", EntityID: company.ID,
	})
	return nil
}

func (s *CompanyService) Restore(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	company, err := s.companyRepo.GetDeletedByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "company")
	}
	if err := auth.Authorize(ctx, "companies", "update", company.OwnerID); err != nil {
		return nil, err
	}
	if err := s.companyRepo.Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore company: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionRestore, "company", company.ID, company.Name, nil)
	return s.GetByID(ctx, id)
}

// CheckDuplicates lists heuristic duplicate candidates by name
// substring or email domain.
func (s *CompanyService) CheckDuplicates(ctx context.Context, req *domain.CheckDuplicatesRequest) ([]domain.DuplicateCandidate, error) {
	companies, err := s.companyRepo.FindDuplicates(ctx, req.Name, req.Email, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicates: %w", err)
	}
	candidates := make([]domain.DuplicateCandidate, 0, len(companies))
	for _, c := range companies {
		matched := "name"
		if req.Email != "" && c.Email != "" && c.Name == "" {
			matched = "email"
		}
		candidates = append(candidates, domain.DuplicateCandidate{
			ID: c.ID, Name: c.Name, Email: c.Email, MatchedOn: matched,
		})
	}
	return candidates, nil
}

// Merge folds the duplicate company into the primary one. The
// duplicate's contact links, deals, activities, primary-company
// references and tags all move onto the primary before it is
// soft-deleted.
func (s *CompanyService) Merge(ctx context.Context, primaryID uuid.UUID, req *domain.MergeRequest) (*domain.Company, error) {
	if primaryID == req.DuplicateID {
		return nil, domain.NewInvalidOperation("cannot merge a company into itself")
	}
	primary, err := s.companyRepo.GetByID(ctx, primaryID)
	if err != nil {
		return nil, notFound(err, "company")
	}
	duplicate, err := s.companyRepo.GetByID(ctx, req.DuplicateID)
	if err != nil {
		return nil, notFound(err, "company")
	}
	if err := auth.Authorize(ctx, "companies", "delete", duplicate.OwnerID); err != nil {
		return nil, err
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.MergeKeepPrimary
	}
	if strategy == domain.MergeFillEmpty {
		fillEmptyCompanyFields(primary, duplicate)
	}

	actorID := auth.UserIDFromContext(ctx)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCompanies := s.companyRepo.WithTx(tx)
		if err := txCompanies.Update(ctx, primary); err != nil {
			return fmt.Errorf("failed to update merge target: %w", err)
		}
		if err := txCompanies.MoveRelated(ctx, duplicate.ID, primary.ID); err != nil {
			return fmt.Errorf("failed to move merged company relations: %w", err)
		}
		if err := s.tagService.WithTx(tx).MoveEntityTags(ctx, domain.TagEntityCompany, duplicate.ID, primary.ID); err != nil {
			return fmt.Errorf("failed to move merged company tags: %w", err)
		}
		if err := txCompanies.SoftDelete(ctx, duplicate.ID, actorID); err != nil {
			return fmt.Errorf("failed to retire merged company: %w", err)
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionMerge, "company", primary.ID, primary.Name,
			map[string]interface{}{"mergedFrom": duplicate.ID, "strategy": string(strategy)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return primary, nil
}

func fillEmptyCompanyFields(primary, duplicate *domain.Company) {
	if primary.Industry == "" {
		primary.Industry = duplicate.Industry
	}
	if primary.Size == "" {
		primary.Size = duplicate.Size
	}
	if primary.Email == "" {
		primary.Email = duplicate.Email
	}
	if primary.Phone == "" {
		primary.Phone = duplicate.Phone
	}
	if primary.Website == "" {
		primary.Website = duplicate.Website
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
	if primary.EmployeeCount == nil {
		primary.EmployeeCount = duplicate.EmployeeCount
	}
	if primary.AnnualRevenue == nil {
		primary.AnnualRevenue = duplicate.AnnualRevenue
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

// BulkDelete soft-deletes a set of companies, skipping rows the actor
// may not modify.
func (s *CompanyService) BulkDelete(ctx context.Context, req *domain.BulkDeleteRequest) (int, error) {
	actorID := auth.UserIDFromContext(ctx)
	deleted := 0
	for _, id := range req.IDs {
		company, err := s.companyRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := auth.Authorize(ctx, "companies", "delete", company.OwnerID); err != nil {
			continue
		}
		if err := s.companyRepo.SoftDelete(ctx, id, actorID); err != nil {
			return deleted, fmt.Errorf("failed to delete company: %w", err)
		}
		s.audit.Record(ctx, domain.AuditActionDelete, "company", company.ID, company.Name, nil)
		deleted++
	}
	if count, err := s.companyRepo.Count(ctx); err == nil {
		s.quota.SyncUsage(context.Background(), auth.OrgIDFromContext(ctx), "companies", count)
	}
	return deleted, nil
}

// BulkUpdate applies the same field changes to a set of companies,
// skipping rows the actor may not modify. Companies carry no status
// column, so a status change is rejected.
func (s *CompanyService) BulkUpdate(ctx context.Context, req *domain.BulkUpdateRequest) (int, error) {
	if req.Status != nil {
		return 0, domain.NewValidationError("companies have no status field")
	}

	updated := 0
	for _, id := range req.IDs {
		company, err := s.companyRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := auth.Authorize(ctx, "companies", "update", company.OwnerID); err != nil {
			continue
		}

		before := *company
		if req.OwnerID != nil {
			company.OwnerID = *req.OwnerID
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.companyRepo.WithTx(tx).Update(ctx, company); err != nil {
				return err
			}
			if req.TagIDs != nil {
				if _, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityCompany, company.ID, *req.TagIDs); err != nil {
					return err
				}
			}
			s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "company", company.ID, company.Name,
				BuildDiff(&before, company))
			return nil
		})
		if err != nil {
			s.logger.Warn("bulk update failed for company", zap.String("company_id", id.String()), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// LinkContact attaches a contact to a company; optionally primary
func (s *CompanyService) LinkContact(ctx context.Context, companyID, contactID uuid.UUID, title string, isPrimary bool) error {
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return notFound(err, "company")
	}
	contact, err := s.contactRepo.GetByID(ctx, contactID)
	if err != nil {
		return notFound(err, "contact")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		txCompanies := s.companyRepo.WithTx(tx)
		if isPrimary {
			if err := txCompanies.ClearPrimaryLink(ctx, contactID); err != nil {
				return fmt.Errorf("failed to clear primary link: %w", err)
			}
			if err := tx.Model(&domain.Contact{}).
				Where("org_id = ? AND id = ?", contact.OrgID, contactID).
				Update("primary_company_id", companyID).Error; err != nil {
				return fmt.Errorf("failed to set primary company: %w", err)
			}
		}
		link := &domain.ContactCompany{
			OrgID:     company.OrgID,
			ContactID: contactID,
			CompanyID: companyID,
			Title:     title,
			IsPrimary: isPrimary,
			IsCurrent: true,
		}
		if err := txCompanies.LinkContact(ctx, link); err != nil {
			return fmt.Errorf("failed to link contact: %w", err)
		}
		return nil
	})
}

// UnlinkContact marks the relationship as past
func (s *CompanyService) UnlinkContact(ctx context.Context, companyID, contactID uuid.UUID) error {
	if _, err := s.companyRepo.GetByID(ctx, companyID); err != nil {
		return notFound(err, "company")
	}
	return s.companyRepo.UnlinkContact(ctx, contactID, companyID)
}
