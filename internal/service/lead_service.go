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

// LeadService implements the lead lifecycle: hybrid column/document
// CRUD, qualification, disqualification and the atomic conversion into
// contact, company and deal.
type LeadService struct {
	db           *gorm.DB
	leadRepo     *repository.LeadRepository
	contactRepo  *repository.ContactRepository
	companyRepo  *repository.CompanyRepository
	dealRepo     *repository.DealRepository
	historyRepo  *repository.DealStageHistoryRepository
	pipelineRepo *repository.PipelineRepository
	tagService   *TagService
	formService  *FormService
	quota        *quota.Client
	events       events.Publisher
	audit        *AuditLogService
	logger       *zap.Logger
}

func NewLeadService(
	db *gorm.DB,
	leadRepo *repository.LeadRepository,
	contactRepo *repository.ContactRepository,
	companyRepo *repository.CompanyRepository,
	dealRepo *repository.DealRepository,
	historyRepo *repository.DealStageHistoryRepository,
	pipelineRepo *repository.PipelineRepository,
	tagService *TagService,
	formService *FormService,
	quotaClient *quota.Client,
	publisher events.Publisher,
	audit *AuditLogService,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		db:           db,
		leadRepo:     leadRepo,
		contactRepo:  contactRepo,
		companyRepo:  companyRepo,
		dealRepo:     dealRepo,
		historyRepo:  historyRepo,
		pipelineRepo: pipelineRepo,
		tagService:   tagService,
		formService:  formService,
		quota:        quotaClient,
		events:       publisher,
		audit:        audit,
		logger:       logger,
	}
}

func (s *LeadService) List(ctx context.Context, params domain.ListParams) (*domain.PaginatedResponse, error) {
	leads, total, err := s.leadRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	ids := make([]uuid.UUID, len(leads))
	index := make(map[uuid.UUID]*domain.Lead, len(leads))
	for i := range leads {
		ids[i] = leads[i].ID
		index[leads[i].ID] = &leads[i]
		ProjectLeadSystemFields(&leads[i])
	}
	if err := s.tagService.DecorateTags(ctx, domain.TagEntityLead, ids, func(id uuid.UUID, tags []domain.Tag) {
		index[id].Tags = tags
	}); err != nil {
		s.logger.Warn("failed to decorate lead tags", zap.Error(err))
	}

	resp := domain.NewPaginatedResponse(leads, params, total)
	return &resp, nil
}

func (s *LeadService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "lead")
	}
	ProjectLeadSystemFields(lead)
	tags, err := s.tagService.ListForEntity(ctx, string(domain.TagEntityLead), id)
	if err == nil {
		lead.Tags = tags
	}
	return lead, nil
}

func (s *LeadService) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	if req.Email != "" {
		if existing, err := s.leadRepo.FindByEmail(ctx, req.Email, nil); err == nil && existing != nil {
			return nil, domain.NewDuplicateEntity("lead", "email", req.Email)
		} else if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to check lead email: %w", err)
		}
	}

	current, err := s.leadRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	orgID := auth.OrgIDFromContext(ctx)
	check := s.quota.Check(ctx, orgID, "leads", 1, current)
	if !check.Allowed {
		return nil, domain.NewLimitExceeded("leads", check.Limit, current)
	}

	actorID := auth.UserIDFromContext(ctx)
	ownerID := actorID
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}
	status := domain.LeadStatus(req.Status)
	if status == "" {
		status = domain.LeadStatusNew
	}

	lead := &domain.Lead{
		TenantModel:  domain.TenantModel{OrgID: orgID, OwnerID: ownerID},
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		CompanyName:  req.CompanyName,
		Title:        req.Title,
		Website:      req.Website,
		Address:      req.Address,
		City:         req.City,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
		Status:       status,
		Source:       req.Source,
		SourceDetail: req.SourceDetail,
		Rating:       req.Rating,
		Score:        req.Score,
		AssignedTo:   req.AssignedTo,
		EntityData:   req.EntityData.Clone(),
	}

	// Route system keys that arrived inside the document, then validate
	// what remains against the tenant schema.
	LiftLeadSystemFields(lead)
	if err := s.formService.ValidateEntityData(ctx, domain.TagEntityLead, lead.EntityData, nil); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.leadRepo.WithTx(tx).Create(ctx, lead); err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
		if len(req.TagIDs) > 0 {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityLead, lead.ID, req.TagIDs)
			if err != nil {
				return err
			}
			lead.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionCreate, "lead", lead.ID, lead.FullName(), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.quota.SyncUsage(context.Background(), orgID, "leads", current+1)
	s.events.Publish(context.Background(), events.Event{
		Type: "lead.created", OrgID: orgID, ActorID: actorID,
		EntityType: "lead", EntityID: lead.ID,
	})

	ProjectLeadSystemFields(lead)
	return lead, nil
}

func (s *LeadService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateLeadRequest) (*domain.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "lead")
	}
	if err := auth.Authorize(ctx, "leads", "update", lead.OwnerID); err != nil {
		return nil, err
	}
	if lead.Status == domain.LeadStatusConverted {
		return nil, domain.NewInvalidOperation("converted leads are read-only")
	}

	if req.Email != nil && *req.Email != "" && *req.Email != lead.Email {
		if existing, err := s.leadRepo.FindByEmail(ctx, *req.Email, &id); err == nil && existing != nil {
			return nil, domain.NewDuplicateEntity("lead", "email", *req.Email)
		} else if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to check lead email: %w", err)
		}
	}

	before := *lead
	applyLeadUpdate(lead, req)
	LiftLeadSystemFields(lead)
	if req.EntityData != nil {
		if err := s.formService.ValidateEntityData(ctx, domain.TagEntityLead, lead.EntityData, &id); err != nil {
			return nil, err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.leadRepo.WithTx(tx).Update(ctx, lead); err != nil {
			return fmt.Errorf("failed to update lead: %w", err)
		}
		if req.TagIDs != nil {
			tags, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityLead, lead.ID, *req.TagIDs)
			if err != nil {
				return err
			}
			lead.Tags = tags
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "lead", lead.ID, lead.FullName(),
			BuildDiff(&before, lead))
		return nil
	})
	if err != nil {
		return nil, err
	}

	ProjectLeadSystemFields(lead)
	return lead, nil
}

func applyLeadUpdate(lead *domain.Lead, req *domain.UpdateLeadRequest) {
	if req.FirstName != nil {
		lead.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		lead.LastName = *req.LastName
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.CompanyName != nil {
		lead.CompanyName = *req.CompanyName
	}
	if req.Title != nil {
		lead.Title = *req.Title
	}
	if req.Website != nil {
		lead.Website = *req.Website
	}
	if req.Address != nil {
		lead.Address = *req.Address
	}
	if req.City != nil {
		lead.City = *req.City
	}
	if req.PostalCode != nil {
		lead.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		lead.Country = *req.Country
	}
	if req.Status != nil {
		lead.Status = domain.LeadStatus(*req.Status)
	}
	if req.Source != nil {
		lead.Source = *req.Source
	}
	if req.SourceDetail != nil {
		lead.SourceDetail = *req.SourceDetail
	}
	if req.Rating != nil {
		lead.Rating = *req.Rating
	}
	if req.Score != nil {
		lead.Score = *req.Score
	}
	if req.AssignedTo != nil {
		lead.AssignedTo = req.AssignedTo
	}
	if req.OwnerID != nil {
		lead.OwnerID = *req.OwnerID
	}
	if req.EntityData != nil {
		lead.EntityData = req.EntityData.Clone()
	}
}

func (s *LeadService) Delete(ctx context.Context, id uuid.UUID) error {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "lead")
	}
	if err := auth.Authorize(ctx, "leads", "delete", lead.OwnerID); err != nil {
		return err
	}

	actorID := auth.UserIDFromContext(ctx)
	if err := s.leadRepo.SoftDelete(ctx, id, actorID); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionDelete, "lead", lead.ID, lead.FullName(), nil)

	if count, err := s.leadRepo.Count(ctx); err == nil {
		s.quota.SyncUsage(context.Background(), lead.OrgID, "leads", count)
	}
	return nil
}

func (s *LeadService) Restore(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, err := s.leadRepo.GetDeletedByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "lead")
	}
	if err := auth.Authorize(ctx, "leads", "update", lead.OwnerID); err != nil {
		return nil, err
	}
	if err := s.leadRepo.Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore lead: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionRestore, "lead", lead.ID, lead.FullName(), nil)
	return s.GetByID(ctx, id)
}

// BulkUpdate applies the same field changes to a set of leads,
// skipping rows the actor may not modify. Conversion is its own
// operation, so setting the converted status here is rejected.
func (s *LeadService) BulkUpdate(ctx context.Context, req *domain.BulkUpdateRequest) (int, error) {
	if req.Status != nil {
		status := domain.LeadStatus(*req.Status)
		if !status.IsValid() {
			return 0, domain.NewValidationError(fmt.Sprintf("unknown lead status %q", *req.Status))
		}
		if status == domain.LeadStatusConverted {
			return 0, domain.NewInvalidOperation("leads are converted through the convert operation")
		}
	}

	updated := 0
	for _, id := range req.IDs {
		lead, err := s.leadRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := auth.Authorize(ctx, "leads", "update", lead.OwnerID); err != nil {
			continue
		}
		if lead.Status == domain.LeadStatusConverted {
			continue
		}

		before := *lead
		if req.OwnerID != nil {
			lead.OwnerID = *req.OwnerID
		}
		if req.Status != nil {
			lead.Status = domain.LeadStatus(*req.Status)
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.leadRepo.WithTx(tx).Update(ctx, lead); err != nil {
				return err
			}
			if req.TagIDs != nil {
				if _, err := s.tagService.WithTx(tx).ReplaceEntityTags(ctx, domain.TagEntityLead, lead.ID, *req.TagIDs); err != nil {
					return err
				}
			}
			s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "lead", lead.ID, lead.FullName(),
				BuildDiff(&before, lead))
			return nil
		})
		if err != nil {
			s.logger.Warn("bulk update failed for lead", zap.String("lead_id", id.String()), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// Disqualify marks a lead unqualified with a reason. Converted leads
// cannot be disqualified.
func (s *LeadService) Disqualify(ctx context.Context, id uuid.UUID, req *domain.DisqualifyLeadRequest) (*domain.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "lead")
	}
	if err := auth.Authorize(ctx, "leads", "update", lead.OwnerID); err != nil {
		return nil, err
	}
	if lead.Status == domain.LeadStatusConverted {
		return nil, domain.NewInvalidOperation("lead is already converted")
	}

	now := time.Now().UTC()
	lead.Status = domain.LeadStatusUnqualified
	lead.DisqualifiedReason = req.Reason
	lead.DisqualifiedAt = &now

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to disqualify lead: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionUpdate, "lead", lead.ID, lead.FullName(),
		map[string]interface{}{"status": map[string]interface{}{"to": "unqualified"}, "reason": req.Reason})

	ProjectLeadSystemFields(lead)
	return lead, nil
}

// Convert turns a lead into the records the request asks for: a
// contact, a company, a deal, in any combination, in one transaction.
// Existing rows are reused instead of duplicated: a contact matching
// on name+email or a company matching on case-insensitive name is
// linked, and the result reports which records were created versus
// reused. Converted and unqualified leads reject.
func (s *LeadService) Convert(ctx context.Context, id uuid.UUID, req *domain.ConvertLeadRequest) (*domain.ConversionResult, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "lead")
	}
	if err := auth.Authorize(ctx, "leads", "update", lead.OwnerID); err != nil {
		return nil, err
	}
	if lead.Status == domain.LeadStatusConverted {
		return nil, domain.NewInvalidOperation("lead is already converted")
	}
	if lead.Status == domain.LeadStatusUnqualified {
		return nil, domain.NewInvalidOperation("unqualified leads cannot be converted")
	}

	orgID := auth.OrgIDFromContext(ctx)
	actorID := auth.UserIDFromContext(ctx)
	ownerOr := func(override *uuid.UUID) uuid.UUID {
		if override != nil {
			return *override
		}
		return actorID
	}

	companyName := req.CompanyName
	if companyName == "" {
		companyName = lead.CompanyName
	}
	makeCompany := req.CreateCompany && companyName != ""

	// Resolve reuse targets before opening the transaction.
	var existingContact *domain.Contact
	if req.CreateContact {
		existingContact, err = s.contactRepo.FindByNameCI(ctx, lead.FirstName, lead.LastName, lead.Email)
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to match contact: %w", err)
		}
	}
	var existingCompany *domain.Company
	if makeCompany {
		existingCompany, err = s.companyRepo.FindByNameCI(ctx, companyName, nil)
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to match company: %w", err)
		}
	}

	// Quota covers everything the conversion will actually insert.
	if req.CreateContact && existingContact == nil {
		current, err := s.contactRepo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count contacts: %w", err)
		}
		if check := s.quota.Check(ctx, orgID, "contacts", 1, current); !check.Allowed {
			return nil, domain.NewLimitExceeded("contacts", check.Limit, current)
		}
	}
	if makeCompany && existingCompany == nil {
		current, err := s.companyRepo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count companies: %w", err)
		}
		if check := s.quota.Check(ctx, orgID, "companies", 1, current); !check.Allowed {
			return nil, domain.NewLimitExceeded("companies", check.Limit, current)
		}
	}
	var pipeline *domain.Pipeline
	var stage *domain.PipelineStage
	if req.CreateDeal {
		current, err := s.dealRepo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count deals: %w", err)
		}
		if check := s.quota.Check(ctx, orgID, "deals", 1, current); !check.Allowed {
			return nil, domain.NewLimitExceeded("deals", check.Limit, current)
		}
		pipeline, stage, err = s.resolveDealTarget(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	result := &domain.ConversionResult{LeadID: lead.ID}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txContacts := s.contactRepo.WithTx(tx)
		txCompanies := s.companyRepo.WithTx(tx)
		txLeads := s.leadRepo.WithTx(tx)

		var companyID *uuid.UUID
		if makeCompany {
			company := existingCompany
			if company == nil {
				company = &domain.Company{
					TenantModel: domain.TenantModel{OrgID: orgID, OwnerID: ownerOr(req.CompanyOwnerID)},
					Name:        companyName,
					Website:     lead.Website,
					Address:     lead.Address,
					City:        lead.City,
					PostalCode:  lead.PostalCode,
					Country:     lead.Country,
				}
				if err := txCompanies.Create(ctx, company); err != nil {
					return fmt.Errorf("failed to create company: %w", err)
				}
			}
			companyID = &company.ID
			result.Company = &domain.ConvertedRef{ID: company.ID, Name: company.Name, Created: existingCompany == nil}
		}

		var contactID *uuid.UUID
		if req.CreateContact {
			contact := existingContact
			if contact == nil {
				contact = &domain.Contact{
					TenantModel:         domain.TenantModel{OrgID: orgID, OwnerID: ownerOr(req.ContactOwnerID)},
					FirstName:           lead.FirstName,
					LastName:            lead.LastName,
					Email:               lead.Email,
					Phone:               lead.Phone,
					Title:               lead.Title,
					Address:             lead.Address,
					City:                lead.City,
					PostalCode:          lead.PostalCode,
					Country:             lead.Country,
					Source:              lead.Source,
					SourceDetail:        lead.SourceDetail,
					PrimaryCompanyID:    companyID,
					ConvertedFromLeadID: &lead.ID,
					EntityData:          lead.EntityData.Clone(),
				}
				if err := txContacts.Create(ctx, contact); err != nil {
					return fmt.Errorf("failed to create contact: %w", err)
				}
				if companyID != nil {
					link := &domain.ContactCompany{
						OrgID:     orgID,
						ContactID: contact.ID,
						CompanyID: *companyID,
						Title:     lead.Title,
						IsPrimary: true,
						IsCurrent: true,
					}
					if err := txCompanies.LinkContact(ctx, link); err != nil {
						return fmt.Errorf("failed to link contact: %w", err)
					}
				}
			}
			contactID = &contact.ID
			result.Contact = &domain.ConvertedRef{ID: contact.ID, Name: contact.FullName(), Created: existingContact == nil}
		}

		if req.CreateDeal {
			dealName := req.DealName
			if dealName == "" {
				dealName = lead.FullName()
				if companyName != "" {
					dealName = companyName
				}
			}
			deal := &domain.Deal{
				TenantModel:         domain.TenantModel{OrgID: orgID, OwnerID: ownerOr(req.DealOwnerID)},
				Name:                dealName,
				PipelineID:          pipeline.ID,
				StageID:             stage.ID,
				Value:               req.DealValue,
				Currency:            pipeline.Currency,
				StageEnteredAt:      now,
				Status:              statusForStage(stage),
				ContactID:           contactID,
				CompanyID:           companyID,
				ConvertedFromLeadID: &lead.ID,
			}
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
				return fmt.Errorf("failed to record stage history: %w", err)
			}
			result.Deal = &domain.ConvertedDealRef{ID: deal.ID, Name: deal.Name, Value: deal.Value}
		}

		lead.Status = domain.LeadStatusConverted
		lead.ConvertedAt = &now
		lead.ConvertedBy = &actorID
		if result.Contact != nil {
			lead.ConvertedContactID = &result.Contact.ID
		}
		if result.Company != nil {
			lead.ConvertedCompanyID = &result.Company.ID
		}
		if result.Deal != nil {
			lead.ConvertedDealID = &result.Deal.ID
		}
		if err := txLeads.Update(ctx, lead); err != nil {
			return fmt.Errorf("failed to finalize lead: %w", err)
		}

		changes := map[string]interface{}{}
		if result.Contact != nil {
			changes["contactId"] = result.Contact.ID
		}
		if result.Company != nil {
			changes["companyId"] = result.Company.ID
		}
		if result.Deal != nil {
			changes["dealId"] = result.Deal.ID
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionConvert, "lead", lead.ID, lead.FullName(), changes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Contact != nil && result.Contact.Created {
		if count, err := s.contactRepo.Count(ctx); err == nil {
			s.quota.SyncUsage(context.Background(), orgID, "contacts", count)
		}
	}
	if result.Company != nil && result.Company.Created {
		if count, err := s.companyRepo.Count(ctx); err == nil {
			s.quota.SyncUsage(context.Background(), orgID, "companies", count)
		}
	}
	if result.Deal != nil {
		if count, err := s.dealRepo.Count(ctx); err == nil {
			s.quota.SyncUsage(context.Background(), orgID, "deals", count)
		}
	}
	payload := map[string]interface{}{}
	if result.Contact != nil {
		payload["contactId"] = result.Contact.ID.String()
	}
	if result.Deal != nil {
		payload["dealId"] = result.Deal.ID.String()
	}
	s.events.Publish(context.Background(), events.Event{
		Type: "lead.converted", OrgID: orgID, ActorID: actorID,
		EntityType: "lead", EntityID: lead.ID,
		Payload: payload,
	})
	return result, nil
}

// resolveDealTarget picks the pipeline and entry stage for a conversion
// deal: explicit ids when given, otherwise the default pipeline's first
// stage.
func (s *LeadService) resolveDealTarget(ctx context.Context, req *domain.ConvertLeadRequest) (*domain.Pipeline, *domain.PipelineStage, error) {
	var pipeline *domain.Pipeline
	var err error
	if req.PipelineID != nil {
		pipeline, err = s.pipelineRepo.GetByID(ctx, *req.PipelineID)
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

	if req.StageID != nil {
		for i := range pipeline.Stages {
			if pipeline.Stages[i].ID == *req.StageID {
				return pipeline, &pipeline.Stages[i], nil
			}
		}
		return nil, nil, domain.NewInvalidOperation("stage does not belong to the pipeline")
	}
	return pipeline, &pipeline.Stages[0], nil
}

// statusForStage mirrors the stage flags into the deal status
func statusForStage(stage *domain.PipelineStage) domain.DealStatus {
	switch {
	case stage.IsWon:
		return domain.DealStatusWon
	case stage.IsLost:
		return domain.DealStatusLost
	default:
		return domain.DealStatusOpen
	}
}

// TouchActivity records that something happened on the lead
func (s *LeadService) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time, contacted bool) error {
	return s.leadRepo.TouchActivity(ctx, id, at, contacted)
}
