package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/cache"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityService manages tasks, calls, emails, meetings and notes.
// Calls, emails and meetings bump last-contact markers on the linked
// records, and the per-user workload stats are briefly cached.
type ActivityService struct {
	db           *gorm.DB
	activityRepo *repository.ActivityRepository
	contactRepo  *repository.ContactRepository
	companyRepo  *repository.CompanyRepository
	dealRepo     *repository.DealRepository
	leadRepo     *repository.LeadRepository
	cache        *cache.Cache
	cacheCfg     *config.CacheConfig
	events       events.Publisher
	audit        *AuditLogService
	logger       *zap.Logger
}

func NewActivityService(
	db *gorm.DB,
	activityRepo *repository.ActivityRepository,
	contactRepo *repository.ContactRepository,
	companyRepo *repository.CompanyRepository,
	dealRepo *repository.DealRepository,
	leadRepo *repository.LeadRepository,
	cacheClient *cache.Cache,
	cacheCfg *config.CacheConfig,
	publisher events.Publisher,
	audit *AuditLogService,
	logger *zap.Logger,
) *ActivityService {
	return &ActivityService{
		db:           db,
		activityRepo: activityRepo,
		contactRepo:  contactRepo,
		companyRepo:  companyRepo,
		dealRepo:     dealRepo,
		leadRepo:     leadRepo,
		cache:        cacheClient,
		cacheCfg:     cacheCfg,
		events:       publisher,
		audit:        audit,
		logger:       logger,
	}
}

func (s *ActivityService) List(ctx context.Context, params domain.ListParams) (*domain.PaginatedResponse, error) {
	activities, total, err := s.activityRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	resp := domain.NewPaginatedResponse(activities, params, total)
	return &resp, nil
}

func (s *ActivityService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "activity")
	}
	return activity, nil
}

// Create records an activity against any subset of the linked records.
// Linked ids are verified so a timeline never references a foreign
// tenant's rows.
func (s *ActivityService) Create(ctx context.Context, req *domain.CreateActivityRequest) (*domain.Activity, error) {
	activityType := domain.ActivityType(req.Type)
	if !activityType.IsValid() {
		return nil, domain.NewValidationError("unknown activity type")
	}
	status := domain.ActivityStatus(req.Status)
	if status == "" {
		status = domain.ActivityStatusPending
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError("unknown activity status")
	}
	if err := s.verifyLinks(ctx, req.ContactID, req.CompanyID, req.DealID, req.LeadID); err != nil {
		return nil, err
	}

	orgID := auth.OrgIDFromContext(ctx)
	actorID := auth.UserIDFromContext(ctx)
	assignedTo := actorID
	if req.AssignedTo != nil {
		assignedTo = *req.AssignedTo
	}
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	activity := &domain.Activity{
		TenantModel:     domain.TenantModel{OrgID: orgID, OwnerID: actorID},
		Type:            activityType,
		Subject:         req.Subject,
		Description:     req.Description,
		Status:          status,
		Priority:        priority,
		DueDate:         req.DueDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		CallDirection:   req.CallDirection,
		CallOutcome:     req.CallOutcome,
		EmailDirection:  req.EmailDirection,
		EmailMessageID:  req.EmailMessageID,
		ContactID:       req.ContactID,
		CompanyID:       req.CompanyID,
		DealID:          req.DealID,
		LeadID:          req.LeadID,
		AssignedTo:      assignedTo,
		ReminderAt:      req.ReminderAt,
	}
	if status == domain.ActivityStatusCompleted {
		now := time.Now().UTC()
		activity.CompletedAt = &now
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.activityRepo.WithTx(tx).Create(ctx, activity); err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionCreate, "activity", activity.ID, activity.Subject, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.touchLinked(ctx, activity)
	s.invalidateStats(ctx, orgID, assignedTo)
	s.events.Publish(context.Background(), events.Event{
		Type: "activity.created", OrgID: orgID, ActorID: actorID,
		EntityType: "activity", EntityID: activity.ID,
		Payload: map[string]interface{}{"activityType": string(activity.Type)},
	})
	return activity, nil
}

func (s *ActivityService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateActivityRequest) (*domain.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "activity")
	}
	if err := auth.Authorize(ctx, "activities", "update", activity.OwnerID); err != nil {
		return nil, err
	}

	before := *activity
	previousAssignee := activity.AssignedTo
	applyActivityUpdate(activity, req)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.activityRepo.WithTx(tx).Update(ctx, activity); err != nil {
			return fmt.Errorf("failed to update activity: %w", err)
		}
		s.audit.WithTx(tx).Record(ctx, domain.AuditActionUpdate, "activity", activity.ID, activity.Subject, BuildDiff(before, *activity))
		return nil
	})
	if err != nil {
		return nil, err
	}

	orgID := auth.OrgIDFromContext(ctx)
	s.invalidateStats(ctx, orgID, activity.AssignedTo)
	if previousAssignee != activity.AssignedTo {
		s.invalidateStats(ctx, orgID, previousAssignee)
	}
	return activity, nil
}

// Complete marks the activity done and bumps the last-contact markers
// on the linked records.
func (s *ActivityService) Complete(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "activity")
	}
	if err := auth.Authorize(ctx, "activities", "update", activity.OwnerID); err != nil {
		return nil, err
	}
	if activity.Status == domain.ActivityStatusCompleted {
		return activity, nil
	}

	now := time.Now().UTC()
	activity.Status = domain.ActivityStatusCompleted
	activity.CompletedAt = &now

	if err := s.activityRepo.Update(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to complete activity: %w", err)
	}

	s.touchLinked(ctx, activity)
	orgID := auth.OrgIDFromContext(ctx)
	s.invalidateStats(ctx, orgID, activity.AssignedTo)
	s.events.Publish(context.Background(), events.Event{
		Type: "activity.completed", OrgID: orgID, ActorID: auth.UserIDFromContext(ctx),
		EntityType: "activity", EntityID: activity.ID,
	})
	return activity, nil
}

func (s *ActivityService) Delete(ctx context.Context, id uuid.UUID) error {
	activity, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "activity")
	}
	if err := auth.Authorize(ctx, "activities", "delete", activity.OwnerID); err != nil {
		return err
	}

	actorID := auth.UserIDFromContext(ctx)
	if err := s.activityRepo.SoftDelete(ctx, id, actorID); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	s.audit.Record(ctx, domain.AuditActionDelete, "activity", activity.ID, activity.Subject, nil)
	s.invalidateStats(ctx, auth.OrgIDFromContext(ctx), activity.AssignedTo)
	return nil
}

// GetStats returns the caller's workload summary, cached for a short
// interval since dashboards poll it.
func (s *ActivityService) GetStats(ctx context.Context, userID uuid.UUID) (*domain.ActivityStats, error) {
	orgID := auth.OrgIDFromContext(ctx)
	key := cache.ActivityStatsKey(orgID, userID)

	var stats domain.ActivityStats
	if s.cache.GetJSON(ctx, key, &stats) {
		return &stats, nil
	}

	fresh, err := s.activityRepo.Stats(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to compute activity stats: %w", err)
	}
	s.cache.SetJSON(ctx, key, fresh, s.cacheCfg.ActivityStatsTTLDuration())
	return fresh, nil
}

// GetOverdue lists the caller's overdue open activities
func (s *ActivityService) GetOverdue(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.activityRepo.ListOverdue(ctx, userID, time.Now().UTC(), limit)
}

// GetUpcoming lists the caller's open activities due in the next days
func (s *ActivityService) GetUpcoming(ctx context.Context, userID uuid.UUID, days, limit int) ([]domain.Activity, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	now := time.Now().UTC()
	return s.activityRepo.ListUpcoming(ctx, userID, now, now.AddDate(0, 0, days), limit)
}

// GetTimeline returns an entity's activities newest first
func (s *ActivityService) GetTimeline(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) (*domain.PaginatedResponse, error) {
	column, ok := timelineColumns[entityType]
	if !ok {
		return nil, domain.NewValidationError("unknown entity type")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	activities, total, err := s.activityRepo.ListForEntity(ctx, column, entityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	entries := make([]domain.TimelineEntry, len(activities))
	for i := range activities {
		entries[i] = domain.TimelineEntry{
			Activity:  activities[i],
			EntityRef: fmt.Sprintf("%s:%s", entityType, entityID),
		}
	}
	params := domain.ListParams{Page: offset/limit + 1, PageSize: limit}
	resp := domain.NewPaginatedResponse(entries, params, total)
	return &resp, nil
}

var timelineColumns = map[string]string{
	"contact": "contact_id",
	"company": "company_id",
	"deal":    "deal_id",
	"lead":    "lead_id",
}

// touchLinked bumps last-activity markers on the linked records, and
// last-contact markers when the activity is an outreach type. Failures
// are logged, never surfaced; the activity itself is already
// committed.
func (s *ActivityService) touchLinked(ctx context.Context, activity *domain.Activity) {
	now := time.Now().UTC()
	contacted := activity.IsContactTouch()

	if activity.ContactID != nil {
		if err := s.contactRepo.TouchActivity(ctx, *activity.ContactID, now, contacted); err != nil {
			s.logger.Warn("failed to touch contact", zap.Error(err))
		}
	}
	if activity.LeadID != nil {
		if err := s.leadRepo.TouchActivity(ctx, *activity.LeadID, now, contacted); err != nil {
			s.logger.Warn("failed to touch lead", zap.Error(err))
		}
	}
	if activity.DealID != nil {
		if err := s.dealRepo.TouchActivity(ctx, *activity.DealID, now); err != nil {
			s.logger.Warn("failed to touch deal", zap.Error(err))
		}
	}
}

func (s *ActivityService) verifyLinks(ctx context.Context, contactID, companyID, dealID, leadID *uuid.UUID) error {
	if contactID != nil {
		if _, err := s.contactRepo.GetByID(ctx, *contactID); err != nil {
			return notFound(err, "contact")
		}
	}
	if companyID != nil {
		if _, err := s.companyRepo.GetByID(ctx, *companyID); err != nil {
			return notFound(err, "company")
		}
	}
	if dealID != nil {
		if _, err := s.dealRepo.GetByID(ctx, *dealID); err != nil {
			return notFound(err, "deal")
		}
	}
	if leadID != nil {
		if _, err := s.leadRepo.GetByID(ctx, *leadID); err != nil {
			return notFound(err, "lead")
		}
	}
	return nil
}

func (s *ActivityService) invalidateStats(ctx context.Context, orgID, userID uuid.UUID) {
	s.cache.Delete(ctx, cache.ActivityStatsKey(orgID, userID))
}

func applyActivityUpdate(activity *domain.Activity, req *domain.UpdateActivityRequest) {
	if req.Subject != nil {
		activity.Subject = *req.Subject
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Status != nil {
		status := domain.ActivityStatus(*req.Status)
		if status.IsValid() {
			activity.Status = status
			if status == domain.ActivityStatusCompleted && activity.CompletedAt == nil {
				now := time.Now().UTC()
				activity.CompletedAt = &now
			}
			if status != domain.ActivityStatusCompleted {
				activity.CompletedAt = nil
			}
		}
	}
	if req.Priority != nil {
		activity.Priority = *req.Priority
	}
	if req.DueDate != nil {
		activity.DueDate = req.DueDate
	}
	if req.StartTime != nil {
		activity.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		activity.EndTime = req.EndTime
	}
	if req.DurationMinutes != nil {
		activity.DurationMinutes = req.DurationMinutes
	}
	if req.CallOutcome != nil {
		activity.CallOutcome = *req.CallOutcome
	}
	if req.AssignedTo != nil {
		activity.AssignedTo = *req.AssignedTo
	}
	if req.ReminderAt != nil {
		activity.ReminderAt = req.ReminderAt
		activity.ReminderSent = false
	}
}
