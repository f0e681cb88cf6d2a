package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditLogService records and queries the per-tenant audit trail.
// Recording never fails the mutation it describes.
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{auditRepo: auditRepo, logger: logger}
}

// WithTx returns a service writing through the given transaction, so
// the audit entry commits or rolls back with the mutation it describes.
func (s *AuditLogService) WithTx(tx *gorm.DB) *AuditLogService {
	return &AuditLogService{auditRepo: s.auditRepo.WithTx(tx), logger: s.logger}
}

// Record appends an audit entry for the acting user. Failures are
// logged and swallowed.
func (s *AuditLogService) Record(ctx context.Context, action domain.AuditAction, entityType string, entityID uuid.UUID, entityName string, changes map[string]interface{}) {
	tc, ok := auth.FromContext(ctx)
	if !ok {
		return
	}

	entry := &domain.CRMAuditLog{
		OrgID:      tc.OrgID,
		ActorID:    tc.UserID,
		ActorName:  tc.DisplayName,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		EntityName: entityName,
		IPAddress:  tc.RequestIP,
		UserAgent:  tc.RequestUserAgent,
	}
	if len(changes) > 0 {
		if raw, err := json.Marshal(changes); err == nil {
			entry.Changes = string(raw)
		}
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", string(action)),
			zap.String("entityType", entityType),
			zap.String("entityId", entityID.String()),
			zap.Error(err))
	}
}

// List returns a filtered page of the tenant's audit trail
func (s *AuditLogService) List(ctx context.Context, params domain.ListParams) (*domain.PaginatedResponse, error) {
	entries, total, err := s.auditRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	resp := domain.NewPaginatedResponse(entries, params, total)
	return &resp, nil
}

// ListByEntity returns one entity's audit trail, newest first
func (s *AuditLogService) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]domain.CRMAuditLog, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.auditRepo.ListByEntity(ctx, entityType, entityID, limit)
}

// BuildDiff compares two snapshots of the same entity and returns the
// changed fields as {field: {from, to}} pairs. Snapshots are compared
// through their JSON projections so only exported API fields count.
func BuildDiff(before, after interface{}) map[string]interface{} {
	var prev, next map[string]interface{}
	if raw, err := json.Marshal(before); err == nil {
		_ = json.Unmarshal(raw, &prev)
	}
	if raw, err := json.Marshal(after); err == nil {
		_ = json.Unmarshal(raw, &next)
	}

	diff := make(map[string]interface{})
	for key, nextVal := range next {
		if key == "updatedAt" || key == "createdAt" {
			continue
		}
		prevVal, existed := prev[key]
		if !existed || !reflect.DeepEqual(prevVal, nextVal) {
			diff[key] = map[string]interface{}{"from": prevVal, "to": nextVal}
		}
	}
	for key, prevVal := range prev {
		if key == "updatedAt" || key == "createdAt" {
			continue
		}
		if _, still := next[key]; !still {
			diff[key] = map[string]interface{}{"from": prevVal, "to": nil}
		}
	}
	return diff
}
