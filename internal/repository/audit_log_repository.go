package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

var auditLogFilterFields = map[string]FilterField{
	"action":      {Column: "action", Kind: KindEnum},
	"entity_type": {Column: "entity_type", Kind: KindEnum},
	"entity_id":   {Column: "entity_id", Kind: KindUUID},
	"actor_id":    {Column: "actor_id", Kind: KindUUID},
	"created_at":  {Column: "created_at", Kind: KindDate},
}

// AuditLogRepository handles the append-only audit trail
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *AuditLogRepository) WithTx(tx *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: tx}
}

// Create appends an audit entry
func (r *AuditLogRepository) Create(ctx context.Context, entry *domain.CRMAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns a filtered page of audit entries, newest first
func (r *AuditLogRepository) List(ctx context.Context, params domain.ListParams) ([]domain.CRMAuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.CRMAuditLog{}).Scopes(TenantScope(ctx))
	query = ApplyFilters(query, params.Filters, params.FilterLogic, auditLogFilterFields)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []domain.CRMAuditLog
	err := query.
		Order("created_at DESC").
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&entries).Error
	return entries, total, err
}

// ListByEntity returns one entity's audit trail, newest first
func (r *AuditLogRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]domain.CRMAuditLog, error) {
	var entries []domain.CRMAuditLog
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
