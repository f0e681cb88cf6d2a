package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

// DealStageHistoryRepository handles the append-only stage transition log
type DealStageHistoryRepository struct {
	db *gorm.DB
}

// NewDealStageHistoryRepository creates a new history repository
func NewDealStageHistoryRepository(db *gorm.DB) *DealStageHistoryRepository {
	return &DealStageHistoryRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *DealStageHistoryRepository) WithTx(tx *gorm.DB) *DealStageHistoryRepository {
	return &DealStageHistoryRepository{db: tx}
}

// Create appends a transition row
func (r *DealStageHistoryRepository) Create(ctx context.Context, entry *domain.DealStageHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByDeal returns a deal's transitions oldest first
func (r *DealStageHistoryRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]domain.DealStageHistory, error) {
	var entries []domain.DealStageHistory
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
