package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

var leadOrderFields = map[string]string{
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"first_name":       "first_name",
	"last_name":        "last_name",
	"email":            "email",
	"company_name":     "company_name",
	"status":           "status",
	"score":            "score",
	"last_activity_at": "last_activity_at",
}

var leadFilterFields = map[string]FilterField{
	"name":         {Columns: []string{"first_name", "last_name"}, Kind: KindText},
	"email":        {Column: "email", Kind: KindText},
	"phone":        {Column: "phone", Kind: KindText},
	"company_name": {Column: "company_name", Kind: KindText},
	"title":        {Column: "title", Kind: KindText},
	"status":       {Column: "status", Kind: KindEnum},
	"source":       {Column: "source", Kind: KindText},
	"rating":       {Column: "rating", Kind: KindEnum},
	"score":        {Column: "score", Kind: KindNumber},
	"assigned_to":  {Column: "assigned_to", Kind: KindUUID},
	"owner_id":     {Column: "owner_id", Kind: KindUUID},
	"city":         {Column: "city", Kind: KindText},
	"country":      {Column: "country", Kind: KindText},
	"created_at":   {Column: "created_at", Kind: KindDate},
}

// LeadRepository handles database operations for leads
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *LeadRepository) WithTx(tx *gorm.DB) *LeadRepository {
	return &LeadRepository{db: tx}
}

// List returns a filtered, ordered page of leads with the total count
func (r *LeadRepository) List(ctx context.Context, params domain.ListParams) ([]domain.Lead, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Lead{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	query = ApplyFilters(query, params.Filters, params.FilterLogic, leadFilterFields)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leads []domain.Lead
	err := query.
		Order(BuildOrderClause(params.OrderBy, leadOrderFields)).
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&leads).Error
	return leads, total, err
}

// GetByID returns a lead within the request's tenant
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&lead, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// GetDeletedByID returns a soft-deleted lead for restore
func (r *LeadRepository) GetDeletedByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Where("deleted_at IS NOT NULL").
		First(&lead, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// Create inserts a new lead
func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// Update saves an existing lead
func (r *LeadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Save(lead).Error
}

// SoftDelete hides a lead, recording who deleted it
func (r *LeadRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Lead{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC(), "deleted_by": deletedBy}).Error
}

// HardDelete permanently removes a lead
func (r *LeadRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Delete(&domain.Lead{}, "id = ?", id).Error
}

// Restore clears the soft-delete markers
func (r *LeadRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Model(&domain.Lead{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": nil, "deleted_by": nil}).Error
}

// Count returns the tenant's live lead count for quota checks
func (r *LeadRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Lead{}).
		Scopes(TenantScope(ctx)).
		Count(&count).Error
	return count, err
}

// FindByEmail returns the live lead with the given email, if any
func (r *LeadRepository) FindByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (*domain.Lead, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(email) = ?", strings.ToLower(email))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var lead domain.Lead
	err := query.First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// FindDuplicates lists up to limit heuristic candidates matching on
// name or email.
func (r *LeadRepository) FindDuplicates(ctx context.Context, name, email string, limit int) ([]domain.Lead, error) {
	var conds []string
	var args []interface{}
	if name != "" {
		conds = append(conds, "LOWER(first_name || ' ' || last_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(name)+"%")
	}
	if email != "" {
		conds = append(conds, "LOWER(email) = ?")
		args = append(args, strings.ToLower(email))
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var leads []domain.Lead
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where(strings.Join(conds, " OR "), args...).
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

// FindUniqueValue scans for another lead whose entity_data holds the
// same value for a unique custom field. The LIKE prefilter narrows the
// candidate set; exact comparison happens in the caller.
func (r *LeadRepository) FindUniqueValue(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.Lead, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_data LIKE ?", pattern)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var leads []domain.Lead
	err := query.Limit(50).Find(&leads).Error
	return leads, err
}

// Search returns lightweight hits for the global search
func (r *LeadRepository) Search(ctx context.Context, query string, limit int) ([]domain.Lead, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var leads []domain.Lead
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company_name) LIKE ?",
			pattern, pattern, pattern).
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

// TouchActivity bumps last_activity_at, and last_contacted_at when the
// touch was an actual outreach.
func (r *LeadRepository) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time, contacted bool) error {
	updates := map[string]interface{}{"last_activity_at": at}
	if contacted {
		updates["last_contacted_at"] = at
	}
	return r.db.WithContext(ctx).Model(&domain.Lead{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(updates).Error
}
