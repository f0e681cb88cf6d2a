package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

var companyOrderFields = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"name":           "name",
	"industry":       "industry",
	"employee_count": "employee_count",
	"annual_revenue": "annual_revenue",
}

var companyFilterFields = map[string]FilterField{
	"name":           {Column: "name", Kind: KindText},
	"industry":       {Column: "industry", Kind: KindText},
	"size":           {Column: "size", Kind: KindEnum},
	"email":          {Column: "email", Kind: KindText},
	"website":        {Column: "website", Kind: KindText},
	"city":           {Column: "city", Kind: KindText},
	"country":        {Column: "country", Kind: KindText},
	"employee_count": {Column: "employee_count", Kind: KindNumber},
	"annual_revenue": {Column: "annual_revenue", Kind: KindNumber},
	"owner_id":       {Column: "owner_id", Kind: KindUUID},
	"created_at":     {Column: "created_at", Kind: KindDate},
}

// CompanyRepository handles database operations for companies
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *CompanyRepository) WithTx(tx *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: tx}
}

// List returns a filtered, ordered page of companies with the total count
func (r *CompanyRepository) List(ctx context.Context, params domain.ListParams) ([]domain.Company, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Company{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(website) LIKE ?",
			pattern, pattern, pattern)
	}
	query = ApplyFilters(query, params.Filters, params.FilterLogic, companyFilterFields)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []domain.Company
	err := query.
		Order(BuildOrderClause(params.OrderBy, companyOrderFields)).
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&companies).Error
	return companies, total, err
}

// GetByID returns a company within the request's tenant
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&company, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetDeletedByID returns a soft-deleted company for restore
func (r *CompanyRepository) GetDeletedByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Where("deleted_at IS NOT NULL").
		First(&company, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// Create inserts a new company
func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

// Update saves an existing company
func (r *CompanyRepository) Update(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

// SoftDelete hides a company, recording who deleted it
func (r *CompanyRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Company{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC(), "deleted_by": deletedBy}).Error
}

// HardDelete permanently removes a company
func (r *CompanyRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Delete(&domain.Company{}, "id = ?", id).Error
}

// Restore clears the soft-delete markers
func (r *CompanyRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Model(&domain.Company{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": nil, "deleted_by": nil}).Error
}

// Count returns the tenant's live company count for quota checks
func (r *CompanyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Company{}).
		Scopes(TenantScope(ctx)).
		Count(&count).Error
	return count, err
}

// FindByNameCI matches a company by case-insensitive exact name
func (r *CompanyRepository) FindByNameCI(ctx context.Context, name string, excludeID *uuid.UUID) (*domain.Company, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(name) = ?", strings.ToLower(name))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var company domain.Company
	err := query.First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// FindDuplicates lists up to limit heuristic candidates matching on
// name substring or email domain.
func (r *CompanyRepository) FindDuplicates(ctx context.Context, name, email string, limit int) ([]domain.Company, error) {
	var conds []string
	var args []interface{}
	if name != "" {
		conds = append(conds, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(name)+"%")
	}
	if email != "" {
		if at := strings.LastIndex(email, "@"); at >= 0 && at < len(email)-1 {
			conds = append(conds, "LOWER(email) LIKE ?")
			args = append(args, "%@"+strings.ToLower(email[at+1:]))
		}
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var companies []domain.Company
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where(strings.Join(conds, " OR "), args...).
		Limit(limit).
		Find(&companies).Error
	return companies, err
}

// FindUniqueValue scans for other companies whose entity_data may hold
// the same value for a unique custom field.
func (r *CompanyRepository) FindUniqueValue(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.Company, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_data LIKE ?", pattern)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var companies []domain.Company
	err := query.Limit(50).Find(&companies).Error
	return companies, err
}

// Search returns lightweight hits for the global search
func (r *CompanyRepository) Search(ctx context.Context, query string, limit int) ([]domain.Company, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var companies []domain.Company
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(name) LIKE ? OR LOWER(website) LIKE ?", pattern, pattern).
		Limit(limit).
		Find(&companies).Error
	return companies, err
}

// MoveRelated repoints a merged company's contact links, deals,
// activities and primary-company references onto the surviving
// company. Contact links the target already holds are dropped.
func (r *CompanyRepository) MoveRelated(ctx context.Context, fromID, toID uuid.UUID) error {
	var links []domain.ContactCompany
	if err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("company_id = ?", fromID).
		Find(&links).Error; err != nil {
		return err
	}
	for _, link := range links {
		var existing int64
		if err := r.db.WithContext(ctx).Model(&domain.ContactCompany{}).
			Scopes(TenantScope(ctx)).
			Where("contact_id = ? AND company_id = ?", link.ContactID, toID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			if err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
				Delete(&domain.ContactCompany{}, "id = ?", link.ID).Error; err != nil {
				return err
			}
			continue
		}
		if err := r.db.WithContext(ctx).Model(&domain.ContactCompany{}).
			Scopes(TenantScope(ctx)).
			Where("id = ?", link.ID).
			Update("company_id", toID).Error; err != nil {
			return err
		}
	}

	if err := r.db.WithContext(ctx).Model(&domain.Contact{}).
		Scopes(TenantScope(ctx)).
		Where("primary_company_id = ?", fromID).
		Update("primary_company_id", toID).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Where("company_id = ?", fromID).
		Update("company_id", toID).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&domain.Activity{}).
		Scopes(TenantScope(ctx)).
		Where("company_id = ?", fromID).
		Update("company_id", toID).Error
}

// --- contact <-> company links ---

// LinkContact creates or revives a relationship row
func (r *CompanyRepository) LinkContact(ctx context.Context, link *domain.ContactCompany) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// UnlinkContact marks the relationship as no longer current
func (r *CompanyRepository) UnlinkContact(ctx context.Context, contactID, companyID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.ContactCompany{}).
		Scopes(TenantScope(ctx)).
		Where("contact_id = ? AND company_id = ?", contactID, companyID).
		Update("is_current", false).Error
}

// ClearPrimaryLink demotes any existing primary link for a contact
func (r *CompanyRepository) ClearPrimaryLink(ctx context.Context, contactID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.ContactCompany{}).
		Scopes(TenantScope(ctx)).
		Where("contact_id = ? AND is_primary = ?", contactID, true).
		Update("is_primary", false).Error
}

// ListLinks returns a contact's current company relationships
func (r *CompanyRepository) ListLinks(ctx context.Context, contactID uuid.UUID) ([]domain.ContactCompany, error) {
	var links []domain.ContactCompany
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("contact_id = ? AND is_current = ?", contactID, true).
		Find(&links).Error
	return links, err
}
