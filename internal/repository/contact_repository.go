package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

var contactOrderFields = map[string]string{
	"created_at":        "created_at",
	"updated_at":        "updated_at",
	"first_name":        "first_name",
	"last_name":         "last_name",
	"email":             "email",
	"status":            "status",
	"last_activity_at":  "last_activity_at",
	"last_contacted_at": "last_contacted_at",
}

var contactFilterFields = map[string]FilterField{
	"name":               {Columns: []string{"first_name", "last_name"}, Kind: KindText},
	"first_name":         {Column: "first_name", Kind: KindText},
	"last_name":          {Column: "last_name", Kind: KindText},
	"email":              {Column: "email", Kind: KindText},
	"phone":              {Column: "phone", Kind: KindText},
	"title":              {Column: "title", Kind: KindText},
	"department":         {Column: "department", Kind: KindText},
	"status":             {Column: "status", Kind: KindEnum},
	"city":               {Column: "city", Kind: KindText},
	"country":            {Column: "country", Kind: KindText},
	"source":             {Column: "source", Kind: KindText},
	"owner_id":           {Column: "owner_id", Kind: KindUUID},
	"primary_company_id": {Column: "primary_company_id", Kind: KindUUID},
	"created_at":         {Column: "created_at", Kind: KindDate},
	"last_activity_at":   {Column: "last_activity_at", Kind: KindDate},
}

// ContactRepository handles database operations for contacts
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ContactRepository) WithTx(tx *gorm.DB) *ContactRepository {
	return &ContactRepository{db: tx}
}

// List returns a filtered, ordered page of contacts with the total count
func (r *ContactRepository) List(ctx context.Context, params domain.ListParams) ([]domain.Contact, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Contact{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	query = ApplyFilters(query, params.Filters, params.FilterLogic, contactFilterFields)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []domain.Contact
	err := query.
		Preload("PrimaryCompany").
		Order(BuildOrderClause(params.OrderBy, contactOrderFields)).
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&contacts).Error
	return contacts, total, err
}

// GetByID returns a contact within the request's tenant
func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("PrimaryCompany").
		First(&contact, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetDeletedByID returns a soft-deleted contact for restore
func (r *ContactRepository) GetDeletedByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Where("deleted_at IS NOT NULL").
		First(&contact, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Create inserts a new contact
func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// Update saves an existing contact
func (r *ContactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

// SoftDelete hides a contact, recording who deleted it
func (r *ContactRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Contact{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC(), "deleted_by": deletedBy}).Error
}

// HardDelete permanently removes a contact
func (r *ContactRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Delete(&domain.Contact{}, "id = ?", id).Error
}

// Restore clears the soft-delete markers
func (r *ContactRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Model(&domain.Contact{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": nil, "deleted_by": nil}).Error
}

// Count returns the tenant's live contact count for quota checks
func (r *ContactRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Contact{}).
		Scopes(TenantScope(ctx)).
		Count(&count).Error
	return count, err
}

// FindByEmail returns the live contact with the given email, if any
func (r *ContactRepository) FindByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (*domain.Contact, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(email) = ?", strings.ToLower(email))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var contact domain.Contact
	err := query.First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// FindDuplicates lists up to limit heuristic candidates matching on
// name or email.
func (r *ContactRepository) FindDuplicates(ctx context.Context, name, email string, limit int) ([]domain.Contact, error) {
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

	var contacts []domain.Contact
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where(strings.Join(conds, " OR "), args...).
		Limit(limit).
		Find(&contacts).Error
	return contacts, err
}

// FindByNameCI matches a contact by case-insensitive name (and email
// when given); used by lead conversion to reuse existing rows.
func (r *ContactRepository) FindByNameCI(ctx context.Context, firstName, lastName, email string) (*domain.Contact, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(first_name) = ? AND LOWER(last_name) = ?",
			strings.ToLower(firstName), strings.ToLower(lastName))
	if email != "" {
		query = query.Where("LOWER(email) = ?", strings.ToLower(email))
	}
	var contact domain.Contact
	err := query.First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// FindUniqueValue scans for other contacts whose entity_data may hold
// the same value for a unique custom field. The LIKE prefilter narrows
// the candidate set; exact comparison happens in the caller.
func (r *ContactRepository) FindUniqueValue(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.Contact, error) {
	query := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("entity_data LIKE ?", pattern)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var contacts []domain.Contact
	err := query.Limit(50).Find(&contacts).Error
	return contacts, err
}

// ListByCompany returns contacts currently linked to a company
func (r *ContactRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := r.db.WithContext(ctx).Scopes(TenantScopeColumn(ctx, "contacts.org_id")).
		Joins("JOIN contact_companies ON contact_companies.contact_id = contacts.id").
		Where("contact_companies.company_id = ? AND contact_companies.is_current = ?", companyID, true).
		Find(&contacts).Error
	return contacts, err
}

// MoveRelated repoints a merged contact's deals, activities and
// company links onto the surviving contact. Links the target already
// holds are dropped instead of duplicated, and an incoming primary
// link is demoted when the target already has a primary company.
func (r *ContactRepository) MoveRelated(ctx context.Context, fromID, toID uuid.UUID, targetHasPrimary bool) error {
	if err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Scopes(TenantScope(ctx)).
		Where("contact_id = ?", fromID).
		Update("contact_id", toID).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&domain.Activity{}).
		Scopes(TenantScope(ctx)).
		Where("contact_id = ?", fromID).
		Update("contact_id", toID).Error; err != nil {
		return err
	}

	var links []domain.ContactCompany
	if err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("contact_id = ?", fromID).
		Find(&links).Error; err != nil {
		return err
	}
	for _, link := range links {
		var existing int64
		if err := r.db.WithContext(ctx).Model(&domain.ContactCompany{}).
			Scopes(TenantScope(ctx)).
			Where("contact_id = ? AND company_id = ?", toID, link.CompanyID).
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
		updates := map[string]interface{}{"contact_id": toID}
		if link.IsPrimary && targetHasPrimary {
			updates["is_primary"] = false
		}
		if err := r.db.WithContext(ctx).Model(&domain.ContactCompany{}).
			Scopes(TenantScope(ctx)).
			Where("id = ?", link.ID).
			Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

// Search returns lightweight hits for the global search
func (r *ContactRepository) Search(ctx context.Context, query string, limit int) ([]domain.Contact, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var contacts []domain.Contact
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern).
		Limit(limit).
		Find(&contacts).Error
	return contacts, err
}

// TouchActivity bumps last_activity_at, and last_contacted_at when the
// touch was an actual outreach.
func (r *ContactRepository) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time, contacted bool) error {
	updates := map[string]interface{}{"last_activity_at": at}
	if contacted {
		updates["last_contacted_at"] = at
	}
	return r.db.WithContext(ctx).Model(&domain.Contact{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(updates).Error
}
