package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantModel holds the fields shared by every tenant-scoped entity.
// OrgID is immutable after creation; OwnerID defaults to the creator.
type TenantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID     uuid.UUID `gorm:"type:uuid;not null;index;column:org_id" json:"orgId"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;column:owner_id" json:"ownerId"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (m *TenantModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SoftDelete marks an entity as soft-deletable. The default read filter
// excludes deleted rows; Restore clears both fields.
type SoftDelete struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy *uuid.UUID     `gorm:"type:uuid;column:deleted_by" json:"-"`
}

// UserRoleType represents a role carried in the identity assertion
type UserRoleType string

const (
	RoleSuperAdmin UserRoleType = "super_admin"
	RoleOrgAdmin   UserRoleType = "org_admin"
	RoleOwner      UserRoleType = "owner"
	RoleAdmin      UserRoleType = "admin"
	RoleManager    UserRoleType = "manager"
	RoleMember     UserRoleType = "member"
	RoleViewer     UserRoleType = "viewer"
)

// AdminRoles bypass row-level ownership checks on writes
var AdminRoles = []UserRoleType{RoleSuperAdmin, RoleOrgAdmin, RoleOwner, RoleAdmin, RoleManager}

// CompanySize represents the size bucket of a company
type CompanySize string

const (
	CompanySizeMicro      CompanySize = "1-10"
	CompanySizeSmall      CompanySize = "11-50"
	CompanySizeMedium     CompanySize = "51-200"
	CompanySizeLarge      CompanySize = "201-1000"
	CompanySizeEnterprise CompanySize = "1000+"
)

// Company represents a commercial account in the CRM
type Company struct {
	TenantModel
	SoftDelete
	Name          string      `gorm:"type:varchar(200);not null;index" json:"name"`
	Industry      string      `gorm:"type:varchar(100);index" json:"industry,omitempty"`
	Size          CompanySize `gorm:"type:varchar(20)" json:"size,omitempty"`
	Email         string      `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone         string      `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Website       string      `gorm:"type:varchar(500)" json:"website,omitempty"`
	Address       string      `gorm:"type:varchar(500)" json:"address,omitempty"`
	City          string      `gorm:"type:varchar(100)" json:"city,omitempty"`
	PostalCode    string      `gorm:"type:varchar(20);column:postal_code" json:"postalCode,omitempty"`
	Country       string      `gorm:"type:varchar(100)" json:"country,omitempty"`
	EmployeeCount *int        `gorm:"column:employee_count" json:"employeeCount,omitempty"`
	AnnualRevenue *float64    `gorm:"type:decimal(15,2);column:annual_revenue" json:"annualRevenue,omitempty"`
	LinkedInURL   string      `gorm:"type:varchar(500);column:linkedin_url" json:"linkedInUrl,omitempty"`
	TwitterURL    string      `gorm:"type:varchar(500);column:twitter_url" json:"twitterUrl,omitempty"`
	Description   string      `gorm:"type:text" json:"description,omitempty"`
	EntityData    EntityData  `gorm:"type:jsonb;column:entity_data" json:"entityData,omitempty"`
	Tags          []Tag       `gorm:"-" json:"tags,omitempty"`
}

// ContactStatus represents the lifecycle status of a contact
type ContactStatus string

const (
	ContactStatusActive       ContactStatus = "active"
	ContactStatusInactive     ContactStatus = "inactive"
	ContactStatusBounced      ContactStatus = "bounced"
	ContactStatusUnsubscribed ContactStatus = "unsubscribed"
)

// IsValid checks if the ContactStatus is a valid enum value
func (s ContactStatus) IsValid() bool {
	switch s {
	case ContactStatusActive, ContactStatusInactive, ContactStatusBounced, ContactStatusUnsubscribed:
		return true
	}
	return false
}

// Contact represents an individual person
type Contact struct {
	TenantModel
	SoftDelete
	FirstName           string        `gorm:"type:varchar(100);not null;column:first_name" json:"firstName"`
	LastName            string        `gorm:"type:varchar(100);column:last_name" json:"lastName,omitempty"`
	Email               string        `gorm:"type:varchar(255);index" json:"email,omitempty"`
	SecondaryEmail      string        `gorm:"type:varchar(255);column:secondary_email" json:"secondaryEmail,omitempty"`
	Phone               string        `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Mobile              string        `gorm:"type:varchar(50)" json:"mobile,omitempty"`
	Title               string        `gorm:"type:varchar(100)" json:"title,omitempty"`
	Department          string        `gorm:"type:varchar(100)" json:"department,omitempty"`
	Status              ContactStatus `gorm:"type:varchar(50);not null;default:'active';index" json:"status"`
	PrimaryCompanyID    *uuid.UUID    `gorm:"type:uuid;column:primary_company_id" json:"primaryCompanyId,omitempty"`
	PrimaryCompany      *Company      `gorm:"foreignKey:PrimaryCompanyID" json:"primaryCompany,omitempty"`
	Address             string        `gorm:"type:varchar(500)" json:"address,omitempty"`
	City                string        `gorm:"type:varchar(100)" json:"city,omitempty"`
	PostalCode          string        `gorm:"type:varchar(20);column:postal_code" json:"postalCode,omitempty"`
	Country             string        `gorm:"type:varchar(100)" json:"country,omitempty"`
	LinkedInURL         string        `gorm:"type:varchar(500);column:linkedin_url" json:"linkedInUrl,omitempty"`
	TwitterURL          string        `gorm:"type:varchar(500);column:twitter_url" json:"twitterUrl,omitempty"`
	Source              string        `gorm:"type:varchar(100)" json:"source,omitempty"`
	SourceDetail        string        `gorm:"type:varchar(255);column:source_detail" json:"sourceDetail,omitempty"`
	Description         string        `gorm:"type:text" json:"description,omitempty"`
	LastActivityAt      *time.Time    `gorm:"column:last_activity_at" json:"lastActivityAt,omitempty"`
	LastContactedAt     *time.Time    `gorm:"column:last_contacted_at" json:"lastContactedAt,omitempty"`
	ConvertedFromLeadID *uuid.UUID    `gorm:"type:uuid;column:converted_from_lead_id" json:"convertedFromLeadId,omitempty"`
	EntityData          EntityData    `gorm:"type:jsonb;column:entity_data" json:"entityData,omitempty"`
	Tags                []Tag         `gorm:"-" json:"tags,omitempty"`
}

// FullName returns the contact's full name
func (c *Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ContactCompany links a contact to a company with relationship
// attributes. At most one row per contact has IsPrimary=true.
type ContactCompany struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID      uuid.UUID `gorm:"type:uuid;not null;index;column:org_id" json:"orgId"`
	ContactID  uuid.UUID `gorm:"type:uuid;not null;index;column:contact_id" json:"contactId"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index;column:company_id" json:"companyId"`
	Title      string    `gorm:"type:varchar(100)" json:"title,omitempty"`
	Department string    `gorm:"type:varchar(100)" json:"department,omitempty"`
	IsPrimary  bool      `gorm:"not null;default:false;column:is_primary" json:"isPrimary"`
	IsCurrent  bool      `gorm:"not null;default:true;column:is_current" json:"isCurrent"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
}

// TableName overrides the default pluralization
func (ContactCompany) TableName() string {
	return "contact_companies"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (cc *ContactCompany) BeforeCreate(tx *gorm.DB) error {
	if cc.ID == uuid.Nil {
		cc.ID = uuid.New()
	}
	return nil
}

// LeadStatus represents the lifecycle status of a lead
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusUnqualified LeadStatus = "unqualified"
	LeadStatusConverted   LeadStatus = "converted"
)

// IsValid checks if the LeadStatus is a valid enum value
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusUnqualified, LeadStatusConverted:
		return true
	}
	return false
}

// Lead represents an unconverted prospect. Fixed columns cover the
// indexable system fields; everything else lives in EntityData.
type Lead struct {
	TenantModel
	SoftDelete
	FirstName          string     `gorm:"type:varchar(100);not null;column:first_name" json:"firstName"`
	LastName           string     `gorm:"type:varchar(100);column:last_name" json:"lastName,omitempty"`
	Email              string     `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Phone              string     `gorm:"type:varchar(50)" json:"phone,omitempty"`
	CompanyName        string     `gorm:"type:varchar(200);column:company_name" json:"companyName,omitempty"`
	Title              string     `gorm:"type:varchar(100)" json:"title,omitempty"`
	Website            string     `gorm:"type:varchar(500)" json:"website,omitempty"`
	Address            string     `gorm:"type:varchar(500)" json:"address,omitempty"`
	City               string     `gorm:"type:varchar(100)" json:"city,omitempty"`
	PostalCode         string     `gorm:"type:varchar(20);column:postal_code" json:"postalCode,omitempty"`
	Country            string     `gorm:"type:varchar(100)" json:"country,omitempty"`
	Status             LeadStatus `gorm:"type:varchar(50);not null;default:'new';index" json:"status"`
	Source             string     `gorm:"type:varchar(100);index" json:"source,omitempty"`
	SourceDetail       string     `gorm:"type:varchar(255);column:source_detail" json:"sourceDetail,omitempty"`
	Rating             string     `gorm:"type:varchar(50)" json:"rating,omitempty"`
	Score              int        `gorm:"not null;default:0" json:"score"`
	AssignedTo         *uuid.UUID `gorm:"type:uuid;column:assigned_to" json:"assignedTo,omitempty"`
	EntityData         EntityData `gorm:"type:jsonb;column:entity_data" json:"entityData,omitempty"`
	LastActivityAt     *time.Time `gorm:"column:last_activity_at" json:"lastActivityAt,omitempty"`
	LastContactedAt    *time.Time `gorm:"column:last_contacted_at" json:"lastContactedAt,omitempty"`
	ConvertedAt        *time.Time `gorm:"column:converted_at" json:"convertedAt,omitempty"`
	ConvertedBy        *uuid.UUID `gorm:"type:uuid;column:converted_by" json:"convertedBy,omitempty"`
	ConvertedContactID *uuid.UUID `gorm:"type:uuid;column:converted_contact_id" json:"convertedContactId,omitempty"`
	ConvertedCompanyID *uuid.UUID `gorm:"type:uuid;column:converted_company_id" json:"convertedCompanyId,omitempty"`
	ConvertedDealID    *uuid.UUID `gorm:"type:uuid;column:converted_deal_id" json:"convertedDealId,omitempty"`
	DisqualifiedReason string     `gorm:"type:varchar(500);column:disqualified_reason" json:"disqualifiedReason,omitempty"`
	DisqualifiedAt     *time.Time `gorm:"column:disqualified_at" json:"disqualifiedAt,omitempty"`
	Tags               []Tag      `gorm:"-" json:"tags,omitempty"`
}

// FullName returns the lead's full name
func (l *Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// Pipeline represents a named ordered sequence of deal stages.
// At most one pipeline per tenant is the default.
type Pipeline struct {
	TenantModel
	Name        string          `gorm:"type:varchar(200);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	IsDefault   bool            `gorm:"not null;default:false;column:is_default" json:"isDefault"`
	IsActive    bool            `gorm:"not null;default:true;column:is_active" json:"isActive"`
	Stages      []PipelineStage `gorm:"foreignKey:PipelineID;constraint:OnDelete:CASCADE" json:"stages,omitempty"`
}

// PipelineStage is an ordered step within a pipeline. At most one stage
// per pipeline is flagged won and at most one lost; never both on the
// same stage.
type PipelineStage struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID        uuid.UUID `gorm:"type:uuid;not null;index;column:org_id" json:"orgId"`
	PipelineID   uuid.UUID `gorm:"type:uuid;not null;index;column:pipeline_id" json:"pipelineId"`
	Name         string    `gorm:"type:varchar(200);not null" json:"name"`
	DisplayOrder int       `gorm:"not null;default:0;column:display_order" json:"displayOrder"`
	Probability  int       `gorm:"not null;default:0" json:"probability"`
	IsWon        bool      `gorm:"not null;default:false;column:is_won" json:"isWon"`
	IsLost       bool      `gorm:"not null;default:false;column:is_lost" json:"isLost"`
	RottingDays  *int      `gorm:"column:rotting_days" json:"rottingDays,omitempty"`
	Color        string    `gorm:"type:varchar(20)" json:"color,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (s *PipelineStage) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the stage closes a deal
func (s *PipelineStage) IsTerminal() bool {
	return s.IsWon || s.IsLost
}

// DealStatus represents the state of a deal in the stage machine
type DealStatus string

const (
	DealStatusOpen DealStatus = "open"
	DealStatusWon  DealStatus = "won"
	DealStatusLost DealStatus = "lost"
)

// Deal represents a sales opportunity in a pipeline.
// Status mirrors the current stage: open for regular stages, won for the
// is_won stage, lost for the is_lost stage.
type Deal struct {
	TenantModel
	SoftDelete
	Name                string         `gorm:"type:varchar(200);not null;index" json:"name"`
	PipelineID          uuid.UUID      `gorm:"type:uuid;not null;index;column:pipeline_id" json:"pipelineId"`
	Pipeline            *Pipeline      `gorm:"foreignKey:PipelineID" json:"pipeline,omitempty"`
	StageID             uuid.UUID      `gorm:"type:uuid;not null;index;column:stage_id" json:"stageId"`
	Stage               *PipelineStage `gorm:"foreignKey:StageID" json:"stage,omitempty"`
	Value               float64        `gorm:"type:decimal(15,2);not null;default:0" json:"value"`
	Currency            string         `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Probability         *int           `json:"probability,omitempty"` // override; nil derives from stage
	ExpectedCloseDate   *time.Time     `gorm:"column:expected_close_date" json:"expectedCloseDate,omitempty"`
	ActualCloseDate     *time.Time     `gorm:"column:actual_close_date" json:"actualCloseDate,omitempty"`
	StageEnteredAt      time.Time      `gorm:"not null;column:stage_entered_at" json:"stageEnteredAt"`
	Status              DealStatus     `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	ContactID           *uuid.UUID     `gorm:"type:uuid;index;column:contact_id" json:"contactId,omitempty"`
	Contact             *Contact       `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	CompanyID           *uuid.UUID     `gorm:"type:uuid;index;column:company_id" json:"companyId,omitempty"`
	Company             *Company       `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	LossReason          string         `gorm:"type:varchar(500);column:loss_reason" json:"lossReason,omitempty"`
	LossNotes           string         `gorm:"type:text;column:loss_notes" json:"lossNotes,omitempty"`
	Description         string         `gorm:"type:text" json:"description,omitempty"`
	LastActivityAt      *time.Time     `gorm:"column:last_activity_at" json:"lastActivityAt,omitempty"`
	ConvertedFromLeadID *uuid.UUID     `gorm:"type:uuid;column:converted_from_lead_id" json:"convertedFromLeadId,omitempty"`
	EntityData          EntityData     `gorm:"type:jsonb;column:entity_data" json:"entityData,omitempty"`
	Tags                []Tag          `gorm:"-" json:"tags,omitempty"`
}

// EffectiveProbability returns the deal's override probability, or the
// stage probability when no override is set.
func (d *Deal) EffectiveProbability(stage *PipelineStage) int {
	if d.Probability != nil {
		return *d.Probability
	}
	if stage != nil {
		return stage.Probability
	}
	return 0
}

// DealStageHistory is an immutable record of a single stage transition.
// TimeInStageSeconds is the time spent in FromStage at the moment of the
// transition.
type DealStageHistory struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID              uuid.UUID  `gorm:"type:uuid;not null;index;column:org_id" json:"orgId"`
	DealID             uuid.UUID  `gorm:"type:uuid;not null;index;column:deal_id" json:"dealId"`
	FromStageID        *uuid.UUID `gorm:"type:uuid;column:from_stage_id" json:"fromStageId,omitempty"`
	ToStageID          uuid.UUID  `gorm:"type:uuid;not null;column:to_stage_id" json:"toStageId"`
	ChangedBy          uuid.UUID  `gorm:"type:uuid;not null;column:changed_by" json:"changedBy"`
	TimeInStageSeconds int64      `gorm:"not null;default:0;column:time_in_stage_seconds" json:"timeInStageSeconds"`
	CreatedAt          time.Time  `gorm:"not null;index" json:"createdAt"`
}

// TableName overrides the default table name
func (DealStageHistory) TableName() string {
	return "deal_stage_history"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (h *DealStageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// ActivityType represents the type of activity
type ActivityType string

const (
	ActivityTypeTask    ActivityType = "task"
	ActivityTypeCall    ActivityType = "call"
	ActivityTypeEmail   ActivityType = "email"
	ActivityTypeMeeting ActivityType = "meeting"
	ActivityTypeNote    ActivityType = "note"
)

// IsValid checks if the ActivityType is a valid enum value
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityTypeTask, ActivityTypeCall, ActivityTypeEmail, ActivityTypeMeeting, ActivityTypeNote:
		return true
	}
	return false
}

// ActivityStatus represents the status of an activity
type ActivityStatus string

const (
	ActivityStatusPending    ActivityStatus = "pending"
	ActivityStatusInProgress ActivityStatus = "in_progress"
	ActivityStatusCompleted  ActivityStatus = "completed"
	ActivityStatusCancelled  ActivityStatus = "cancelled"
)

// IsValid checks if the ActivityStatus is a valid enum value
func (s ActivityStatus) IsValid() bool {
	switch s {
	case ActivityStatusPending, ActivityStatusInProgress, ActivityStatusCompleted, ActivityStatusCancelled:
		return true
	}
	return false
}

// Activity represents a task, call, email, meeting or note linked to any
// subset of contact/company/deal/lead.
type Activity struct {
	TenantModel
	SoftDelete
	Type            ActivityType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Subject         string         `gorm:"type:varchar(200);not null" json:"subject"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	Status          ActivityStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority        string         `gorm:"type:varchar(20);default:'normal'" json:"priority,omitempty"`
	DueDate         *time.Time     `gorm:"column:due_date;index" json:"dueDate,omitempty"`
	StartTime       *time.Time     `gorm:"column:start_time" json:"startTime,omitempty"`
	EndTime         *time.Time     `gorm:"column:end_time" json:"endTime,omitempty"`
	DurationMinutes *int           `gorm:"column:duration_minutes" json:"durationMinutes,omitempty"`
	CallDirection   string         `gorm:"type:varchar(20);column:call_direction" json:"callDirection,omitempty"`
	CallOutcome     string         `gorm:"type:varchar(100);column:call_outcome" json:"callOutcome,omitempty"`
	EmailDirection  string         `gorm:"type:varchar(20);column:email_direction" json:"emailDirection,omitempty"`
	EmailMessageID  string         `gorm:"type:varchar(255);column:email_message_id" json:"emailMessageId,omitempty"`
	ContactID       *uuid.UUID     `gorm:"type:uuid;index;column:contact_id" json:"contactId,omitempty"`
	CompanyID       *uuid.UUID     `gorm:"type:uuid;index;column:company_id" json:"companyId,omitempty"`
	DealID          *uuid.UUID     `gorm:"type:uuid;index;column:deal_id" json:"dealId,omitempty"`
	LeadID          *uuid.UUID     `gorm:"type:uuid;index;column:lead_id" json:"leadId,omitempty"`
	AssignedTo      uuid.UUID      `gorm:"type:uuid;not null;column:assigned_to;index" json:"assignedTo"`
	ReminderAt      *time.Time     `gorm:"column:reminder_at;index" json:"reminderAt,omitempty"`
	ReminderSent    bool           `gorm:"not null;default:false;column:reminder_sent" json:"reminderSent"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completedAt,omitempty"`
}

// IsContactTouch reports whether completing the activity counts as
// contacting the linked person (calls, emails, meetings).
func (a *Activity) IsContactTouch() bool {
	return a.Type == ActivityTypeCall || a.Type == ActivityTypeEmail || a.Type == ActivityTypeMeeting
}

// TagEntityType represents the entity kind a tag may attach to
type TagEntityType string

const (
	TagEntityContact TagEntityType = "contact"
	TagEntityCompany TagEntityType = "company"
	TagEntityDeal    TagEntityType = "deal"
	TagEntityLead    TagEntityType = "lead"
	TagEntityAll     TagEntityType = "all"
)

// IsValid checks if the TagEntityType is a valid enum value
func (t TagEntityType) IsValid() bool {
	switch t {
	case TagEntityContact, TagEntityCompany, TagEntityDeal, TagEntityLead, TagEntityAll:
		return true
	}
	return false
}

// Accepts reports whether a tag of this type may attach to the given
// entity type.
func (t TagEntityType) Accepts(entityType TagEntityType) bool {
	return t == TagEntityAll || t == entityType
}

// Tag is unique per (tenant, name, entity_type)
type Tag struct {
	TenantModel
	Name       string        `gorm:"type:varchar(100);not null;index" json:"name"`
	EntityType TagEntityType `gorm:"type:varchar(20);not null;default:'all';column:entity_type" json:"entityType"`
	Color      string        `gorm:"type:varchar(20)" json:"color,omitempty"`
}

// EntityTag links a tag to a concrete entity row
type EntityTag struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID      uuid.UUID     `gorm:"type:uuid;not null;index;column:org_id" json:"orgId"`
	TagID      uuid.UUID     `gorm:"type:uuid;not null;index;column:tag_id" json:"tagId"`
	Tag        *Tag          `gorm:"foreignKey:TagID" json:"tag,omitempty"`
	EntityType TagEntityType `gorm:"type:varchar(20);not null;column:entity_type" json:"entityType"`
	EntityID   uuid.UUID     `gorm:"type:uuid;not null;index;column:entity_id" json:"entityId"`
	CreatedAt  time.Time     `gorm:"not null" json:"createdAt"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (et *EntityTag) BeforeCreate(tx *gorm.DB) error {
	if et.ID == uuid.Nil {
		et.ID = uuid.New()
	}
	return nil
}

// FieldType is the vocabulary shared by custom field definitions and
// dynamic form descriptors.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeURL         FieldType = "url"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDecimal     FieldType = "decimal"
	FieldTypeCurrency    FieldType = "currency"
	FieldTypePercentage  FieldType = "percentage"
	FieldTypeDate        FieldType = "date"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeTime        FieldType = "time"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multi_select"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeLookup      FieldType = "lookup"
)

// IsValid checks if the FieldType is a valid enum value
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeEmail, FieldTypePhone, FieldTypeURL,
		FieldTypeNumber, FieldTypeDecimal, FieldTypeCurrency, FieldTypePercentage,
		FieldTypeDate, FieldTypeDatetime, FieldTypeTime, FieldTypeSelect,
		FieldTypeMultiSelect, FieldTypeRadio, FieldTypeCheckbox, FieldTypeBoolean, FieldTypeLookup:
		return true
	}
	return false
}

// RequiresOptions reports whether the field type needs an options list
func (t FieldType) RequiresOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeMultiSelect || t == FieldTypeRadio
}

// IsNumeric reports whether values are validated as numbers
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldTypeNumber, FieldTypeDecimal, FieldTypeCurrency, FieldTypePercentage:
		return true
	}
	return false
}

// CustomFieldDefinition is a per-tenant schema element. Name and type are
// immutable after creation.
type CustomFieldDefinition struct {
	TenantModel
	EntityType      TagEntityType   `gorm:"type:varchar(20);not null;index;column:entity_type" json:"entityType"`
	Name            string          `gorm:"type:varchar(100);not null;index" json:"name"`
	Label           string          `gorm:"type:varchar(200);not null" json:"label"`
	FieldType       FieldType       `gorm:"type:varchar(30);not null;column:field_type" json:"fieldType"`
	IsRequired      bool            `gorm:"not null;default:false;column:is_required" json:"isRequired"`
	IsUnique        bool            `gorm:"not null;default:false;column:is_unique" json:"isUnique"`
	DefaultValue    string          `gorm:"type:varchar(500);column:default_value" json:"defaultValue,omitempty"`
	Options         FieldOptions    `gorm:"type:jsonb" json:"options,omitempty"`
	ValidationRules ValidationRules `gorm:"type:jsonb;column:validation_rules" json:"validationRules,omitempty"`
	DisplayOrder    int             `gorm:"not null;default:0;column:display_order" json:"displayOrder"`
	IsActive        bool            `gorm:"not null;default:true;column:is_active" json:"isActive"`
}

// FormType distinguishes variants of a form for the same entity type
type FormType string

const (
	FormTypeCreate FormType = "create"
	FormTypeEdit   FormType = "edit"
	FormTypeDetail FormType = "detail"
)

// FormDefinition is the per-tenant write schema for an entity type.
// Exactly one default exists per (tenant, entity_type, form_type); it is
// materialized from a built-in template on first access.
type FormDefinition struct {
	TenantModel
	EntityType TagEntityType `gorm:"type:varchar(20);not null;index;column:entity_type" json:"entityType"`
	FormType   FormType      `gorm:"type:varchar(20);not null;default:'create';column:form_type" json:"formType"`
	Name       string        `gorm:"type:varchar(200);not null" json:"name"`
	IsDefault  bool          `gorm:"not null;default:false;column:is_default" json:"isDefault"`
	IsActive   bool          `gorm:"not null;default:true;column:is_active" json:"isActive"`
	Sections   FormSections  `gorm:"type:jsonb" json:"sections"`
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate      AuditAction = "create"
	AuditActionUpdate      AuditAction = "update"
	AuditActionDelete      AuditAction = "delete"
	AuditActionRestore     AuditAction = "restore"
	AuditActionMerge       AuditAction = "merge"
	AuditActionConvert     AuditAction = "convert"
	AuditActionStageChange AuditAction = "stage_change"
)

// CRMAuditLog is an append-only per-tenant audit trail entry
type CRMAuditLog struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID      uuid.UUID   `gorm:"type:uuid;not null;index;column:org_id" json:"orgId"`
	ActorID    uuid.UUID   `gorm:"type:uuid;not null;column:actor_id" json:"actorId"`
	ActorName  string      `gorm:"type:varchar(200);column:actor_name" json:"actorName,omitempty"`
	Action     AuditAction `gorm:"type:varchar(30);not null" json:"action"`
	EntityType string      `gorm:"type:varchar(50);not null;column:entity_type;index" json:"entityType"`
	EntityID   uuid.UUID   `gorm:"type:uuid;column:entity_id;index" json:"entityId"`
	EntityName string      `gorm:"type:varchar(200);column:entity_name" json:"entityName,omitempty"`
	Changes    string      `gorm:"type:jsonb" json:"changes,omitempty"`
	IPAddress  string      `gorm:"type:varchar(64);column:ip_address" json:"ipAddress,omitempty"`
	UserAgent  string      `gorm:"type:text;column:user_agent" json:"userAgent,omitempty"`
	CreatedAt  time.Time   `gorm:"not null;index" json:"createdAt"`
}

// TableName overrides the default table name
func (CRMAuditLog) TableName() string {
	return "crm_audit_logs"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (a *CRMAuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AllModels is the ordered list used by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&Company{},
		&Contact{},
		&ContactCompany{},
		&Lead{},
		&Pipeline{},
		&PipelineStage{},
		&Deal{},
		&DealStageHistory{},
		&Activity{},
		&Tag{},
		&EntityTag{},
		&CustomFieldDefinition{},
		&FormDefinition{},
		&CRMAuditLog{},
	}
}
