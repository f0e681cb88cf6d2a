package domain

import (
	"time"

	"github.com/google/uuid"
)

// FilterOperator is the vocabulary of the advanced-filter sublanguage
type FilterOperator string

const (
	OpEquals      FilterOperator = "equals"
	OpNotEquals   FilterOperator = "notEquals"
	OpContains    FilterOperator = "contains"
	OpNotContains FilterOperator = "notContains"
	OpStartsWith  FilterOperator = "startsWith"
	OpEndsWith    FilterOperator = "endsWith"
	OpIsEmpty     FilterOperator = "isEmpty"
	OpIsNotEmpty  FilterOperator = "isNotEmpty"
	OpGt          FilterOperator = "gt"
	OpLt          FilterOperator = "lt"
	OpGte         FilterOperator = "gte"
	OpLte         FilterOperator = "lte"
	OpIn          FilterOperator = "in"
	OpNotIn       FilterOperator = "notIn"
)

// IsValid checks if the FilterOperator is a known operator
func (o FilterOperator) IsValid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpIsEmpty, OpIsNotEmpty, OpGt, OpLt, OpGte, OpLte, OpIn, OpNotIn:
		return true
	}
	return false
}

// IsNegative reports whether the operator is applied as an exclusion
// step on top of the combined positive conditions.
func (o FilterOperator) IsNegative() bool {
	return o == OpNotEquals || o == OpNotContains || o == OpNotIn
}

// FilterClause is one condition of an advanced filter
type FilterClause struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    interface{}    `json:"value,omitempty"`
}

// FilterLogic combines the positive filter conditions
type FilterLogic string

const (
	FilterLogicAnd FilterLogic = "and"
	FilterLogicOr  FilterLogic = "or"
)

// ListParams carries pagination, search, ordering and advanced filters
// for list endpoints.
type ListParams struct {
	Page        int
	PageSize    int
	Search      string
	OrderBy     string
	Filters     []FilterClause
	FilterLogic FilterLogic
}

// Offset returns the SQL offset for the current page
func (p ListParams) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}

// Limit returns the SQL limit, clamped to [1, 100]
func (p ListParams) Limit() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// PaginatedResponse is the uniform list envelope
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"totalPages"`
}

// NewPaginatedResponse assembles the envelope from raw counts
func NewPaginatedResponse(data interface{}, params ListParams, total int64) PaginatedResponse {
	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.Limit()
	pages := int((total + int64(size) - 1) / int64(size))
	return PaginatedResponse{Data: data, Page: page, PageSize: size, Total: total, TotalPages: pages}
}

// --- Contacts ---

type CreateContactRequest struct {
	FirstName        string      `json:"firstName" validate:"required,max=100"`
	LastName         string      `json:"lastName" validate:"max=100"`
	Email            string      `json:"email" validate:"omitempty,email,max=255"`
	SecondaryEmail   string      `json:"secondaryEmail" validate:"omitempty,email,max=255"`
	Phone            string      `json:"phone" validate:"max=50"`
	Mobile           string      `json:"mobile" validate:"max=50"`
	Title            string      `json:"title" validate:"max=100"`
	Department       string      `json:"department" validate:"max=100"`
	Status           string      `json:"status" validate:"omitempty,oneof=active inactive bounced unsubscribed"`
	PrimaryCompanyID *uuid.UUID  `json:"primaryCompanyId"`
	Address          string      `json:"address" validate:"max=500"`
	City             string      `json:"city" validate:"max=100"`
	PostalCode       string      `json:"postalCode" validate:"max=20"`
	Country          string      `json:"country" validate:"max=100"`
	LinkedInURL      string      `json:"linkedInUrl" validate:"omitempty,url,max=500"`
	TwitterURL       string      `json:"twitterUrl" validate:"omitempty,url,max=500"`
	Source           string      `json:"source" validate:"max=100"`
	SourceDetail     string      `json:"sourceDetail" validate:"max=255"`
	Description      string      `json:"description"`
	OwnerID          *uuid.UUID  `json:"ownerId"`
	TagIDs           []uuid.UUID `json:"tagIds"`
	EntityData       EntityData  `json:"entityData"`
}

type UpdateContactRequest struct {
	FirstName        *string      `json:"firstName" validate:"omitempty,max=100"`
	LastName         *string      `json:"lastName" validate:"omitempty,max=100"`
	Email            *string      `json:"email" validate:"omitempty,email,max=255"`
	SecondaryEmail   *string      `json:"secondaryEmail" validate:"omitempty,email,max=255"`
	Phone            *string      `json:"phone" validate:"omitempty,max=50"`
	Mobile           *string      `json:"mobile" validate:"omitempty,max=50"`
	Title            *string      `json:"title" validate:"omitempty,max=100"`
	Department       *string      `json:"department" validate:"omitempty,max=100"`
	Status           *string      `json:"status" validate:"omitempty,oneof=active inactive bounced unsubscribed"`
	PrimaryCompanyID *uuid.UUID   `json:"primaryCompanyId"`
	Address          *string      `json:"address" validate:"omitempty,max=500"`
	City             *string      `json:"city" validate:"omitempty,max=100"`
	PostalCode       *string      `json:"postalCode" validate:"omitempty,max=20"`
	Country          *string      `json:"country" validate:"omitempty,max=100"`
	LinkedInURL      *string      `json:"linkedInUrl" validate:"omitempty,url,max=500"`
	TwitterURL       *string      `json:"twitterUrl" validate:"omitempty,url,max=500"`
	Source           *string      `json:"source" validate:"omitempty,max=100"`
	SourceDetail     *string      `json:"sourceDetail" validate:"omitempty,max=255"`
	Description      *string      `json:"description"`
	OwnerID          *uuid.UUID   `json:"ownerId"`
	TagIDs           *[]uuid.UUID `json:"tagIds"`
	EntityData       EntityData   `json:"entityData"`
}

// MergeStrategy selects how field conflicts are resolved during a merge
type MergeStrategy string

const (
	MergeKeepPrimary MergeStrategy = "keep_primary"
	MergeFillEmpty   MergeStrategy = "fill_empty"
)

type MergeRequest struct {
	DuplicateID uuid.UUID     `json:"duplicateId" validate:"required"`
	Strategy    MergeStrategy `json:"strategy" validate:"omitempty,oneof=keep_primary fill_empty"`
}

// DuplicateCandidate is one heuristic duplicate match
type DuplicateCandidate struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	MatchedOn string    `json:"matchedOn"`
}

type CheckDuplicatesRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// --- Companies ---

type CreateCompanyRequest struct {
	Name          string      `json:"name" validate:"required,max=200"`
	Industry      string      `json:"industry" validate:"max=100"`
	Size          string      `json:"size" validate:"max=20"`
	Email         string      `json:"email" validate:"omitempty,email,max=255"`
	Phone         string      `json:"phone" validate:"max=50"`
	Website       string      `json:"website" validate:"omitempty,url,max=500"`
	Address       string      `json:"address" validate:"max=500"`
	City          string      `json:"city" validate:"max=100"`
	PostalCode    string      `json:"postalCode" validate:"max=20"`
	Country       string      `json:"country" validate:"max=100"`
	EmployeeCount *int        `json:"employeeCount" validate:"omitempty,gte=0"`
	AnnualRevenue *float64    `json:"annualRevenue" validate:"omitempty,gte=0"`
	LinkedInURL   string      `json:"linkedInUrl" validate:"omitempty,url,max=500"`
	TwitterURL    string      `json:"twitterUrl" validate:"omitempty,url,max=500"`
	Description   string      `json:"description"`
	OwnerID       *uuid.UUID  `json:"ownerId"`
	TagIDs        []uuid.UUID `json:"tagIds"`
	EntityData    EntityData  `json:"entityData"`
}

type UpdateCompanyRequest struct {
	Name          *string      `json:"name" validate:"omitempty,max=200"`
	Industry      *string      `json:"industry" validate:"omitempty,max=100"`
	Size          *string      `json:"size" validate:"omitempty,max=20"`
	Email         *string      `json:"email" validate:"omitempty,email,max=255"`
	Phone         *string      `json:"phone" validate:"omitempty,max=50"`
	Website       *string      `json:"website" validate:"omitempty,url,max=500"`
	Address       *string      `json:"address" validate:"omitempty,max=500"`
	City          *string      `json:"city" validate:"omitempty,max=100"`
	PostalCode    *string      `json:"postalCode" validate:"omitempty,max=20"`
	Country       *string      `json:"country" validate:"omitempty,max=100"`
	EmployeeCount *int         `json:"employeeCount" validate:"omitempty,gte=0"`
	AnnualRevenue *float64     `json:"annualRevenue" validate:"omitempty,gte=0"`
	LinkedInURL   *string      `json:"linkedInUrl" validate:"omitempty,url,max=500"`
	TwitterURL    *string      `json:"twitterUrl" validate:"omitempty,url,max=500"`
	Description   *string      `json:"description"`
	OwnerID       *uuid.UUID   `json:"ownerId"`
	TagIDs        *[]uuid.UUID `json:"tagIds"`
	EntityData    EntityData   `json:"entityData"`
}

// LinkContactRequest associates a contact with a company
type LinkContactRequest struct {
	ContactID uuid.UUID `json:"contactId" validate:"required"`
	Title     string    `json:"title" validate:"max=200"`
	IsPrimary bool      `json:"isPrimary"`
}

// --- Leads ---

type CreateLeadRequest struct {
	FirstName    string      `json:"firstName" validate:"required,max=100"`
	LastName     string      `json:"lastName" validate:"max=100"`
	Email        string      `json:"email" validate:"omitempty,email,max=255"`
	Phone        string      `json:"phone" validate:"max=50"`
	CompanyName  string      `json:"companyName" validate:"max=200"`
	Title        string      `json:"title" validate:"max=100"`
	Website      string      `json:"website" validate:"omitempty,url,max=500"`
	Address      string      `json:"address" validate:"max=500"`
	City         string      `json:"city" validate:"max=100"`
	PostalCode   string      `json:"postalCode" validate:"max=20"`
	Country      string      `json:"country" validate:"max=100"`
	Status       string      `json:"status" validate:"omitempty,oneof=new contacted qualified unqualified converted"`
	Source       string      `json:"source" validate:"max=100"`
	SourceDetail string      `json:"sourceDetail" validate:"max=255"`
	Rating       string      `json:"rating" validate:"max=50"`
	Score        int         `json:"score" validate:"gte=0,lte=100"`
	AssignedTo   *uuid.UUID  `json:"assignedTo"`
	OwnerID      *uuid.UUID  `json:"ownerId"`
	TagIDs       []uuid.UUID `json:"tagIds"`
	EntityData   EntityData  `json:"entityData"`
}

type UpdateLeadRequest struct {
	FirstName    *string      `json:"firstName" validate:"omitempty,max=100"`
	LastName     *string      `json:"lastName" validate:"omitempty,max=100"`
	Email        *string      `json:"email" validate:"omitempty,email,max=255"`
	Phone        *string      `json:"phone" validate:"omitempty,max=50"`
	CompanyName  *string      `json:"companyName" validate:"omitempty,max=200"`
	Title        *string      `json:"title" validate:"omitempty,max=100"`
	Website      *string      `json:"website" validate:"omitempty,url,max=500"`
	Address      *string      `json:"address" validate:"omitempty,max=500"`
	City         *string      `json:"city" validate:"omitempty,max=100"`
	PostalCode   *string      `json:"postalCode" validate:"omitempty,max=20"`
	Country      *string      `json:"country" validate:"omitempty,max=100"`
	Status       *string      `json:"status" validate:"omitempty,oneof=new contacted qualified unqualified converted"`
	Source       *string      `json:"source" validate:"omitempty,max=100"`
	SourceDetail *string      `json:"sourceDetail" validate:"omitempty,max=255"`
	Rating       *string      `json:"rating" validate:"omitempty,max=50"`
	Score        *int         `json:"score" validate:"omitempty,gte=0,lte=100"`
	AssignedTo   *uuid.UUID   `json:"assignedTo"`
	OwnerID      *uuid.UUID   `json:"ownerId"`
	TagIDs       *[]uuid.UUID `json:"tagIds"`
	EntityData   EntityData   `json:"entityData"`
}

// ConvertLeadRequest selects what a conversion produces. Each create
// flag may be paired with an owner override; without one the created
// record is owned by the acting user.
type ConvertLeadRequest struct {
	CreateContact  bool       `json:"createContact"`
	CreateCompany  bool       `json:"createCompany"`
	CreateDeal     bool       `json:"createDeal"`
	CompanyName    string     `json:"companyName" validate:"max=200"`
	DealName       string     `json:"dealName" validate:"max=200"`
	DealValue      float64    `json:"dealValue" validate:"gte=0"`
	PipelineID     *uuid.UUID `json:"pipelineId"`
	StageID        *uuid.UUID `json:"stageId"`
	ContactOwnerID *uuid.UUID `json:"contactOwnerId"`
	CompanyOwnerID *uuid.UUID `json:"companyOwnerId"`
	DealOwnerID    *uuid.UUID `json:"dealOwnerId"`
}

// ConvertedRef points at a record a conversion produced or matched.
// Created distinguishes a fresh insert from a reused existing row.
type ConvertedRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Created bool      `json:"created"`
}

// ConvertedDealRef points at the deal a conversion opened
type ConvertedDealRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Value float64   `json:"value"`
}

// ConversionResult references everything a conversion produced
type ConversionResult struct {
	LeadID  uuid.UUID         `json:"leadId"`
	Contact *ConvertedRef     `json:"contact,omitempty"`
	Company *ConvertedRef     `json:"company,omitempty"`
	Deal    *ConvertedDealRef `json:"deal,omitempty"`
}

type DisqualifyLeadRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// --- Pipelines and stages ---

type StageInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Probability int    `json:"probability" validate:"gte=0,lte=100"`
	IsWon       bool   `json:"isWon"`
	IsLost      bool   `json:"isLost"`
	RottingDays *int   `json:"rottingDays" validate:"omitempty,gte=1"`
	Color       string `json:"color" validate:"max=20"`
}

type CreatePipelineRequest struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Description string       `json:"description"`
	Currency    string       `json:"currency" validate:"omitempty,len=3"`
	IsDefault   bool         `json:"isDefault"`
	Stages      []StageInput `json:"stages" validate:"omitempty,dive"`
}

type UpdatePipelineRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Currency    *string `json:"currency" validate:"omitempty,len=3"`
	IsDefault   *bool   `json:"isDefault"`
	IsActive    *bool   `json:"isActive"`
}

type CreateStageRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Probability int    `json:"probability" validate:"gte=0,lte=100"`
	IsWon       bool   `json:"isWon"`
	IsLost      bool   `json:"isLost"`
	RottingDays *int   `json:"rottingDays" validate:"omitempty,gte=1"`
	Color       string `json:"color" validate:"max=20"`
}

type UpdateStageRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Probability *int    `json:"probability" validate:"omitempty,gte=0,lte=100"`
	RottingDays *int    `json:"rottingDays" validate:"omitempty,gte=1"`
	Color       *string `json:"color" validate:"omitempty,max=20"`
}

type ReorderStagesRequest struct {
	StageIDs []uuid.UUID `json:"stageIds" validate:"required,min=1"`
}

// --- Deals ---

type CreateDealRequest struct {
	Name              string      `json:"name" validate:"required,max=200"`
	PipelineID        *uuid.UUID  `json:"pipelineId"`
	StageID           *uuid.UUID  `json:"stageId"`
	Value             float64     `json:"value" validate:"gte=0"`
	Currency          string      `json:"currency" validate:"omitempty,len=3"`
	Probability       *int        `json:"probability" validate:"omitempty,gte=0,lte=100"`
	ExpectedCloseDate *time.Time  `json:"expectedCloseDate"`
	ContactID         *uuid.UUID  `json:"contactId"`
	CompanyID         *uuid.UUID  `json:"companyId"`
	Description       string      `json:"description"`
	OwnerID           *uuid.UUID  `json:"ownerId"`
	TagIDs            []uuid.UUID `json:"tagIds"`
	EntityData        EntityData  `json:"entityData"`
}

type UpdateDealRequest struct {
	Name              *string      `json:"name" validate:"omitempty,max=200"`
	Value             *float64     `json:"value" validate:"omitempty,gte=0"`
	Currency          *string      `json:"currency" validate:"omitempty,len=3"`
	Probability       *int         `json:"probability" validate:"omitempty,gte=0,lte=100"`
	ExpectedCloseDate *time.Time   `json:"expectedCloseDate"`
	ContactID         *uuid.UUID   `json:"contactId"`
	CompanyID         *uuid.UUID   `json:"companyId"`
	Description       *string      `json:"description"`
	OwnerID           *uuid.UUID   `json:"ownerId"`
	TagIDs            *[]uuid.UUID `json:"tagIds"`
	EntityData        EntityData   `json:"entityData"`
}

type MoveDealStageRequest struct {
	StageID uuid.UUID `json:"stageId" validate:"required"`
}

type WinDealRequest struct {
	ActualCloseDate *time.Time `json:"actualCloseDate"`
}

type LoseDealRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
	Notes  string `json:"notes"`
}

// StageStats is the per-stage slice of the pipeline aggregate
type StageStats struct {
	StageID       uuid.UUID `json:"stageId"`
	StageName     string    `json:"stageName"`
	DisplayOrder  int       `json:"displayOrder"`
	DealCount     int64     `json:"dealCount"`
	TotalValue    float64   `json:"totalValue"`
	WeightedValue float64   `json:"weightedValue"`
}

// PipelineStats is the single-pass aggregate over a pipeline's deals
type PipelineStats struct {
	PipelineID    uuid.UUID    `json:"pipelineId"`
	TotalDeals    int64        `json:"totalDeals"`
	OpenDeals     int64        `json:"openDeals"`
	WonDeals      int64        `json:"wonDeals"`
	LostDeals     int64        `json:"lostDeals"`
	OpenValue     float64      `json:"openValue"`
	WonValue      float64      `json:"wonValue"`
	WeightedValue float64      `json:"weightedValue"`
	AvgDealValue  float64      `json:"avgDealValue"`
	WinRate       float64      `json:"winRate"`
	Stages        []StageStats `json:"stages"`
}

// ForecastBucket groups open deals by expected close month
type ForecastBucket struct {
	Month         string  `json:"month"`
	DealCount     int64   `json:"dealCount"`
	TotalValue    float64 `json:"totalValue"`
	WeightedValue float64 `json:"weightedValue"`
}

type DealForecast struct {
	Days          int              `json:"days"`
	DealCount     int64            `json:"dealCount"`
	TotalValue    float64          `json:"totalValue"`
	WeightedValue float64          `json:"weightedValue"`
	Buckets       []ForecastBucket `json:"buckets"`
}

// KanbanDeal is a deal card in the board view
type KanbanDeal struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Value        float64    `json:"value"`
	Currency     string     `json:"currency"`
	Status       DealStatus `json:"status"`
	ContactID    *uuid.UUID `json:"contactId,omitempty"`
	ContactName  string     `json:"contactName,omitempty"`
	CompanyID    *uuid.UUID `json:"companyId,omitempty"`
	CompanyName  string     `json:"companyName,omitempty"`
	OwnerID      uuid.UUID  `json:"ownerId"`
	DaysInStage  int        `json:"daysInStage"`
	IsRotting    bool       `json:"isRotting"`
	ExpectedDate *time.Time `json:"expectedCloseDate,omitempty"`
}

// KanbanColumn is one stage column of the board
type KanbanColumn struct {
	Stage      PipelineStage `json:"stage"`
	Deals      []KanbanDeal  `json:"deals"`
	DealCount  int           `json:"dealCount"`
	TotalValue float64       `json:"totalValue"`
}

type KanbanBoard struct {
	PipelineID uuid.UUID      `json:"pipelineId"`
	Columns    []KanbanColumn `json:"columns"`
}

// MonthlyWonLost is one month of the won/lost trend
type MonthlyWonLost struct {
	Month     string  `json:"month"`
	WonCount  int64   `json:"wonCount"`
	WonValue  float64 `json:"wonValue"`
	LostCount int64   `json:"lostCount"`
	LostValue float64 `json:"lostValue"`
}

// LossReasonCount aggregates deals lost for the same reason
type LossReasonCount struct {
	Reason    string  `json:"reason"`
	Count     int64   `json:"count"`
	LostValue float64 `json:"lostValue"`
}

type WonLostAnalysis struct {
	Days            int               `json:"days"`
	WonCount        int64             `json:"wonCount"`
	WonValue        float64           `json:"wonValue"`
	LostCount       int64             `json:"lostCount"`
	LostValue       float64           `json:"lostValue"`
	WinRate         float64           `json:"winRate"`
	AvgDaysToClose  float64           `json:"avgDaysToClose"`
	Monthly         []MonthlyWonLost  `json:"monthly"`
	TopLossReasons  []LossReasonCount `json:"topLossReasons"`
}

// --- Activities ---

type CreateActivityRequest struct {
	Type            string     `json:"type" validate:"required,oneof=task call email meeting note"`
	Subject         string     `json:"subject" validate:"required,max=200"`
	Description     string     `json:"description"`
	Status          string     `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority        string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	DueDate         *time.Time `json:"dueDate"`
	StartTime       *time.Time `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	DurationMinutes *int       `json:"durationMinutes" validate:"omitempty,gte=0"`
	CallDirection   string     `json:"callDirection" validate:"omitempty,oneof=inbound outbound"`
	CallOutcome     string     `json:"callOutcome" validate:"max=100"`
	EmailDirection  string     `json:"emailDirection" validate:"omitempty,oneof=inbound outbound"`
	EmailMessageID  string     `json:"emailMessageId" validate:"max=255"`
	ContactID       *uuid.UUID `json:"contactId"`
	CompanyID       *uuid.UUID `json:"companyId"`
	DealID          *uuid.UUID `json:"dealId"`
	LeadID          *uuid.UUID `json:"leadId"`
	AssignedTo      *uuid.UUID `json:"assignedTo"`
	ReminderAt      *time.Time `json:"reminderAt"`
}

type UpdateActivityRequest struct {
	Subject         *string    `json:"subject" validate:"omitempty,max=200"`
	Description     *string    `json:"description"`
	Status          *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority        *string    `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	DueDate         *time.Time `json:"dueDate"`
	StartTime       *time.Time `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	DurationMinutes *int       `json:"durationMinutes" validate:"omitempty,gte=0"`
	CallOutcome     *string    `json:"callOutcome" validate:"omitempty,max=100"`
	AssignedTo      *uuid.UUID `json:"assignedTo"`
	ReminderAt      *time.Time `json:"reminderAt"`
}

// ActivityStats is the cached per-user workload summary
type ActivityStats struct {
	Total             int64            `json:"total"`
	Pending           int64            `json:"pending"`
	InProgress        int64            `json:"inProgress"`
	Completed         int64            `json:"completed"`
	Overdue           int64            `json:"overdue"`
	DueToday          int64            `json:"dueToday"`
	CompletedThisWeek int64            `json:"completedThisWeek"`
	ByType            map[string]int64 `json:"byType"`
}

// TimelineEntry is one item of an entity's activity timeline
type TimelineEntry struct {
	Activity
	EntityRef string `json:"entityRef,omitempty"`
}

// --- Tags ---

type CreateTagRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	EntityType string `json:"entityType" validate:"omitempty,oneof=contact company deal lead all"`
	Color      string `json:"color" validate:"max=20"`
}

type UpdateTagRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Color *string `json:"color" validate:"omitempty,max=20"`
}

type AttachTagRequest struct {
	EntityType string    `json:"entityType" validate:"required,oneof=contact company deal lead"`
	EntityID   uuid.UUID `json:"entityId" validate:"required"`
}

type BulkTagRequest struct {
	TagIDs     []uuid.UUID `json:"tagIds" validate:"required,min=1"`
	EntityType string      `json:"entityType" validate:"required,oneof=contact company deal lead"`
	EntityIDs  []uuid.UUID `json:"entityIds" validate:"required,min=1"`
}

type MergeTagsRequest struct {
	SourceID uuid.UUID `json:"sourceId" validate:"required"`
}

// --- Custom fields and forms ---

type CreateCustomFieldRequest struct {
	EntityType      string          `json:"entityType" validate:"required,oneof=contact company deal lead"`
	Name            string          `json:"name" validate:"required,max=100"`
	Label           string          `json:"label" validate:"required,max=200"`
	FieldType       string          `json:"fieldType" validate:"required"`
	IsRequired      bool            `json:"isRequired"`
	IsUnique        bool            `json:"isUnique"`
	DefaultValue    string          `json:"defaultValue" validate:"max=500"`
	Options         FieldOptions    `json:"options"`
	ValidationRules ValidationRules `json:"validationRules"`
	DisplayOrder    int             `json:"displayOrder"`
}

type UpdateCustomFieldRequest struct {
	Label           *string          `json:"label" validate:"omitempty,max=200"`
	IsRequired      *bool            `json:"isRequired"`
	DefaultValue    *string          `json:"defaultValue" validate:"omitempty,max=500"`
	Options         *FieldOptions    `json:"options"`
	ValidationRules *ValidationRules `json:"validationRules"`
	DisplayOrder    *int             `json:"displayOrder"`
	IsActive        *bool            `json:"isActive"`
}

type UpdateFormRequest struct {
	Name     *string       `json:"name" validate:"omitempty,max=200"`
	Sections *FormSections `json:"sections"`
}

// --- Bulk operations ---

type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// BulkUpdateRequest applies the same changes to a set of records.
// Fields left nil are untouched; TagIDs replaces the full tag set.
type BulkUpdateRequest struct {
	IDs     []uuid.UUID  `json:"ids" validate:"required,min=1"`
	OwnerID *uuid.UUID   `json:"ownerId"`
	Status  *string      `json:"status"`
	TagIDs  *[]uuid.UUID `json:"tagIds"`
}

// --- Search ---

// SearchHit is one result of the global search
type SearchHit struct {
	EntityType string    `json:"entityType"`
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle,omitempty"`
}

type SearchResults struct {
	Query     string      `json:"query"`
	Contacts  []SearchHit `json:"contacts"`
	Companies []SearchHit `json:"companies"`
	Leads     []SearchHit `json:"leads"`
	Deals     []SearchHit `json:"deals"`
}

// --- Internal (service-to-service) ---

// OrgUsage reports local counts for quota reconciliation
type OrgUsage struct {
	OrgID  uuid.UUID        `json:"orgId"`
	Counts map[string]int64 `json:"counts"`
}

type BumpPermissionsRequest struct {
	UserID  uuid.UUID `json:"userId" validate:"required"`
	Version int64     `json:"version" validate:"required,gt=0"`
}
