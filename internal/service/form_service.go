package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
)

// UniqueScanFunc searches a tenant's live rows for entity_data documents
// that may hold the given value. The LIKE pattern narrows candidates;
// exact comparison happens in the validator.
type UniqueScanFunc func(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.EntityData, error)

// FormService owns the per-tenant write schemas: form definitions
// materialized from built-in templates, entity_data validation and the
// hybrid column-vs-document routing for leads.
type FormService struct {
	formRepo  *repository.FormRepository
	fieldRepo *repository.CustomFieldRepository
	scanners  map[domain.TagEntityType]UniqueScanFunc
	logger    *zap.Logger
}

func NewFormService(
	formRepo *repository.FormRepository,
	fieldRepo *repository.CustomFieldRepository,
	scanners map[domain.TagEntityType]UniqueScanFunc,
	logger *zap.Logger,
) *FormService {
	if scanners == nil {
		scanners = map[domain.TagEntityType]UniqueScanFunc{}
	}
	return &FormService{formRepo: formRepo, fieldRepo: fieldRepo, scanners: scanners, logger: logger}
}

// GetSchema returns the default form for (entity_type, form_type),
// materializing it from the built-in template on first access. Active
// custom fields are appended as an extra section.
func (s *FormService) GetSchema(ctx context.Context, entityType string, formType string) (*domain.FormDefinition, error) {
	t := domain.TagEntityType(entityType)
	if !t.IsValid() || t == domain.TagEntityAll {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown entity type %q", entityType))
	}
	ft := domain.FormType(formType)
	if ft == "" {
		ft = domain.FormTypeCreate
	}

	form, err := s.getOrMaterialize(ctx, t, ft)
	if err != nil {
		return nil, err
	}

	fields, err := s.fieldRepo.List(ctx, t, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom fields: %w", err)
	}
	if len(fields) > 0 {
		section := domain.FormSection{Title: "Custom Fields", Columns: 2}
		for _, f := range fields {
			section.Fields = append(section.Fields, domain.FormField{
				Name:            f.Name,
				Label:           f.Label,
				FieldType:       f.FieldType,
				IsRequired:      f.IsRequired,
				IsUnique:        f.IsUnique,
				DefaultValue:    f.DefaultValue,
				Options:         f.Options,
				ValidationRules: f.ValidationRules,
				DisplayOrder:    f.DisplayOrder,
			})
		}
		projected := *form
		projected.Sections = append(append(domain.FormSections{}, form.Sections...), section)
		return &projected, nil
	}
	return form, nil
}

func (s *FormService) getOrMaterialize(ctx context.Context, entityType domain.TagEntityType, formType domain.FormType) (*domain.FormDefinition, error) {
	form, err := s.formRepo.GetDefault(ctx, entityType, formType)
	if err == nil {
		return form, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}

	template := builtinFormTemplate(entityType)
	form = &domain.FormDefinition{
		TenantModel: domain.TenantModel{
			OrgID:   auth.OrgIDFromContext(ctx),
			OwnerID: auth.UserIDFromContext(ctx),
		},
		EntityType: entityType,
		FormType:   formType,
		Name:       fmt.Sprintf("Default %s %s form", entityType, formType),
		IsDefault:  true,
		IsActive:   true,
		Sections:   template,
	}
	if err := s.formRepo.Create(ctx, form); err != nil {
		// Lost a materialization race; re-read the winner.
		if existing, rerr := s.formRepo.GetDefault(ctx, entityType, formType); rerr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to materialize form: %w", err)
	}
	s.logger.Info("materialized default form",
		zap.String("entityType", string(entityType)),
		zap.String("formType", string(formType)))
	return form, nil
}

// UpdateForm changes a form's name or sections
func (s *FormService) UpdateForm(ctx context.Context, id uuid.UUID, req *domain.UpdateFormRequest) (*domain.FormDefinition, error) {
	form, err := s.formRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "form")
	}
	if err := auth.Authorize(ctx, "forms", "update", form.OwnerID); err != nil {
		return nil, err
	}
	if req.Name != nil {
		form.Name = *req.Name
	}
	if req.Sections != nil {
		form.Sections = *req.Sections
	}
	if err := s.formRepo.Update(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to update form: %w", err)
	}
	return form, nil
}

// ListForms returns the tenant's forms for an entity type
func (s *FormService) ListForms(ctx context.Context, entityType string) ([]domain.FormDefinition, error) {
	var t domain.TagEntityType
	if entityType != "" {
		t = domain.TagEntityType(entityType)
		if !t.IsValid() || t == domain.TagEntityAll {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown entity type %q", entityType))
		}
	}
	return s.formRepo.List(ctx, t)
}

// ValidateEntityData checks a document against the tenant's create-form
// descriptors plus the active custom field definitions. excludeID skips
// the row itself during unique scans on update.
func (s *FormService) ValidateEntityData(ctx context.Context, entityType domain.TagEntityType, data domain.EntityData, excludeID *uuid.UUID) error {
	form, err := s.getOrMaterialize(ctx, entityType, domain.FormTypeCreate)
	if err != nil {
		return err
	}
	descriptors := form.Sections.Fields()

	customFields, err := s.fieldRepo.List(ctx, entityType, true)
	if err != nil {
		return fmt.Errorf("failed to load custom fields: %w", err)
	}
	for _, f := range customFields {
		descriptors = append(descriptors, domain.FormField{
			Name:            f.Name,
			Label:           f.Label,
			FieldType:       f.FieldType,
			IsRequired:      f.IsRequired,
			IsUnique:        f.IsUnique,
			Options:         f.Options,
			ValidationRules: f.ValidationRules,
		})
	}

	var fieldErrs []domain.FieldError
	for _, field := range descriptors {
		// System fields live in typed columns and are validated on the
		// request struct, not in the document.
		if field.IsSystem {
			continue
		}
		value, present := data[field.Name]
		if field.IsRequired && isEmptyValue(value) {
			fieldErrs = append(fieldErrs, domain.FieldError{
				Field:   field.Name,
				Message: fmt.Sprintf("%s is required", field.Label),
			})
			continue
		}
		if !present || isEmptyValue(value) {
			continue
		}
		if msg := validateFieldValue(field, value); msg != "" {
			fieldErrs = append(fieldErrs, domain.FieldError{Field: field.Name, Message: msg})
			continue
		}
		if field.IsUnique {
			if collides, err := s.scanUnique(ctx, entityType, field.Name, value, excludeID); err != nil {
				return err
			} else if collides {
				fieldErrs = append(fieldErrs, domain.FieldError{
					Field:   field.Name,
					Message: fmt.Sprintf("%s must be unique", field.Label),
				})
			}
		}
	}

	if len(fieldErrs) > 0 {
		return domain.NewFieldValidationError(fieldErrs)
	}
	return nil
}

func (s *FormService) scanUnique(ctx context.Context, entityType domain.TagEntityType, name string, value interface{}, excludeID *uuid.UUID) (bool, error) {
	scan, ok := s.scanners[entityType]
	if !ok {
		return false, nil
	}
	needle := fmt.Sprintf("%v", value)
	candidates, err := scan(ctx, "%"+needle+"%", excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to scan unique values: %w", err)
	}
	for _, doc := range candidates {
		if stored, ok := doc[name]; ok && fmt.Sprintf("%v", stored) == needle {
			return true, nil
		}
	}
	return false, nil
}

// isEmptyValue treats nil, empty strings and empty lists as absent
func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	}
	return false
}

func validateFieldValue(field domain.FormField, value interface{}) string {
	switch {
	case field.FieldType.IsNumeric():
		num, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%s must be a number", field.Label)
		}
		rules := field.ValidationRules
		if rules.Min != nil && num < *rules.Min {
			return fmt.Sprintf("%s must be at least %v", field.Label, *rules.Min)
		}
		if rules.Max != nil && num > *rules.Max {
			return fmt.Sprintf("%s must be at most %v", field.Label, *rules.Max)
		}

	case field.FieldType == domain.FieldTypeEmail:
		str, ok := value.(string)
		if !ok || !strings.Contains(str, "@") || !strings.Contains(str, ".") {
			return fmt.Sprintf("%s must be a valid email address", field.Label)
		}

	case field.FieldType == domain.FieldTypeURL:
		str, ok := value.(string)
		if !ok || (!strings.HasPrefix(str, "http://") && !strings.HasPrefix(str, "https://")) {
			return fmt.Sprintf("%s must be a valid URL", field.Label)
		}

	case field.FieldType == domain.FieldTypePhone:
		str, ok := value.(string)
		if !ok || len(strings.TrimSpace(str)) < 10 {
			return fmt.Sprintf("%s must be a valid phone number", field.Label)
		}

	case field.FieldType == domain.FieldTypeSelect || field.FieldType == domain.FieldTypeRadio:
		str, ok := value.(string)
		if !ok || !containsString(field.Options.Values(), str) {
			return fmt.Sprintf("%s must be one of the configured options", field.Label)
		}

	case field.FieldType == domain.FieldTypeMultiSelect:
		list, ok := value.([]interface{})
		if !ok {
			return fmt.Sprintf("%s must be a list of options", field.Label)
		}
		valid := field.Options.Values()
		for _, item := range list {
			str, ok := item.(string)
			if !ok || !containsString(valid, str) {
				return fmt.Sprintf("%s contains an invalid option", field.Label)
			}
		}

	case field.FieldType == domain.FieldTypeCheckbox || field.FieldType == domain.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("%s must be a boolean", field.Label)
		}

	default:
		str, ok := value.(string)
		if !ok {
			return fmt.Sprintf("%s must be a string", field.Label)
		}
		rules := field.ValidationRules
		if rules.MinLength != nil && len(str) < *rules.MinLength {
			return fmt.Sprintf("%s must be at least %d characters", field.Label, *rules.MinLength)
		}
		if rules.MaxLength != nil && len(str) > *rules.MaxLength {
			return fmt.Sprintf("%s must be at most %d characters", field.Label, *rules.MaxLength)
		}
		if rules.Pattern != "" {
			re, err := regexp.Compile(rules.Pattern)
			if err == nil && !re.MatchString(str) {
				return fmt.Sprintf("%s has an invalid format", field.Label)
			}
		}
	}
	return ""
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// --- hybrid column-vs-document routing for leads ---

// LiftLeadSystemFields moves known system keys out of the entity_data
// document into the lead's typed columns. Values that do not fit the
// column (bad enum, bad uuid) stay in the document. This is the only
// place that knows the mapping.
func LiftLeadSystemFields(lead *domain.Lead) {
	if lead.EntityData == nil {
		return
	}
	data := lead.EntityData

	if raw, ok := data["status"]; ok {
		if str, ok := raw.(string); ok && domain.LeadStatus(str).IsValid() {
			lead.Status = domain.LeadStatus(str)
			delete(data, "status")
		}
	}
	if raw, ok := data["source"]; ok {
		if str, ok := raw.(string); ok {
			lead.Source = str
			delete(data, "source")
		}
	}
	if raw, ok := data["rating"]; ok {
		if str, ok := raw.(string); ok {
			lead.Rating = str
			delete(data, "rating")
		}
	}
	if raw, ok := data["assigned_to"]; ok {
		if str, ok := raw.(string); ok {
			if id, err := uuid.Parse(str); err == nil {
				lead.AssignedTo = &id
				delete(data, "assigned_to")
			}
		}
	}
	if raw, ok := data["company"]; ok {
		if str, ok := raw.(string); ok {
			lead.CompanyName = str
			delete(data, "company")
		}
	}
}

// ProjectLeadSystemFields copies the lifted columns back into the
// entity_data document so clients see one uniform form payload.
func ProjectLeadSystemFields(lead *domain.Lead) {
	data := lead.EntityData.Clone()
	if data == nil {
		data = domain.EntityData{}
	}
	data["status"] = string(lead.Status)
	if lead.Source != "" {
		data["source"] = lead.Source
	}
	if lead.Rating != "" {
		data["rating"] = lead.Rating
	}
	if lead.AssignedTo != nil {
		data["assigned_to"] = lead.AssignedTo.String()
	}
	if lead.CompanyName != "" {
		data["company"] = lead.CompanyName
	}
	lead.EntityData = data
}

// builtinFormTemplate is the seed schema for an entity type. Tenants
// customize their copy after materialization.
func builtinFormTemplate(entityType domain.TagEntityType) domain.FormSections {
	switch entityType {
	case domain.TagEntityContact:
		return domain.FormSections{
			{
				Title: "General", Columns: 2,
				Fields: []domain.FormField{
					{Name: "first_name", Label: "First Name", FieldType: domain.FieldTypeText, IsRequired: true, IsSystem: true, DisplayOrder: 1},
					{Name: "last_name", Label: "Last Name", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 2},
					{Name: "email", Label: "Email", FieldType: domain.FieldTypeEmail, IsSystem: true, DisplayOrder: 3},
					{Name: "phone", Label: "Phone", FieldType: domain.FieldTypePhone, IsSystem: true, DisplayOrder: 4},
					{Name: "title", Label: "Job Title", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 5},
				},
			},
			{
				Title: "Address", Columns: 2,
				Fields: []domain.FormField{
					{Name: "address", Label: "Street Address", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 6},
					{Name: "city", Label: "City", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 7},
					{Name: "postal_code", Label: "Postal Code", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 8},
					{Name: "country", Label: "Country", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 9},
				},
			},
		}
	case domain.TagEntityCompany:
		return domain.FormSections{
			{
				Title: "General", Columns: 2,
				Fields: []domain.FormField{
					{Name: "name", Label: "Company Name", FieldType: domain.FieldTypeText, IsRequired: true, IsSystem: true, DisplayOrder: 1},
					{Name: "industry", Label: "Industry", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 2},
					{Name: "website", Label: "Website", FieldType: domain.FieldTypeURL, IsSystem: true, DisplayOrder: 3},
					{Name: "email", Label: "Email", FieldType: domain.FieldTypeEmail, IsSystem: true, DisplayOrder: 4},
					{Name: "employee_count", Label: "Employees", FieldType: domain.FieldTypeNumber, IsSystem: true, DisplayOrder: 5},
					{Name: "annual_revenue", Label: "Annual Revenue", FieldType: domain.FieldTypeCurrency, IsSystem: true, DisplayOrder: 6},
				},
			},
		}
	case domain.TagEntityLead:
		return domain.FormSections{
			{
				Title: "General", Columns: 2,
				Fields: []domain.FormField{
					{Name: "first_name", Label: "First Name", FieldType: domain.FieldTypeText, IsRequired: true, IsSystem: true, DisplayOrder: 1},
					{Name: "last_name", Label: "Last Name", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 2},
					{Name: "email", Label: "Email", FieldType: domain.FieldTypeEmail, IsSystem: true, DisplayOrder: 3},
					{Name: "phone", Label: "Phone", FieldType: domain.FieldTypePhone, IsSystem: true, DisplayOrder: 4},
					{Name: "company", Label: "Company", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 5},
				},
			},
			{
				Title: "Qualification", Columns: 2,
				Fields: []domain.FormField{
					{Name: "status", Label: "Status", FieldType: domain.FieldTypeSelect, IsSystem: true, DisplayOrder: 6,
						Options: domain.FieldOptions{
							{Value: "new", Label: "New"},
							{Value: "contacted", Label: "Contacted"},
							{Value: "qualified", Label: "Qualified"},
							{Value: "unqualified", Label: "Unqualified"},
						}},
					{Name: "source", Label: "Source", FieldType: domain.FieldTypeText, IsSystem: true, DisplayOrder: 7},
					{Name: "rating", Label: "Rating", FieldType: domain.FieldTypeSelect, IsSystem: true, DisplayOrder: 8,
						Options: domain.FieldOptions{
							{Value: "hot", Label: "Hot"},
							{Value: "warm", Label: "Warm"},
							{Value: "cold", Label: "Cold"},
						}},
				},
			},
		}
	case domain.TagEntityDeal:
		return domain.FormSections{
			{
				Title: "General", Columns: 2,
				Fields: []domain.FormField{
					{Name: "name", Label: "Deal Name", FieldType: domain.FieldTypeText, IsRequired: true, IsSystem: true, DisplayOrder: 1},
					{Name: "value", Label: "Value", FieldType: domain.FieldTypeCurrency, IsSystem: true, DisplayOrder: 2},
					{Name: "expected_close_date", Label: "Expected Close", FieldType: domain.FieldTypeDate, IsSystem: true, DisplayOrder: 3},
				},
			},
		}
	}
	return domain.FormSections{}
}
