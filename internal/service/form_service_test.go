package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSchemaMaterialization(t *testing.T) {
	env := newTestEnv(t)

	schema, err := env.forms.GetSchema(env.ctx, "contact", "")
	require.NoError(t, err)
	assert.True(t, schema.IsDefault)
	assert.Equal(t, domain.FormTypeCreate, schema.FormType)
	require.Len(t, schema.Sections, 2)
	assert.Equal(t, "General", schema.Sections[0].Title)
	assert.Equal(t, "first_name", schema.Sections[0].Fields[0].Name)
	assert.True(t, schema.Sections[0].Fields[0].IsSystem)

	again, err := env.forms.GetSchema(env.ctx, "contact", "create")
	require.NoError(t, err)
	assert.Equal(t, schema.ID, again.ID, "materialization happens once")

	_, err = env.forms.GetSchema(env.ctx, "bogus", "")
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestFormSchemaAppendsCustomFields(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "nickname", Label: "Nickname", FieldType: "text",
	})
	require.NoError(t, err)

	schema, err := env.forms.GetSchema(env.ctx, "contact", "")
	require.NoError(t, err)
	require.Len(t, schema.Sections, 3)
	custom := schema.Sections[2]
	assert.Equal(t, "Custom Fields", custom.Title)
	require.Len(t, custom.Fields, 1)
	assert.Equal(t, "nickname", custom.Fields[0].Name)
	assert.False(t, custom.Fields[0].IsSystem)

	// The projection is computed per request, not written back
	forms, err := env.forms.ListForms(env.ctx, "contact")
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Len(t, forms[0].Sections, 2)
}

func TestFormUpdate(t *testing.T) {
	env := newTestEnv(t)

	schema, err := env.forms.GetSchema(env.ctx, "deal", "")
	require.NoError(t, err)

	name := "Deal intake"
	sections := domain.FormSections{
		{Title: "Only section", Columns: 1, Fields: []domain.FormField{
			{Name: "name", Label: "Deal Name", FieldType: domain.FieldTypeText, IsRequired: true, IsSystem: true},
		}},
	}
	updated, err := env.forms.UpdateForm(env.ctx, schema.ID, &domain.UpdateFormRequest{
		Name:     &name,
		Sections: &sections,
	})
	require.NoError(t, err)
	assert.Equal(t, "Deal intake", updated.Name)
	require.Len(t, updated.Sections, 1)
	assert.Equal(t, "Only section", updated.Sections[0].Title)

	_, err = env.forms.UpdateForm(env.ctx, uuid.New(), &domain.UpdateFormRequest{Name: &name})
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}

func TestValidateEntityDataRules(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "department", Label: "Department", FieldType: "text", IsRequired: true,
	})
	require.NoError(t, err)

	min, max := 0.0, 100.0
	_, err = env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "score", Label: "Score", FieldType: "number",
		ValidationRules: domain.ValidationRules{Min: &min, Max: &max},
	})
	require.NoError(t, err)

	_, err = env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "region", Label: "Region", FieldType: "select",
		Options: domain.FieldOptions{{Value: "north", Label: "North"}, {Value: "south", Label: "South"}},
	})
	require.NoError(t, err)

	// Missing required field
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact, domain.EntityData{}, nil)
	requireDomainCode(t, err, domain.CodeValidationError)

	// Non-numeric score
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact, domain.EntityData{
		"department": "Sales", "score": "high",
	}, nil)
	requireDomainCode(t, err, domain.CodeValidationError)

	// Score out of range
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact, domain.EntityData{
		"department": "Sales", "score": 250.0,
	}, nil)
	requireDomainCode(t, err, domain.CodeValidationError)

	// Option not in the configured list
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact, domain.EntityData{
		"department": "Sales", "region": "east",
	}, nil)
	requireDomainCode(t, err, domain.CodeValidationError)

	// A well-formed document passes
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact, domain.EntityData{
		"department": "Sales", "score": 42.0, "region": "north",
	}, nil)
	require.NoError(t, err)
}

func TestValidateEntityDataUnique(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "employee_id", Label: "Employee ID", FieldType: "text", IsUnique: true,
	})
	require.NoError(t, err)

	holder, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName:  "Holder",
		EntityData: domain.EntityData{"employee_id": "E-1001"},
	})
	require.NoError(t, err)

	// A second document with the same value collides
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact,
		domain.EntityData{"employee_id": "E-1001"}, nil)
	requireDomainCode(t, err, domain.CodeValidationError)

	// The holder itself is excluded on update
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact,
		domain.EntityData{"employee_id": "E-1001"}, &holder.ID)
	require.NoError(t, err)

	// A different value passes
	err = env.forms.ValidateEntityData(env.ctx, domain.TagEntityContact,
		domain.EntityData{"employee_id": "E-2002"}, nil)
	require.NoError(t, err)
}

func TestLeadSystemFieldRouting(t *testing.T) {
	lead := &domain.Lead{
		Status: domain.LeadStatusNew,
		EntityData: domain.EntityData{
			"status":  "contacted",
			"company": "Acme",
			"rating":  "hot",
			"custom":  "stays",
		},
	}

	LiftLeadSystemFields(lead)
	assert.Equal(t, domain.LeadStatusContacted, lead.Status)
	assert.Equal(t, "Acme", lead.CompanyName)
	assert.Equal(t, "hot", lead.Rating)
	assert.Equal(t, domain.EntityData{"custom": "stays"}, lead.EntityData)

	ProjectLeadSystemFields(lead)
	assert.Equal(t, "contacted", lead.EntityData["status"])
	assert.Equal(t, "Acme", lead.EntityData["company"])
	assert.Equal(t, "stays", lead.EntityData["custom"])
}

func TestLeadSystemFieldLiftRejectsBadEnum(t *testing.T) {
	lead := &domain.Lead{
		Status:     domain.LeadStatusNew,
		EntityData: domain.EntityData{"status": "nonsense"},
	}
	LiftLeadSystemFields(lead)
	assert.Equal(t, domain.LeadStatusNew, lead.Status, "bad enum stays in the document")
	assert.Equal(t, "nonsense", lead.EntityData["status"])
}
