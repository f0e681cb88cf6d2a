package service

import (
	"fmt"
	"testing"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFieldCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	field, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact",
		Name:       "linkedin_url",
		Label:      "LinkedIn",
		FieldType:  "url",
	})
	require.NoError(t, err)
	assert.True(t, field.IsActive)
	assert.Equal(t, 1, field.DisplayOrder, "first field gets order 1")

	second, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact",
		Name:       "segment",
		Label:      "Segment",
		FieldType:  "select",
		Options:    domain.FieldOptions{{Value: "smb", Label: "SMB"}, {Value: "ent", Label: "Enterprise"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.DisplayOrder, "appended after the existing field")

	// Uppercase and spaces are rejected
	_, err = env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "Bad Name", Label: "Bad", FieldType: "text",
	})
	requireDomainCode(t, err, domain.CodeValidationError)

	// Select fields need options
	_, err = env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "no_options", Label: "No options", FieldType: "select",
	})
	requireDomainCode(t, err, domain.CodeValidationError)

	// Names are unique per entity type
	_, err = env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "linkedin_url", Label: "Again", FieldType: "text",
	})
	requireDomainCode(t, err, domain.CodeDuplicateEntity)

	// The same name on another entity type is fine
	_, err = env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "company", Name: "linkedin_url", Label: "LinkedIn", FieldType: "url",
	})
	require.NoError(t, err)
}

func TestCustomFieldQuotaLimit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 20; i++ {
		_, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
			EntityType: "contact",
			Name:       fmt.Sprintf("field_%02d", i),
			Label:      "Field",
			FieldType:  "text",
		})
		require.NoError(t, err)
	}
	_, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "contact", Name: "one_too_many", Label: "Over", FieldType: "text",
	})
	requireDomainCode(t, err, domain.CodeLimitExceeded)
}

func TestCustomFieldUpdateMutableAttributes(t *testing.T) {
	env := newTestEnv(t)

	field, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "deal",
		Name:       "competitor",
		Label:      "Competitor",
		FieldType:  "text",
	})
	require.NoError(t, err)

	label := "Main Competitor"
	required := true
	inactive := false
	updated, err := env.customFields.Update(env.ctx, field.ID, &domain.UpdateCustomFieldRequest{
		Label:      &label,
		IsRequired: &required,
		IsActive:   &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Main Competitor", updated.Label)
	assert.True(t, updated.IsRequired)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "competitor", updated.Name, "name never changes")
	assert.Equal(t, domain.FieldTypeText, updated.FieldType, "field type never changes")

	// Clearing options on a select field is rejected
	sel, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "deal", Name: "tier", Label: "Tier", FieldType: "select",
		Options: domain.FieldOptions{{Value: "gold", Label: "Gold"}},
	})
	require.NoError(t, err)
	empty := domain.FieldOptions{}
	_, err = env.customFields.Update(env.ctx, sel.ID, &domain.UpdateCustomFieldRequest{Options: &empty})
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestCustomFieldListAndDelete(t *testing.T) {
	env := newTestEnv(t)

	field, err := env.customFields.Create(env.ctx, &domain.CreateCustomFieldRequest{
		EntityType: "lead", Name: "budget_band", Label: "Budget", FieldType: "text",
	})
	require.NoError(t, err)

	fields, err := env.customFields.List(env.ctx, "lead", true)
	require.NoError(t, err)
	require.Len(t, fields, 1)

	inactive := false
	_, err = env.customFields.Update(env.ctx, field.ID, &domain.UpdateCustomFieldRequest{IsActive: &inactive})
	require.NoError(t, err)

	fields, err = env.customFields.List(env.ctx, "lead", true)
	require.NoError(t, err)
	assert.Empty(t, fields, "active-only listing hides deactivated fields")

	fields, err = env.customFields.List(env.ctx, "lead", false)
	require.NoError(t, err)
	assert.Len(t, fields, 1)

	require.NoError(t, env.customFields.Delete(env.ctx, field.ID))
	_, err = env.customFields.GetByID(env.ctx, field.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)

	_, err = env.customFields.List(env.ctx, "all", true)
	requireDomainCode(t, err, domain.CodeValidationError)
}
