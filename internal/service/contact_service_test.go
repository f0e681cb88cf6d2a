package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactCreateDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Anna",
		Email:     "anna@example.com",
	})
	require.NoError(t, err)

	_, err = env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Other Anna",
		Email:     "anna@example.com",
	})
	requireDomainCode(t, err, domain.CodeDuplicateEntity)

	// Same email is fine in another tenant
	_, err = env.contacts.Create(env.otherOrgCtx(), &domain.CreateContactRequest{
		FirstName: "Tenant Two Anna",
		Email:     "anna@example.com",
	})
	require.NoError(t, err)
}

func TestContactUpdatePartial(t *testing.T) {
	env := newTestEnv(t)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Per",
		LastName:  "Olsen",
		Phone:     "11111111",
	})
	require.NoError(t, err)

	phone := "22222222"
	updated, err := env.contacts.Update(env.ctx, contact.ID, &domain.UpdateContactRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "22222222", updated.Phone)
	assert.Equal(t, "Per", updated.FirstName, "untouched fields survive")
	assert.Equal(t, "Olsen", updated.LastName)
}

func TestContactCheckDuplicates(t *testing.T) {
	env := newTestEnv(t)

	byEmail, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Maria",
		LastName:  "Nilsen",
		Email:     "maria@example.com",
	})
	require.NoError(t, err)

	candidates, err := env.contacts.CheckDuplicates(env.ctx, &domain.CheckDuplicatesRequest{
		Name:  "Maria Nilsen",
		Email: "maria@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, byEmail.ID, candidates[0].ID)
	assert.Equal(t, "email", candidates[0].MatchedOn)
}

func TestContactMergeFillEmpty(t *testing.T) {
	env := newTestEnv(t)

	primary, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Primary",
		Phone:     "100",
	})
	require.NoError(t, err)
	duplicate, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Duplicate",
		Email:     "dupe@example.com",
		Phone:     "200",
		Title:     "CTO",
	})
	require.NoError(t, err)

	merged, err := env.contacts.Merge(env.ctx, primary.ID, &domain.MergeRequest{
		DuplicateID: duplicate.ID,
		Strategy:    domain.MergeFillEmpty,
	})
	require.NoError(t, err)
	assert.Equal(t, "dupe@example.com", merged.Email, "empty primary fields are filled")
	assert.Equal(t, "100", merged.Phone, "populated primary fields win")
	assert.Equal(t, "CTO", merged.Title)

	// The duplicate is retired
	_, err = env.contacts.GetByID(env.ctx, duplicate.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}

func TestContactMergeMovesRelations(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)

	primary, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Primary",
		Email:     "primary@example.com",
	})
	require.NoError(t, err)
	duplicate, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Duplicate",
		Email:     "dupe@example.com",
	})
	require.NoError(t, err)

	company, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Employer"})
	require.NoError(t, err)
	require.NoError(t, env.companies.LinkContact(env.ctx, company.ID, duplicate.ID, "CTO", true))

	deal, err := env.deals.Create(env.ctx, &domain.CreateDealRequest{
		Name: "Dupe deal", Value: 100, ContactID: &duplicate.ID,
	})
	require.NoError(t, err)
	activity, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "note", Subject: "Dupe note", ContactID: &duplicate.ID,
	})
	require.NoError(t, err)

	tag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "moved"})
	require.NoError(t, err)
	require.NoError(t, env.tags.Attach(env.ctx, tag.ID, &domain.AttachTagRequest{
		EntityType: "contact", EntityID: duplicate.ID,
	}))

	merged, err := env.contacts.Merge(env.ctx, primary.ID, &domain.MergeRequest{
		DuplicateID: duplicate.ID,
		Strategy:    domain.MergeFillEmpty,
	})
	require.NoError(t, err)
	assert.Equal(t, "primary@example.com", merged.Email)
	assert.Equal(t, "dupe@example.com", merged.SecondaryEmail, "the duplicate's distinct email survives")

	movedDeal, err := env.deals.GetByID(env.ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, movedDeal.ContactID)
	assert.Equal(t, primary.ID, *movedDeal.ContactID)

	movedActivity, err := env.activities.GetByID(env.ctx, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, movedActivity.ContactID)
	assert.Equal(t, primary.ID, *movedActivity.ContactID)

	linked, err := env.contacts.ListByCompany(env.ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1, "the company link follows the surviving contact")
	assert.Equal(t, primary.ID, linked[0].ID)

	tags, err := env.tags.ListForEntity(env.ctx, "contact", primary.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)
}

func TestContactMergeSelfRejected(t *testing.T) {
	env := newTestEnv(t)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Solo"})
	require.NoError(t, err)

	_, err = env.contacts.Merge(env.ctx, contact.ID, &domain.MergeRequest{DuplicateID: contact.ID})
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestContactListSearchAndPaging(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: name})
		require.NoError(t, err)
	}

	page, err := env.contacts.List(env.ctx, domain.ListParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	found, err := env.contacts.List(env.ctx, domain.ListParams{Search: "gam"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.Total)
}

func TestContactCompanyLinks(t *testing.T) {
	env := newTestEnv(t)

	company, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "LinkCo"})
	require.NoError(t, err)
	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Linked"})
	require.NoError(t, err)

	require.NoError(t, env.companies.LinkContact(env.ctx, company.ID, contact.ID, "Engineer", true))

	contacts, err := env.contacts.ListByCompany(env.ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, contact.ID, contacts[0].ID)

	require.NoError(t, env.companies.UnlinkContact(env.ctx, company.ID, contact.ID))
	contacts, err = env.contacts.ListByCompany(env.ctx, company.ID)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestContactBulkDeleteSkipsForeignRows(t *testing.T) {
	env := newTestEnv(t)

	mine, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Mine"})
	require.NoError(t, err)
	theirs, err := env.contacts.Create(env.otherOrgCtx(), &domain.CreateContactRequest{FirstName: "Theirs"})
	require.NoError(t, err)

	deleted, err := env.contacts.BulkDelete(env.ctx, &domain.BulkDeleteRequest{
		IDs: []uuid.UUID{mine.ID, theirs.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted, "rows of other tenants are invisible")
}

func TestContactBulkUpdate(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "One"})
	require.NoError(t, err)
	second, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Two"})
	require.NoError(t, err)
	tag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "bulk"})
	require.NoError(t, err)

	newOwner := uuid.New()
	status := "inactive"
	tagIDs := []uuid.UUID{tag.ID}
	updated, err := env.contacts.BulkUpdate(env.ctx, &domain.BulkUpdateRequest{
		IDs:     []uuid.UUID{first.ID, second.ID, uuid.New()},
		OwnerID: &newOwner,
		Status:  &status,
		TagIDs:  &tagIDs,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated, "unknown IDs are skipped")

	got, err := env.contacts.GetByID(env.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, newOwner, got.OwnerID)
	assert.Equal(t, domain.ContactStatusInactive, got.Status)

	tags, err := env.tags.ListForEntity(env.ctx, "contact", first.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)

	bad := "sleeping"
	_, err = env.contacts.BulkUpdate(env.ctx, &domain.BulkUpdateRequest{
		IDs:    []uuid.UUID{first.ID},
		Status: &bad,
	})
	requireDomainCode(t, err, domain.CodeValidationError)
}
