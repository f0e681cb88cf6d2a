package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyCreateDuplicateNameCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Acme AS"})
	require.NoError(t, err)

	_, err = env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "acme as"})
	requireDomainCode(t, err, domain.CodeDuplicateEntity)

	_, err = env.companies.Create(env.otherOrgCtx(), &domain.CreateCompanyRequest{Name: "Acme AS"})
	require.NoError(t, err, "names only collide within a tenant")
}

func TestCompanyCheckDuplicates(t *testing.T) {
	env := newTestEnv(t)

	company, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Globex"})
	require.NoError(t, err)

	candidates, err := env.companies.CheckDuplicates(env.ctx, &domain.CheckDuplicatesRequest{Name: "globex"})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, company.ID, candidates[0].ID)
}

func TestCompanyMergeRepointsPrimaryContacts(t *testing.T) {
	env := newTestEnv(t)

	primary, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Keeper"})
	require.NoError(t, err)
	duplicate, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{
		Name: "Duplicate", Industry: "Retail", Website: "https://dupe.example.com",
	})
	require.NoError(t, err)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Employee"})
	require.NoError(t, err)
	require.NoError(t, env.companies.LinkContact(env.ctx, duplicate.ID, contact.ID, "CEO", true))

	merged, err := env.companies.Merge(env.ctx, primary.ID, &domain.MergeRequest{
		DuplicateID: duplicate.ID,
		Strategy:    domain.MergeFillEmpty,
	})
	require.NoError(t, err)
	assert.Equal(t, "Retail", merged.Industry, "empty fields are filled from the duplicate")

	moved, err := env.contacts.GetByID(env.ctx, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.PrimaryCompanyID)
	assert.Equal(t, primary.ID, *moved.PrimaryCompanyID, "contacts follow the surviving company")

	_, err = env.companies.GetByID(env.ctx, duplicate.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}

func TestCompanyMergeMovesRelations(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)

	primary, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Keeper"})
	require.NoError(t, err)
	duplicate, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Folded"})
	require.NoError(t, err)

	deal, err := env.deals.Create(env.ctx, &domain.CreateDealRequest{
		Name: "Dupe deal", Value: 300, CompanyID: &duplicate.ID,
	})
	require.NoError(t, err)
	activity, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "note", Subject: "Dupe note", CompanyID: &duplicate.ID,
	})
	require.NoError(t, err)

	tag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "moved"})
	require.NoError(t, err)
	require.NoError(t, env.tags.Attach(env.ctx, tag.ID, &domain.AttachTagRequest{
		EntityType: "company", EntityID: duplicate.ID,
	}))

	_, err = env.companies.Merge(env.ctx, primary.ID, &domain.MergeRequest{
		DuplicateID: duplicate.ID,
		Strategy:    domain.MergeFillEmpty,
	})
	require.NoError(t, err)

	movedDeal, err := env.deals.GetByID(env.ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, movedDeal.CompanyID)
	assert.Equal(t, primary.ID, *movedDeal.CompanyID)

	movedActivity, err := env.activities.GetByID(env.ctx, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, movedActivity.CompanyID)
	assert.Equal(t, primary.ID, *movedActivity.CompanyID)

	tags, err := env.tags.ListForEntity(env.ctx, "company", primary.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)
}

func TestCompanyLinkContactPrimarySwitch(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "First employer"})
	require.NoError(t, err)
	second, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Second employer"})
	require.NoError(t, err)
	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Mover"})
	require.NoError(t, err)

	require.NoError(t, env.companies.LinkContact(env.ctx, first.ID, contact.ID, "Dev", true))
	require.NoError(t, env.companies.LinkContact(env.ctx, second.ID, contact.ID, "Lead", true))

	moved, err := env.contacts.GetByID(env.ctx, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.PrimaryCompanyID)
	assert.Equal(t, second.ID, *moved.PrimaryCompanyID, "the newest primary link wins")
}

func TestCompanyBulkUpdate(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "One"})
	require.NoError(t, err)
	second, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Two"})
	require.NoError(t, err)

	newOwner := uuid.New()
	updated, err := env.companies.BulkUpdate(env.ctx, &domain.BulkUpdateRequest{
		IDs:     []uuid.UUID{first.ID, second.ID, uuid.New()},
		OwnerID: &newOwner,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated, "unknown IDs are skipped")

	got, err := env.companies.GetByID(env.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, newOwner, got.OwnerID)

	status := "active"
	_, err = env.companies.BulkUpdate(env.ctx, &domain.BulkUpdateRequest{
		IDs:    []uuid.UUID{first.ID},
		Status: &status,
	})
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestCompanyDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)

	company, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Phoenix"})
	require.NoError(t, err)

	require.NoError(t, env.companies.Delete(env.ctx, company.ID))
	_, err = env.companies.GetByID(env.ctx, company.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)

	restored, err := env.companies.Restore(env.ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, company.ID, restored.ID)
}
