package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLeadCreateAndGet(t *testing.T) {
	env := newTestEnv(t)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{
		FirstName:   "Nora",
		LastName:    "Berg",
		Email:       "nora@example.com",
		CompanyName: "Berg AS",
		Source:      "webform",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusNew, lead.Status)
	assert.Equal(t, env.orgID, lead.OrgID)
	assert.Equal(t, env.userID, lead.OwnerID, "owner defaults to the creator")

	got, err := env.leads.GetByID(env.ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nora Berg", got.FullName())
}

func TestLeadDisqualify(t *testing.T) {
	env := newTestEnv(t)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{FirstName: "Kim"})
	require.NoError(t, err)

	disqualified, err := env.leads.Disqualify(env.ctx, lead.ID, &domain.DisqualifyLeadRequest{Reason: "no budget"})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusUnqualified, disqualified.Status)
	assert.Equal(t, "no budget", disqualified.DisqualifiedReason)
	require.NotNil(t, disqualified.DisqualifiedAt)

	// Unqualified leads cannot be converted
	_, err = env.leads.Convert(env.ctx, lead.ID, &domain.ConvertLeadRequest{})
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestLeadConvertCreatesEverything(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{
		FirstName:   "Ola",
		LastName:    "Hansen",
		Email:       "ola@hansen.no",
		CompanyName: "Hansen Bygg",
	})
	require.NoError(t, err)

	result, err := env.leads.Convert(env.ctx, lead.ID, &domain.ConvertLeadRequest{
		CreateContact: true,
		CreateCompany: true,
		CreateDeal:    true,
		DealValue:     2500,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Contact)
	require.NotNil(t, result.Company)
	require.NotNil(t, result.Deal)
	assert.True(t, result.Contact.Created)
	assert.True(t, result.Company.Created)

	contact, err := env.contacts.GetByID(env.ctx, result.Contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "ola@hansen.no", contact.Email)
	assert.Equal(t, env.userID, contact.OwnerID, "owner defaults to the actor")
	require.NotNil(t, contact.ConvertedFromLeadID)
	assert.Equal(t, lead.ID, *contact.ConvertedFromLeadID)

	company, err := env.companies.GetByID(env.ctx, result.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hansen Bygg", company.Name)

	deal, err := env.deals.GetByID(env.ctx, result.Deal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusOpen, deal.Status)
	assert.InDelta(t, 2500.0, deal.Value, 0.01)
	require.NotNil(t, deal.ContactID)
	assert.Equal(t, contact.ID, *deal.ContactID)

	converted, err := env.leads.GetByID(env.ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusConverted, converted.Status)
	require.NotNil(t, converted.ConvertedContactID)
	assert.Equal(t, result.Contact.ID, *converted.ConvertedContactID)

	// Converting twice is rejected
	_, err = env.leads.Convert(env.ctx, lead.ID, &domain.ConvertLeadRequest{})
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestLeadConvertReusesExistingRows(t *testing.T) {
	env := newTestEnv(t)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Eva",
		LastName:  "Lund",
		Email:     "eva@lund.no",
	})
	require.NoError(t, err)
	company, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Lund Consulting"})
	require.NoError(t, err)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{
		FirstName:   "Eva",
		LastName:    "Lund",
		Email:       "eva@lund.no",
		CompanyName: "lund consulting",
	})
	require.NoError(t, err)

	result, err := env.leads.Convert(env.ctx, lead.ID, &domain.ConvertLeadRequest{
		CreateContact: true,
		CreateCompany: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Contact)
	assert.Equal(t, contact.ID, result.Contact.ID, "matching contact is linked, not duplicated")
	assert.False(t, result.Contact.Created)
	require.NotNil(t, result.Company)
	assert.Equal(t, company.ID, result.Company.ID, "company match is case-insensitive")
	assert.False(t, result.Company.Created)
	assert.Nil(t, result.Deal)
}

func TestLeadConvertWithoutDealNeedsNoPipeline(t *testing.T) {
	env := newTestEnv(t)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{FirstName: "Solo"})
	require.NoError(t, err)

	result, err := env.leads.Convert(env.ctx, lead.ID, &domain.ConvertLeadRequest{CreateContact: true})
	require.NoError(t, err)
	require.NotNil(t, result.Contact)
	assert.Nil(t, result.Company, "no company name, no company")
	assert.Nil(t, result.Deal)
}

func TestLeadConvertOwnerOverridesAndCompanyName(t *testing.T) {
	env := newTestEnv(t)

	contactOwner := uuid.New()
	companyOwner := uuid.New()
	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{
		FirstName:   "Ida",
		CompanyName: "Ida AS",
	})
	require.NoError(t, err)

	result, err := env.leads.Convert(env.ctx, lead.ID, &domain.ConvertLeadRequest{
		CreateContact:  true,
		CreateCompany:  true,
		CompanyName:    "Ida Holdings",
		ContactOwnerID: &contactOwner,
		CompanyOwnerID: &companyOwner,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Contact)
	require.NotNil(t, result.Company)
	assert.Equal(t, "Ida Holdings", result.Company.Name, "explicit company name wins over the lead's")

	contact, err := env.contacts.GetByID(env.ctx, result.Contact.ID)
	require.NoError(t, err)
	assert.Equal(t, contactOwner, contact.OwnerID)

	company, err := env.companies.GetByID(env.ctx, result.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, companyOwner, company.OwnerID)
}

func TestLeadConvertCompanyQuota(t *testing.T) {
	env := newTestEnv(t)

	// One-company limit so the conversion's company insert trips it.
	tightQuota := quota.NewClient(&config.QuotaConfig{
		Enabled: false,
		FallbackLimits: map[string]int64{
			"contacts":  1000,
			"companies": 1,
			"leads":     1000,
			"deals":     500,
		},
	}, zap.NewNop())
	historyRepo := repository.NewDealStageHistoryRepository(env.db)
	leads := NewLeadService(env.db, env.leadRepo, env.contactRepo, env.companyRepo, env.dealRepo,
		historyRepo, env.pipelineRepo, env.tags, env.forms, tightQuota, events.NopPublisher{}, env.audit, zap.NewNop())

	_, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "First AS"})
	require.NoError(t, err)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{
		FirstName:   "Over",
		CompanyName: "Second AS",
	})
	require.NoError(t, err)

	_, err = leads.Convert(env.ctx, lead.ID, &domain.ConvertLeadRequest{
		CreateContact: true,
		CreateCompany: true,
	})
	requireDomainCode(t, err, domain.CodeLimitExceeded)

	// Reusing an existing company stays within quota.
	reuse, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{
		FirstName:   "Within",
		CompanyName: "First AS",
	})
	require.NoError(t, err)
	result, err := leads.Convert(env.ctx, reuse.ID, &domain.ConvertLeadRequest{
		CreateContact: true,
		CreateCompany: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Company)
	assert.False(t, result.Company.Created)
}

func TestLeadBulkUpdate(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{FirstName: "One"})
	require.NoError(t, err)
	second, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{FirstName: "Two"})
	require.NoError(t, err)

	newOwner := uuid.New()
	status := "contacted"
	updated, err := env.leads.BulkUpdate(env.ctx, &domain.BulkUpdateRequest{
		IDs:     []uuid.UUID{first.ID, second.ID},
		OwnerID: &newOwner,
		Status:  &status,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	got, err := env.leads.GetByID(env.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, newOwner, got.OwnerID)
	assert.Equal(t, domain.LeadStatusContacted, got.Status)

	// Conversion has its own operation
	converted := "converted"
	_, err = env.leads.BulkUpdate(env.ctx, &domain.BulkUpdateRequest{
		IDs:    []uuid.UUID{first.ID},
		Status: &converted,
	})
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestLeadDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{FirstName: "Gone"})
	require.NoError(t, err)

	require.NoError(t, env.leads.Delete(env.ctx, lead.ID))
	_, err = env.leads.GetByID(env.ctx, lead.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)

	restored, err := env.leads.Restore(env.ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, restored.ID)
}

func TestLeadTenantIsolation(t *testing.T) {
	env := newTestEnv(t)

	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{FirstName: "Private"})
	require.NoError(t, err)

	_, err = env.leads.GetByID(env.otherOrgCtx(), lead.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)
	_, err = env.leads.Convert(env.otherOrgCtx(), lead.ID, &domain.ConvertLeadRequest{})
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}
