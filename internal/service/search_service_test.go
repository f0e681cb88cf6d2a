package service

import (
	"testing"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchQueryTooShort(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.search.Search(env.ctx, " a ", 10)
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestSearchFansOutAcrossEntities(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{
		FirstName: "Nordmann", Email: "nordmann@example.com",
	})
	require.NoError(t, err)
	company, err := env.companies.Create(env.ctx, &domain.CreateCompanyRequest{Name: "Nordmann Industri"})
	require.NoError(t, err)
	lead, err := env.leads.Create(env.ctx, &domain.CreateLeadRequest{
		FirstName: "Kari", CompanyName: "Nordmann Bygg",
	})
	require.NoError(t, err)
	deal, err := env.deals.Create(env.ctx, &domain.CreateDealRequest{Name: "Nordmann renewal", Value: 100})
	require.NoError(t, err)
	_, err = env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Unrelated"})
	require.NoError(t, err)

	results, err := env.search.Search(env.ctx, "nordmann", 10)
	require.NoError(t, err)

	require.Len(t, results.Contacts, 1)
	assert.Equal(t, contact.ID, results.Contacts[0].ID)
	assert.Equal(t, "contact", results.Contacts[0].EntityType)

	require.Len(t, results.Companies, 1)
	assert.Equal(t, company.ID, results.Companies[0].ID)

	require.Len(t, results.Leads, 1)
	assert.Equal(t, lead.ID, results.Leads[0].ID)

	require.Len(t, results.Deals, 1)
	assert.Equal(t, deal.ID, results.Deals[0].ID)
}

func TestSearchTenantIsolation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Hidden Treasure"})
	require.NoError(t, err)

	results, err := env.search.Search(env.otherOrgCtx(), "treasure", 10)
	require.NoError(t, err)
	assert.Empty(t, results.Contacts)
	assert.Empty(t, results.Companies)
	assert.Empty(t, results.Leads)
	assert.Empty(t, results.Deals)
}
