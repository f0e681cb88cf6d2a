package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newFilterTestRepo(t *testing.T) (*ContactRepository, context.Context) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.AllModels()...))

	orgID, userID := uuid.New(), uuid.New()
	ctx := auth.WithTenantContext(context.Background(), &auth.TenantContext{
		UserID: userID,
		OrgID:  orgID,
		Roles:  []domain.UserRoleType{domain.RoleOrgAdmin},
	})
	return NewContactRepository(db), ctx
}

func seedContact(t *testing.T, repo *ContactRepository, ctx context.Context, c domain.Contact) domain.Contact {
	t.Helper()
	tc, _ := auth.FromContext(ctx)
	c.OrgID = tc.OrgID
	c.OwnerID = tc.UserID
	if c.Status == "" {
		c.Status = domain.ContactStatusActive
	}
	require.NoError(t, repo.Create(ctx, &c))
	return c
}

func listFiltered(t *testing.T, repo *ContactRepository, ctx context.Context, logic domain.FilterLogic, clauses ...domain.FilterClause) []domain.Contact {
	t.Helper()
	contacts, _, err := repo.List(ctx, domain.ListParams{
		Filters:     clauses,
		FilterLogic: logic,
	})
	require.NoError(t, err)
	return contacts
}

func TestFilterEquals(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Anna", Email: "anna@a.example"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Bjorn", Email: "bjorn@b.example"})

	got := listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "email", Operator: domain.OpEquals, Value: "anna@a.example"})
	require.Len(t, got, 1)
	assert.Equal(t, "Anna", got[0].FirstName)
}

func TestFilterCompoundNameMatchesEitherColumn(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Storm", LastName: "Hansen"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Ida", LastName: "Stormoen"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Unrelated", LastName: "Person"})

	got := listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "name", Operator: domain.OpContains, Value: "storm"})
	assert.Len(t, got, 2, "a compound field matches any of its columns")
}

func TestFilterOrLogic(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Oslo", City: "Oslo"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Bergen", City: "Bergen"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Elsewhere", City: "Tromso"})

	and := listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "city", Operator: domain.OpEquals, Value: "Oslo"},
		domain.FilterClause{Field: "city", Operator: domain.OpEquals, Value: "Bergen"})
	assert.Empty(t, and, "contradictory conditions under AND match nothing")

	or := listFiltered(t, repo, ctx, domain.FilterLogicOr,
		domain.FilterClause{Field: "city", Operator: domain.OpEquals, Value: "Oslo"},
		domain.FilterClause{Field: "city", Operator: domain.OpEquals, Value: "Bergen"})
	assert.Len(t, or, 2)
}

func TestFilterNegativeOperatorsHoldUnderOr(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Keep", City: "Oslo"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Drop", City: "Oslo", Title: "Manager"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Also", City: "Bergen"})

	got := listFiltered(t, repo, ctx, domain.FilterLogicOr,
		domain.FilterClause{Field: "city", Operator: domain.OpEquals, Value: "Oslo"},
		domain.FilterClause{Field: "city", Operator: domain.OpEquals, Value: "Bergen"},
		domain.FilterClause{Field: "title", Operator: domain.OpNotContains, Value: "manager"})
	require.Len(t, got, 2, "exclusions apply on top of the OR group")
	for _, c := range got {
		assert.NotEqual(t, "Drop", c.FirstName)
	}
}

func TestFilterUnknownFieldAndBadValueDropped(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "One"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Two"})

	got := listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "no_such_column", Operator: domain.OpEquals, Value: "x"})
	assert.Len(t, got, 2, "unknown fields are ignored, not errored")

	got = listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "owner_id", Operator: domain.OpEquals, Value: "not-a-uuid"})
	assert.Len(t, got, 2, "a malformed uuid never reaches the query")

	got = listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "email", Operator: "regex", Value: ".*"})
	assert.Len(t, got, 2, "unknown operators are ignored")
}

func TestFilterIsEmpty(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "NoPhone"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "HasPhone", Phone: "12345678"})

	got := listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "phone", Operator: domain.OpIsEmpty})
	require.Len(t, got, 1)
	assert.Equal(t, "NoPhone", got[0].FirstName)

	got = listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "phone", Operator: domain.OpIsNotEmpty})
	require.Len(t, got, 1)
	assert.Equal(t, "HasPhone", got[0].FirstName)
}

func TestFilterInAndNotIn(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Active"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Gone", Status: domain.ContactStatusInactive})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Bounced", Status: domain.ContactStatusBounced})

	got := listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "status", Operator: domain.OpIn,
			Value: []interface{}{"active", "bounced"}})
	assert.Len(t, got, 2)

	got = listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "status", Operator: domain.OpNotIn,
			Value: []interface{}{"inactive"}})
	assert.Len(t, got, 2)

	got = listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "status", Operator: domain.OpIn, Value: []interface{}{}})
	assert.Len(t, got, 3, "an empty list is a malformed clause and is dropped")
}

func TestFilterStartsAndEndsWith(t *testing.T) {
	repo, ctx := newFilterTestRepo(t)
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Prefix", Email: "sales@acme.example"})
	seedContact(t, repo, ctx, domain.Contact{FirstName: "Suffix", Email: "info@sales.example"})

	got := listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "email", Operator: domain.OpStartsWith, Value: "sales"})
	require.Len(t, got, 1)
	assert.Equal(t, "Prefix", got[0].FirstName)

	got = listFiltered(t, repo, ctx, domain.FilterLogicAnd,
		domain.FilterClause{Field: "email", Operator: domain.OpEndsWith, Value: "sales.example"})
	require.Len(t, got, 1)
	assert.Equal(t, "Suffix", got[0].FirstName)
}
