package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTagCreateDefaultsToAllScope(t *testing.T) {
	env := newTestEnv(t)

	tag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "vip", Color: "#ff0000"})
	require.NoError(t, err)
	assert.Equal(t, domain.TagEntityAll, tag.EntityType)
	assert.Equal(t, env.orgID, tag.OrgID)

	_, err = env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "vip"})
	requireDomainCode(t, err, domain.CodeDuplicateEntity)

	// The same name in another scope is a different tag
	_, err = env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "vip", EntityType: "deal"})
	require.NoError(t, err)
}

func TestTagAttachIdempotent(t *testing.T) {
	env := newTestEnv(t)

	tag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "hot"})
	require.NoError(t, err)
	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Tagged"})
	require.NoError(t, err)

	req := &domain.AttachTagRequest{EntityType: "contact", EntityID: contact.ID}
	require.NoError(t, env.tags.Attach(env.ctx, tag.ID, req))
	require.NoError(t, env.tags.Attach(env.ctx, tag.ID, req), "attaching twice is a no-op")

	tags, err := env.tags.ListForEntity(env.ctx, "contact", contact.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)

	require.NoError(t, env.tags.Detach(env.ctx, tag.ID, req))
	require.NoError(t, env.tags.Detach(env.ctx, tag.ID, req), "detaching an absent link is a no-op")

	tags, err = env.tags.ListForEntity(env.ctx, "contact", contact.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTagAttachScopeEnforced(t *testing.T) {
	env := newTestEnv(t)

	dealTag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "q4", EntityType: "deal"})
	require.NoError(t, err)
	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Wrong"})
	require.NoError(t, err)

	err = env.tags.Attach(env.ctx, dealTag.ID, &domain.AttachTagRequest{
		EntityType: "contact", EntityID: contact.ID,
	})
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestTagBulkAttach(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "one"})
	require.NoError(t, err)
	second, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "two"})
	require.NoError(t, err)

	a, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "A"})
	require.NoError(t, err)
	b, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "B"})
	require.NoError(t, err)

	err = env.tags.BulkAttach(env.ctx, &domain.BulkTagRequest{
		TagIDs:     []uuid.UUID{first.ID, second.ID},
		EntityType: "contact",
		EntityIDs:  []uuid.UUID{a.ID, b.ID},
	})
	require.NoError(t, err)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		tags, err := env.tags.ListForEntity(env.ctx, "contact", id)
		require.NoError(t, err)
		assert.Len(t, tags, 2)
	}

	// An unknown tag id fails the whole batch
	err = env.tags.BulkAttach(env.ctx, &domain.BulkTagRequest{
		TagIDs:     []uuid.UUID{first.ID, uuid.New()},
		EntityType: "contact",
		EntityIDs:  []uuid.UUID{a.ID},
	})
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}

func TestTagMergeRepointsAttachments(t *testing.T) {
	env := newTestEnv(t)

	target, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "keep"})
	require.NoError(t, err)
	source, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "fold"})
	require.NoError(t, err)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Merged"})
	require.NoError(t, err)
	other, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Overlap"})
	require.NoError(t, err)

	// contact carries only source; other carries both
	require.NoError(t, env.tags.Attach(env.ctx, source.ID, &domain.AttachTagRequest{EntityType: "contact", EntityID: contact.ID}))
	require.NoError(t, env.tags.Attach(env.ctx, source.ID, &domain.AttachTagRequest{EntityType: "contact", EntityID: other.ID}))
	require.NoError(t, env.tags.Attach(env.ctx, target.ID, &domain.AttachTagRequest{EntityType: "contact", EntityID: other.ID}))

	merged, err := env.tags.Merge(env.ctx, target.ID, &domain.MergeTagsRequest{SourceID: source.ID})
	require.NoError(t, err)
	assert.Equal(t, target.ID, merged.ID)

	tags, err := env.tags.ListForEntity(env.ctx, "contact", contact.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, target.ID, tags[0].ID)

	tags, err = env.tags.ListForEntity(env.ctx, "contact", other.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 1, "overlapping attachment does not duplicate")

	_, err = env.tags.GetByID(env.ctx, source.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}

func TestTagMergeGuards(t *testing.T) {
	env := newTestEnv(t)

	tag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "self"})
	require.NoError(t, err)
	_, err = env.tags.Merge(env.ctx, tag.ID, &domain.MergeTagsRequest{SourceID: tag.ID})
	requireDomainCode(t, err, domain.CodeInvalidOperation)

	dealTag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "deals", EntityType: "deal"})
	require.NoError(t, err)
	contactTag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "contacts", EntityType: "contact"})
	require.NoError(t, err)
	_, err = env.tags.Merge(env.ctx, dealTag.ID, &domain.MergeTagsRequest{SourceID: contactTag.ID})
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestTagReplaceJoinsCallerTransaction(t *testing.T) {
	env := newTestEnv(t)

	tag, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "scoped"})
	require.NoError(t, err)
	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Rolled back"})
	require.NoError(t, err)

	boom := errors.New("abort")
	err = env.db.Transaction(func(tx *gorm.DB) error {
		if _, err := env.tags.WithTx(tx).ReplaceEntityTags(env.ctx, domain.TagEntityContact, contact.ID, []uuid.UUID{tag.ID}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	tags, err := env.tags.ListForEntity(env.ctx, "contact", contact.ID)
	require.NoError(t, err)
	assert.Empty(t, tags, "links written in an aborted transaction do not persist")
}

func TestTagListScoped(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "everywhere"})
	require.NoError(t, err)
	_, err = env.tags.Create(env.ctx, &domain.CreateTagRequest{Name: "deal only", EntityType: "deal"})
	require.NoError(t, err)

	all, err := env.tags.List(env.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	contacts, err := env.tags.List(env.ctx, "contact")
	require.NoError(t, err)
	require.Len(t, contacts, 1, "scoped list returns matching and unscoped tags")
	assert.Equal(t, "everywhere", contacts[0].Name)

	_, err = env.tags.List(env.ctx, "bogus")
	requireDomainCode(t, err, domain.CodeValidationError)
}
