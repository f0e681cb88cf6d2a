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

func TestAuditTrailFollowsMutations(t *testing.T) {
	env := newTestEnv(t)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Audited"})
	require.NoError(t, err)
	name := "Renamed"
	_, err = env.contacts.Update(env.ctx, contact.ID, &domain.UpdateContactRequest{FirstName: &name})
	require.NoError(t, err)
	require.NoError(t, env.contacts.Delete(env.ctx, contact.ID))

	trail, err := env.audit.ListByEntity(env.ctx, "contact", contact.ID, 10)
	require.NoError(t, err)
	require.Len(t, trail, 3)

	actions := make([]domain.AuditAction, len(trail))
	for i, entry := range trail {
		actions[i] = entry.Action
		assert.Equal(t, env.userID, entry.ActorID)
		assert.Equal(t, env.orgID, entry.OrgID)
	}
	assert.Contains(t, actions, domain.AuditActionCreate)
	assert.Contains(t, actions, domain.AuditActionUpdate)
	assert.Contains(t, actions, domain.AuditActionDelete)

	// The trail is invisible to other tenants
	foreign, err := env.audit.ListByEntity(env.otherOrgCtx(), "contact", contact.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestAuditRecordJoinsCallerTransaction(t *testing.T) {
	env := newTestEnv(t)

	entityID := uuid.New()
	boom := errors.New("abort")
	err := env.db.Transaction(func(tx *gorm.DB) error {
		env.audit.WithTx(tx).Record(env.ctx, domain.AuditActionUpdate, "contact", entityID, "Rolled back", nil)
		return boom
	})
	require.ErrorIs(t, err, boom)

	trail, err := env.audit.ListByEntity(env.ctx, "contact", entityID, 10)
	require.NoError(t, err)
	assert.Empty(t, trail, "entries written in an aborted transaction do not persist")
}

func TestBuildDiff(t *testing.T) {
	type snapshot struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
		Note  string `json:"note,omitempty"`
	}

	diff := BuildDiff(
		snapshot{Name: "before", Value: 1, Note: "gone"},
		snapshot{Name: "after", Value: 1},
	)

	require.Contains(t, diff, "name")
	change, ok := diff["name"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "before", change["from"])
	assert.Equal(t, "after", change["to"])

	assert.NotContains(t, diff, "value", "unchanged fields are omitted")

	require.Contains(t, diff, "note", "fields dropped from the projection still diff")
	removed := diff["note"].(map[string]interface{})
	assert.Nil(t, removed["to"])
}
