package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrgIDFromContextDefaultsToNil(t *testing.T) {
	assert.Equal(t, uuid.Nil, OrgIDFromContext(context.Background()))
	assert.Equal(t, uuid.Nil, UserIDFromContext(context.Background()))

	orgID := uuid.New()
	ctx := WithTenantContext(context.Background(), &TenantContext{OrgID: orgID})
	assert.Equal(t, orgID, OrgIDFromContext(ctx))
}

func TestCanModify(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name    string
		tc      TenantContext
		ownerID uuid.UUID
		want    bool
	}{
		{
			name:    "admin role bypasses ownership",
			tc:      TenantContext{UserID: stranger, Roles: []domain.UserRoleType{domain.RoleOrgAdmin}},
			ownerID: owner,
			want:    true,
		},
		{
			name:    "manager counts as admin-class",
			tc:      TenantContext{UserID: stranger, Roles: []domain.UserRoleType{domain.RoleManager}},
			ownerID: owner,
			want:    true,
		},
		{
			name:    "owner passes without roles",
			tc:      TenantContext{UserID: owner, Roles: []domain.UserRoleType{domain.RoleMember}},
			ownerID: owner,
			want:    true,
		},
		{
			name: "explicit permission passes",
			tc: TenantContext{
				UserID:      stranger,
				Roles:       []domain.UserRoleType{domain.RoleMember},
				Permissions: []string{"contacts:update"},
			},
			ownerID: owner,
			want:    true,
		},
		{
			name:    "member without grant is denied",
			tc:      TenantContext{UserID: stranger, Roles: []domain.UserRoleType{domain.RoleMember}},
			ownerID: owner,
			want:    false,
		},
		{
			name:    "nil owner does not grant by ownership",
			tc:      TenantContext{UserID: uuid.Nil, Roles: []domain.UserRoleType{domain.RoleViewer}},
			ownerID: uuid.Nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tc.CanModify("contacts", "update", tt.ownerID))
		})
	}
}

func TestAuthorize(t *testing.T) {
	owner := uuid.New()

	err := Authorize(context.Background(), "contacts", "update", owner)
	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeAuthenticationFailed, domainErr.Code)

	ctx := WithTenantContext(context.Background(), &TenantContext{
		UserID: uuid.New(),
		Roles:  []domain.UserRoleType{domain.RoleMember},
	})
	err = Authorize(ctx, "contacts", "update", owner)
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodePermissionDenied, domainErr.Code)

	assert.NoError(t, Authorize(ctx, "contacts", "update", UserIDFromContext(ctx)))
}

func TestPermVersionStoreNilSafe(t *testing.T) {
	var store *PermVersionStore

	assert.False(t, store.IsStale(context.Background(), uuid.New(), 5))
	require.NoError(t, store.Bump(context.Background(), uuid.New(), 5))

	current, err := store.Current(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, current)

	// A store without redis behaves the same
	disabled := NewPermVersionStore(nil, 0)
	assert.False(t, disabled.IsStale(context.Background(), uuid.New(), 5))
}
