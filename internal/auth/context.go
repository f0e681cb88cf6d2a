package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
)

// TenantContext holds the resolved identity for a request. Every
// repository query scopes by OrgID; handlers and services read the
// actor fields for ownership checks and audit attribution.
type TenantContext struct {
	UserID      uuid.UUID
	OrgID       uuid.UUID
	DisplayName string
	Email       string
	Roles       []domain.UserRoleType
	Permissions []string
	PermVersion int64

	// Request metadata stamped by the middleware, carried through for
	// audit attribution.
	RequestIP        string
	RequestUserAgent string
}

type contextKey string

const tenantContextKey contextKey = "tenantContext"

// WithTenantContext adds the tenant context to the request context
func WithTenantContext(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// FromContext extracts the tenant context from the request context
func FromContext(ctx context.Context) (*TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey).(*TenantContext)
	return tc, ok
}

// MustFromContext extracts the tenant context or panics. Only call
// below the authentication middleware.
func MustFromContext(ctx context.Context) *TenantContext {
	tc, ok := FromContext(ctx)
	if !ok {
		panic("tenant context not found in context")
	}
	return tc
}

// OrgIDFromContext returns the request's org scope. A missing context
// yields uuid.Nil, which matches no rows.
func OrgIDFromContext(ctx context.Context) uuid.UUID {
	if tc, ok := FromContext(ctx); ok {
		return tc.OrgID
	}
	return uuid.Nil
}

// UserIDFromContext returns the acting user, or uuid.Nil when absent
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if tc, ok := FromContext(ctx); ok {
		return tc.UserID
	}
	return uuid.Nil
}

// HasRole checks if the user has a specific role
func (tc *TenantContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range tc.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the user has any of the specified roles
func (tc *TenantContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if tc.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds an admin-class role that
// bypasses row-level ownership checks.
func (tc *TenantContext) IsAdmin() bool {
	return tc.HasAnyRole(domain.AdminRoles...)
}

// HasPermission checks for an explicit "<resource>:<action>" grant
func (tc *TenantContext) HasPermission(permission string) bool {
	for _, p := range tc.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanModify authorizes a write against a concrete row: admin-class
// roles pass, the row owner passes, and an explicit resource:action
// permission passes.
func (tc *TenantContext) CanModify(resource, action string, ownerID uuid.UUID) bool {
	if tc.IsAdmin() {
		return true
	}
	if ownerID != uuid.Nil && ownerID == tc.UserID {
		return true
	}
	return tc.HasPermission(resource + ":" + action)
}

// Authorize enforces CanModify and returns the typed denial used by
// handlers.
func Authorize(ctx context.Context, resource, action string, ownerID uuid.UUID) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return domain.NewAuthenticationFailed("")
	}
	if !tc.CanModify(resource, action, ownerID) {
		return domain.NewPermissionDenied("not allowed to " + action + " this " + resource)
	}
	return nil
}
