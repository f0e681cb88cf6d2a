package repository

import (
	"context"
	"strings"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"gorm.io/gorm"
)

// TenantScope restricts a query to the request's org. A request
// without a tenant context yields org_id = uuid.Nil, which matches no
// rows rather than leaking across tenants.
func TenantScope(ctx context.Context) func(*gorm.DB) *gorm.DB {
	orgID := auth.OrgIDFromContext(ctx)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("org_id = ?", orgID)
	}
}

// TenantScopeColumn scopes by org through a qualified column, for
// joined queries where org_id would be ambiguous.
func TenantScopeColumn(ctx context.Context, column string) func(*gorm.DB) *gorm.DB {
	orgID := auth.OrgIDFromContext(ctx)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", orgID)
	}
}

// BuildOrderClause translates an API order_by value ("field" or
// "-field") into a SQL ORDER BY clause using the per-entity whitelist.
// Unknown fields fall back to created_at DESC.
func BuildOrderClause(orderBy string, fieldMap map[string]string) string {
	desc := false
	field := strings.TrimSpace(orderBy)
	if strings.HasPrefix(field, "-") {
		desc = true
		field = field[1:]
	}

	column, ok := fieldMap[field]
	if !ok {
		return "created_at DESC"
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}
