package models

import (
	"strings"

	"github.com/google/uuid"
)

// Role is a named permission tier. Group optionally names the permission
// group the role maps to; when empty the role name itself is used.
type Role struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"size:45;uniqueIndex;not null" json:"name"`
	Group *string   `gorm:"size:45" json:"group"`
}

// Kind maps the role onto the capability enum.
func (r *Role) Kind() RoleKind {
	if r.Group != nil && *r.Group != "" {
		return ParseRoleKind(*r.Group)
	}
	return ParseRoleKind(r.Name)
}

type RoleKind string

const (
	RoleAdmin    RoleKind = "admin"
	RoleSeller   RoleKind = "seller"
	RoleCustomer RoleKind = "customer"
)

// ParseRoleKind is lenient: unknown names fall back to customer.
func ParseRoleKind(s string) RoleKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "administrator":
		return RoleAdmin
	case "seller", "vendor":
		return RoleSeller
	default:
		return RoleCustomer
	}
}

type Action string

const (
	ActionCatalogRead   Action = "catalog:read"
	ActionCatalogWrite  Action = "catalog:write"
	ActionRolesManage   Action = "roles:manage"
	ActionOrdersPlace   Action = "orders:place"
	ActionOrdersReadOwn Action = "orders:read-own"
	ActionProfileManage Action = "profile:manage"
)

var capabilities = map[RoleKind]map[Action]bool{
	RoleCustomer: {
		ActionCatalogRead:   true,
		ActionOrdersPlace:   true,
		ActionOrdersReadOwn: true,
		ActionProfileManage: true,
	},
	RoleSeller: {
		ActionCatalogRead:   true,
		ActionOrdersPlace:   true,
		ActionOrdersReadOwn: true,
		ActionProfileManage: true,
	},
}

// Can reports whether a role kind is allowed to perform action.
func Can(kind RoleKind, action Action) bool {
	if kind == RoleAdmin {
		return true
	}
	return capabilities[kind][action]
}

// DefaultRoleNames are seeded on startup.
var DefaultRoleNames = []string{string(RoleAdmin), string(RoleSeller), string(RoleCustomer)}
