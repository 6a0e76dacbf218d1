/*
identity.go - Authenticated caller identity

PURPOSE:
  The verified identity every tenant-scoped operation runs as. Built by the
  token verifier, carried on the request context, read by handlers and the
  role guard.

ROLES:
  superadmin  Platform operator, manages organizations (no tenant)
  admin       Organization administrator
  manager     Approves leave
  teamlead    Approves leave
  employee    Default role

SEE ALSO:
  - token.go: Issues and verifies identities as JWTs
  - api/middleware.go: Puts the identity on the context
*/
package auth

import (
	"context"
	"fmt"
)

// Role determines what a user may do inside a tenant.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTeamLead   Role = "teamlead"
	RoleEmployee   Role = "employee"
)

// ParseRole validates a role name. Empty means employee.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleEmployee, nil
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleTeamLead, RoleEmployee:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanApproveLeave reports whether the role may transition leave requests.
func (r Role) CanApproveLeave() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleTeamLead
}

// Identity is a verified caller.
type Identity struct {
	UserID string
	Email  string
	Role   Role
	Tenant string // organization slug; empty for platform admins
	OrgID  string
}

// IsPlatformAdmin reports whether the identity belongs to no tenant.
func (id Identity) IsPlatformAdmin() bool {
	return id.Role == RoleSuperAdmin && id.Tenant == ""
}

// HasRole reports whether the identity holds any of roles.
func (id Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
