/*
Package tenant routes every request to its organization's isolated storage.

PURPOSE:
  One Organization record per customer lives in the shared master store.
  Each organization owns a separate database, reached only through a Handle
  resolved by the Registry. Nothing outside this package opens a tenant
  database.

KEY CONCEPTS:
  - Organization: Master record; Slug is the tenant key
  - Directory:    Master-store access to organizations
  - Provisioner:  Opens one tenant's database with every schema registered
  - Handle:       Typed services bound to exactly one tenant database
  - Registry:     Lazily provisions and caches Handles, one per slug

SEE ALSO:
  - registry.go: Resolution and caching
  - onboarding.go: Organization creation with its first admin
  - store/sqlite/provisioner.go: File-per-tenant provisioning
*/
package tenant

import (
	"context"
	"time"

	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/holiday"
	"github.com/warp/hrms/leave"
	"github.com/warp/hrms/user"
)

// Subscription is billing metadata. Informational only.
type Subscription struct {
	Plan      string
	Status    string
	StartDate time.Time
	EndDate   time.Time
}

// Organization is a tenant's master record. Organizations are deactivated,
// never deleted.
type Organization struct {
	ID           string
	Name         string
	Slug         string
	ContactEmail string
	Phone        string
	Active       bool
	Subscription Subscription
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Directory is the master store's view of organizations. Lookups return
// nil, nil when the organization does not exist. CreateOrganization fails
// with generic.ErrConflict on a duplicate slug or name.
type Directory interface {
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	CreateOrganization(ctx context.Context, o Organization) error
	UpdateOrganization(ctx context.Context, o Organization) error
}

// Storage is everything one tenant database provides.
type Storage interface {
	leave.Store
	user.Repository
	holiday.Store
	attendance.Store
	Close() error
}

// Provisioner opens the isolated database for slug, creating it and
// registering every tenant schema on first use.
type Provisioner interface {
	Open(ctx context.Context, slug string) (Storage, error)
}
