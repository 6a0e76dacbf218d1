/*
Package user manages the people inside one tenant.

PURPOSE:
  Tenant-scoped accounts: creation with hashed credentials, authentication,
  activation toggling and the lookups the leave workflow needs (notify-list
  validation, active employee listing).

  Platform superadmins share the User shape but live in the master store
  behind PlatformAdminStore.

SEE ALSO:
  - auth/password.go: bcrypt hashing
  - store/sqlite/users.go: Repository implementation
*/
package user

import (
	"context"
	"time"

	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
)

// User is an account inside one tenant.
type User struct {
	ID               string
	OrgID            string
	Email            string
	PasswordHash     string
	FirstName        string
	LastName         string
	Phone            string
	Role             auth.Role
	Active           bool
	Department       string
	Designation      string
	EmploymentStatus string
	StartDate        *generic.TimePoint
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Repository persists users of one tenant. Getters return nil, nil when the
// user does not exist.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, u User) error
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)

	// CountUsers returns how many of ids name existing users.
	CountUsers(ctx context.Context, ids []string) (int, error)

	// ActiveUserIDs lists every active user.
	ActiveUserIDs(ctx context.Context) ([]string, error)
}

// PlatformAdminStore holds superadmin accounts in the master store.
type PlatformAdminStore interface {
	GetPlatformAdmin(ctx context.Context, email string) (*User, error)
	SavePlatformAdmin(ctx context.Context, u User) error
}
