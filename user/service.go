package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
)

const (
	// MinSearchLength is the shortest query Search accepts.
	MinSearchLength = 3
	// SearchLimit caps Search results.
	SearchLimit = 3
)

// CreateInput describes a new account.
type CreateInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	Role        auth.Role
	Department  string
	Designation string
	StartDate   *generic.TimePoint
}

// UpdateInput carries the editable profile fields. Nil fields are left
// unchanged. Email, password and organization are never editable here.
type UpdateInput struct {
	FirstName        *string
	LastName         *string
	Phone            *string
	Role             *auth.Role
	Department       *string
	Designation      *string
	EmploymentStatus *string
	StartDate        *generic.TimePoint
}

// Service implements account operations for one tenant.
type Service struct {
	repo  Repository
	orgID string
	now   func() time.Time
}

// NewService binds a service to a tenant's repository.
func NewService(repo Repository, orgID string) *Service {
	return &Service{repo: repo, orgID: orgID, now: time.Now}
}

// Create adds an account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = auth.RoleEmployee
	}
	if _, err := auth.ParseRole(string(role)); err != nil {
		return nil, generic.Invalid("role", "%v", err)
	}
	if role == auth.RoleSuperAdmin {
		return nil, generic.Invalid("role", "superadmin accounts cannot belong to an organization")
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &generic.ConflictError{Kind: "user", ExistingID: existing.ID, Message: "email already registered in this organization"}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := User{
		ID:               generic.NewID(),
		OrgID:            s.orgID,
		Email:            email,
		PasswordHash:     hash,
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Phone:            in.Phone,
		Role:             role,
		Active:           true,
		Department:       in.Department,
		Designation:      in.Designation,
		EmploymentStatus: "Active",
		StartDate:        in.StartDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate checks credentials. Unknown email, wrong password and an
// inactive account all fail with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, generic.ErrInvalidCredentials
	}
	if !u.Active {
		return nil, fmt.Errorf("%w: account is inactive", generic.ErrInvalidCredentials)
	}
	return u, nil
}

// Get returns a user or a NotFoundError.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &generic.NotFoundError{Kind: "user", ID: id}
	}
	return u, nil
}

// List returns every user of the tenant.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return generic.ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	return s.repo.UpdateUser(ctx, *u)
}

// ToggleActive flips the active flag and returns the updated user.
func (s *Service) ToggleActive(ctx context.Context, id string) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Active = !u.Active
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateUser(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update applies the non-nil fields of in to the user and returns it.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Role != nil {
		role, err := auth.ParseRole(string(*in.Role))
		if err != nil {
			return nil, generic.Invalid("role", "%v", err)
		}
		if role == auth.RoleSuperAdmin {
			return nil, generic.Invalid("role", "superadmin accounts cannot belong to an organization")
		}
		u.Role = role
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Department != nil {
		u.Department = strings.TrimSpace(*in.Department)
	}
	if in.Designation != nil {
		u.Designation = strings.TrimSpace(*in.Designation)
	}
	if in.EmploymentStatus != nil {
		status := strings.TrimSpace(*in.EmploymentStatus)
		if status == "" {
			return nil, generic.Invalid("employment_status", "cannot be empty")
		}
		u.EmploymentStatus = status
	}
	if in.StartDate != nil {
		d := *in.StartDate
		u.StartDate = &d
	}

	u.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateUser(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// Search finds notify targets by name or email.
func (s *Service) Search(ctx context.Context, query string) ([]User, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return nil, generic.Invalid("q", "provide at least %d characters to search", MinSearchLength)
	}
	return s.repo.SearchUsers(ctx, query, SearchLimit)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", generic.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", generic.Invalid("email", "must be a valid address")
	}
	return email, nil
}
