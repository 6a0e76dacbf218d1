package tenant

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/user"
)

const defaultPlan = "free"

// OnboardInput creates an organization and its first administrator. The
// administrator logs in with ContactEmail. A random password is generated
// when AdminPassword is empty.
type OnboardInput struct {
	Name           string
	Slug           string
	ContactEmail   string
	Phone          string
	Plan           string
	AdminFirstName string
	AdminLastName  string
	AdminPassword  string
}

// OnboardResult is returned once. GeneratedPassword is empty when the
// caller supplied one.
type OnboardResult struct {
	Organization      Organization
	Admin             user.User
	GeneratedPassword string
}

// DetailsInput updates an organization. The slug cannot change.
type DetailsInput struct {
	Name         string
	ContactEmail string
	Phone        string
	Plan         string
}

// Onboarder manages the organization lifecycle in the master store.
type Onboarder struct {
	dir      Directory
	registry *Registry
	now      func() time.Time
	logger   *slog.Logger
}

func NewOnboarder(dir Directory, registry *Registry, logger *slog.Logger) *Onboarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Onboarder{dir: dir, registry: registry, now: time.Now, logger: logger.With("component", "onboarding")}
}

// Onboard creates the organization, provisions its database and creates
// the first admin user.
func (o *Onboarder) Onboard(ctx context.Context, in OnboardInput) (*OnboardResult, error) {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !auth.ValidSlug(slug) {
		return nil, generic.Invalid("slug", "must be lowercase letters, digits and single hyphens")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, generic.Invalid("name", "is required")
	}
	if strings.TrimSpace(in.ContactEmail) == "" {
		return nil, generic.Invalid("contact_email", "is required")
	}

	existing, err := o.dir.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &generic.ConflictError{Kind: "organization", ExistingID: existing.ID, Message: "slug already in use"}
	}

	plan := strings.TrimSpace(in.Plan)
	if plan == "" {
		plan = defaultPlan
	}
	now := o.now().UTC()
	org := Organization{
		ID:           generic.NewID(),
		Name:         name,
		Slug:         slug,
		ContactEmail: strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		Phone:        in.Phone,
		Active:       true,
		Subscription: Subscription{
			Plan:      plan,
			Status:    "active",
			StartDate: now,
			EndDate:   now.AddDate(1, 0, 0),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.dir.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}

	h, err := o.registry.Resolve(ctx, slug)
	if err != nil {
		return nil, err
	}

	password := in.AdminPassword
	generated := ""
	if password == "" {
		if generated, err = randomPassword(); err != nil {
			return nil, err
		}
		password = generated
	}

	admin, err := h.Users.Create(ctx, user.CreateInput{
		Email:     org.ContactEmail,
		Password:  password,
		FirstName: in.AdminFirstName,
		LastName:  in.AdminLastName,
		Phone:     in.Phone,
		Role:      auth.RoleAdmin,
	})
	if err != nil {
		// Master and tenant stores are not one transaction. The organization
		// stays; the admin can be created again through the users API.
		o.logger.Error("admin user creation failed", "org", org.ID, "slug", slug, "error", err)
		return nil, fmt.Errorf("organization %s created but admin user failed: %w", slug, err)
	}

	o.logger.Info("organization onboarded", "org", org.ID, "slug", slug, "plan", plan)
	return &OnboardResult{Organization: org, Admin: *admin, GeneratedPassword: generated}, nil
}

// Get returns an organization by slug or a NotFoundError.
func (o *Onboarder) Get(ctx context.Context, slug string) (*Organization, error) {
	org, err := o.dir.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, &generic.NotFoundError{Kind: "organization", ID: slug}
	}
	return org, nil
}

func (o *Onboarder) List(ctx context.Context) ([]Organization, error) {
	return o.dir.ListOrganizations(ctx)
}

// UpdateDetails changes the editable fields of an organization.
func (o *Onboarder) UpdateDetails(ctx context.Context, slug string, in DetailsInput) (*Organization, error) {
	org, err := o.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		org.Name = v
	}
	if v := strings.TrimSpace(in.ContactEmail); v != "" {
		org.ContactEmail = strings.ToLower(v)
	}
	if in.Phone != "" {
		org.Phone = in.Phone
	}
	if v := strings.TrimSpace(in.Plan); v != "" {
		org.Subscription.Plan = v
	}
	org.UpdatedAt = o.now().UTC()
	if err := o.dir.UpdateOrganization(ctx, *org); err != nil {
		return nil, err
	}
	return org, nil
}

// Deactivate blocks every tenant operation for the organization. Cached
// handles stay in the registry; Resolve refuses them.
func (o *Onboarder) Deactivate(ctx context.Context, slug string) (*Organization, error) {
	return o.setActive(ctx, slug, false)
}

func (o *Onboarder) Activate(ctx context.Context, slug string) (*Organization, error) {
	return o.setActive(ctx, slug, true)
}

func (o *Onboarder) setActive(ctx context.Context, slug string, active bool) (*Organization, error) {
	org, err := o.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if org.Active == active {
		return org, nil
	}
	org.Active = active
	org.UpdatedAt = o.now().UTC()
	if err := o.dir.UpdateOrganization(ctx, *org); err != nil {
		return nil, err
	}
	o.logger.Info("organization active flag changed", "org", org.ID, "slug", slug, "active", active)
	return org, nil
}

func randomPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", errors.New("failed to generate password")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
