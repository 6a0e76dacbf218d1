package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/store/sqlite"
	"github.com/warp/hrms/user"
)

func newService(t *testing.T) *user.Service {
	t.Helper()
	store, err := sqlite.NewTenant(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return user.NewService(store, "org-1")
}

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	svc := newService(t)

	u, err := svc.Create(context.Background(), user.CreateInput{
		Email:     "  Alice@Acme.COM ",
		Password:  "secret123",
		FirstName: " Alice ",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@acme.com", u.Email)
	assert.Equal(t, auth.RoleEmployee, u.Role)
	assert.True(t, u.Active)
	assert.Equal(t, "Alice Smith", u.FullName())
	assert.NotEqual(t, "secret123", u.PasswordHash)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Create(ctx, user.CreateInput{Email: "alice@acme.com", Password: "secret123"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   user.CreateInput
		want error
	}{
		{"duplicate email", user.CreateInput{Email: "ALICE@acme.com", Password: "secret123"}, generic.ErrConflict},
		{"bad email", user.CreateInput{Email: "not-an-email", Password: "secret123"}, generic.ErrValidation},
		{"missing email", user.CreateInput{Password: "secret123"}, generic.ErrValidation},
		{"superadmin in tenant", user.CreateInput{Email: "root@acme.com", Password: "secret123", Role: auth.RoleSuperAdmin}, generic.ErrValidation},
		{"unknown role", user.CreateInput{Email: "x@acme.com", Password: "secret123", Role: "owner"}, generic.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	u, err := svc.Create(ctx, user.CreateInput{Email: "alice@acme.com", Password: "secret123"})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "Alice@acme.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@acme.com", "wrong-password")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@acme.com", "secret123")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	// Deactivated accounts cannot log in
	_, err = svc.ToggleActive(ctx, u.ID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "alice@acme.com", "secret123")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	u, err := svc.Create(ctx, user.CreateInput{Email: "alice@acme.com", Password: "secret123"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong-password", "newsecret1"), generic.ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "secret123", "newsecret1"))

	_, err = svc.Authenticate(ctx, "alice@acme.com", "newsecret1")
	assert.NoError(t, err)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for _, email := range []string{"ann1@acme.com", "ann2@acme.com", "ann3@acme.com", "ann4@acme.com", "bob@acme.com"} {
		_, err := svc.Create(ctx, user.CreateInput{Email: email, Password: "secret123", FirstName: "Ann"})
		require.NoError(t, err)
	}

	_, err := svc.Search(ctx, "an")
	assert.ErrorIs(t, err, generic.ErrValidation)

	found, err := svc.Search(ctx, "ann")
	require.NoError(t, err)
	assert.Len(t, found, user.SearchLimit)

	found, err = svc.Search(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob@acme.com", found[0].Email)
}

func TestGet_NotFound(t *testing.T) {
	svc := newService(t)
	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestSearch_WildcardsMatchLiterally(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Create(ctx, user.CreateInput{Email: "ann@acme.com", Password: "secret123", FirstName: "Ann"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, user.CreateInput{Email: "promo@acme.com", Password: "secret123", FirstName: "100%_Sales"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "___")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = svc.Search(ctx, "%%%")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = svc.Search(ctx, "0%_s")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "promo@acme.com", found[0].Email)
}

func TestUpdate_EditsProfileButNotCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	u, err := svc.Create(ctx, user.CreateInput{Email: "alice@acme.com", Password: "secret123", FirstName: "Alice"})
	require.NoError(t, err)

	role := auth.RoleManager
	dept, status := " Engineering ", "On Leave"
	start := generic.NewTimePoint(2024, time.February, 1)
	updated, err := svc.Update(ctx, u.ID, user.UpdateInput{
		Role:             &role,
		Department:       &dept,
		EmploymentStatus: &status,
		StartDate:        &start,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManager, updated.Role)
	assert.Equal(t, "Engineering", updated.Department)
	assert.Equal(t, "On Leave", updated.EmploymentStatus)
	assert.Equal(t, "2024-02-01", updated.StartDate.String())

	// Untouched fields survive
	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, "alice@acme.com", got.Email)
	assert.Equal(t, "org-1", got.OrgID)
	assert.Equal(t, auth.RoleManager, got.Role)
	assert.True(t, got.Role.CanApproveLeave())

	_, err = svc.Authenticate(ctx, "alice@acme.com", "secret123")
	assert.NoError(t, err)
}

func TestUpdate_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	u, err := svc.Create(ctx, user.CreateInput{Email: "alice@acme.com", Password: "secret123"})
	require.NoError(t, err)

	super, unknown := auth.RoleSuperAdmin, auth.Role("owner")
	blank := "  "

	tests := []struct {
		name string
		id   string
		in   user.UpdateInput
		want error
	}{
		{"superadmin role", u.ID, user.UpdateInput{Role: &super}, generic.ErrValidation},
		{"unknown role", u.ID, user.UpdateInput{Role: &unknown}, generic.ErrValidation},
		{"blank employment status", u.ID, user.UpdateInput{EmploymentStatus: &blank}, generic.ErrValidation},
		{"missing user", "ghost", user.UpdateInput{}, generic.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.id, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
