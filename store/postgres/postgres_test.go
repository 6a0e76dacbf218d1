package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/tenant"
	"github.com/warp/hrms/user"
)

// connect opens the database named by MASTER_DATABASE_URL, skipping the test
// when it is unset. Rows written under prefix are removed on cleanup.
func connect(t *testing.T) (*MasterStore, string) {
	t.Helper()
	url := os.Getenv("MASTER_DATABASE_URL")
	if url == "" {
		t.Skip("MASTER_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, url)
	require.NoError(t, err)

	prefix := "t" + strings.ReplaceAll(generic.NewID(), "-", "")[:10]
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM organizations WHERE slug LIKE $1`, prefix+"%")
		_, _ = s.pool.Exec(ctx, `DELETE FROM platform_admins WHERE email LIKE $1`, prefix+"%")
		s.Close()
	})
	return s, prefix
}

func organization(prefix, suffix string, now time.Time) tenant.Organization {
	return tenant.Organization{
		ID:           generic.NewID(),
		Name:         prefix + " " + suffix,
		Slug:         prefix + suffix,
		ContactEmail: "admin@" + suffix + ".com",
		Active:       true,
		Subscription: tenant.Subscription{Plan: "free", Status: "active", StartDate: now},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestOrganizations_CreateGetListUpdate(t *testing.T) {
	ctx := context.Background()
	s, prefix := connect(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acme := organization(prefix, "acme", now)
	globex := organization(prefix, "globex", now)
	require.NoError(t, s.CreateOrganization(ctx, acme))
	require.NoError(t, s.CreateOrganization(ctx, globex))

	got, err := s.GetOrganizationBySlug(ctx, acme.Slug)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, acme.ID, got.ID)
	assert.Equal(t, "free", got.Subscription.Plan)
	assert.True(t, got.Subscription.StartDate.Equal(now))

	byID, err := s.GetOrganization(ctx, globex.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, globex.Slug, byID.Slug)

	missing, err := s.GetOrganizationBySlug(ctx, prefix+"ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.ListOrganizations(ctx)
	require.NoError(t, err)
	var ours []string
	for _, o := range all {
		if strings.HasPrefix(o.Slug, prefix) {
			ours = append(ours, o.Slug)
		}
	}
	assert.Equal(t, []string{acme.Slug, globex.Slug}, ours)

	acme.Active = false
	acme.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.UpdateOrganization(ctx, acme))
	got, err = s.GetOrganizationBySlug(ctx, acme.Slug)
	require.NoError(t, err)
	assert.False(t, got.Active)

	ghost := organization(prefix, "ghost", now)
	assert.ErrorIs(t, s.UpdateOrganization(ctx, ghost), generic.ErrNotFound)
}

func TestOrganizations_DuplicateSlugConflicts(t *testing.T) {
	ctx := context.Background()
	s, prefix := connect(t)
	now := time.Now().UTC()

	require.NoError(t, s.CreateOrganization(ctx, organization(prefix, "acme", now)))

	dup := organization(prefix, "acme", now)
	dup.Name = prefix + " other"
	assert.ErrorIs(t, s.CreateOrganization(ctx, dup), generic.ErrConflict)
}

func TestPlatformAdmin_Upsert(t *testing.T) {
	ctx := context.Background()
	s, prefix := connect(t)
	email := prefix + "root@platform.io"

	missing, err := s.GetPlatformAdmin(ctx, email)
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now().UTC()
	admin := user.User{ID: generic.NewID(), Email: email, PasswordHash: "h1", Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.SavePlatformAdmin(ctx, admin))
	admin.PasswordHash = "h2"
	require.NoError(t, s.SavePlatformAdmin(ctx, admin))

	got, err := s.GetPlatformAdmin(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, admin.ID, got.ID)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, auth.RoleSuperAdmin, got.Role)
}
