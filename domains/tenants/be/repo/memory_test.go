package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
)

func TestMemoryRepositoryCreateTenant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRepository()

	acme := service.Tenant{ID: "t1", Slug: "acme", Tier: features.TierTrial, CreatedAt: time.Now()}
	_, err := r.CreateTenant(ctx, acme, service.TenantUser{UID: "u1", Role: service.RoleAdmin})
	require.NoError(t, err)

	m, err := r.GetMember(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "t1", m.TenantID)

	_, err = r.CreateTenant(ctx, service.Tenant{ID: "t2", Slug: "acme"}, service.TenantUser{UID: "u2"})
	require.ErrorIs(t, err, service.ErrSlugTaken)

	_, err = r.CreateTenant(ctx, service.Tenant{ID: "t3", Slug: "other"}, service.TenantUser{UID: "u1"})
	require.ErrorIs(t, err, service.ErrAlreadyMember)

	_, err = r.GetTenant(ctx, "t3")
	require.ErrorIs(t, err, service.ErrTenantNotFound)
}

func TestMemoryRepositoryEnsureIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRepository()

	_, created, err := r.EnsureTenant(ctx, service.Tenant{ID: "demo", Slug: "demo", Name: "first"})
	require.NoError(t, err)
	require.True(t, created)

	got, created, err := r.EnsureTenant(ctx, service.Tenant{ID: "demo", Slug: "demo", Name: "second"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "first", got.Name)

	_, _, err = r.EnsureTenant(ctx, service.Tenant{ID: "other", Slug: "demo"})
	require.ErrorIs(t, err, service.ErrSlugTaken)
}

func TestMemoryRepositoryUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRepository()
	_, _, err := r.EnsureTenant(ctx, service.Tenant{ID: "t1", Slug: "t1", Tier: features.TierTrial})
	require.NoError(t, err)

	updated, err := r.UpdateTier(ctx, "t1", features.TierEnterprise)
	require.NoError(t, err)
	require.Equal(t, features.TierEnterprise, updated.Tier)
	require.False(t, updated.UpdatedAt.IsZero())

	_, err = r.UpdateSettings(ctx, "missing", service.Settings{})
	require.ErrorIs(t, err, service.ErrTenantNotFound)
}

func TestMemoryRepositoryInvitations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRepository()
	_, _, err := r.EnsureTenant(ctx, service.Tenant{ID: "t1", Slug: "acme"})
	require.NoError(t, err)
	_, _, err = r.EnsureMember(ctx, service.TenantUser{UID: "u-inv", TenantID: "t1", Role: service.RoleViewer, Status: service.StatusInvited})
	require.NoError(t, err)

	_, err = r.CreateTenant(ctx, service.Tenant{ID: "t2", Slug: "own"}, service.TenantUser{UID: "u-inv", Role: service.RoleAdmin, Status: service.StatusActive})
	require.NoError(t, err)
	m, err := r.GetMember(ctx, "u-inv")
	require.NoError(t, err)
	require.Equal(t, "t2", m.TenantID)
	require.Equal(t, service.StatusActive, m.Status)

	_, _, err = r.EnsureMember(ctx, service.TenantUser{UID: "u-join", TenantID: "t1", Status: service.StatusInvited})
	require.NoError(t, err)
	m, err = r.ActivateMember(ctx, "u-join")
	require.NoError(t, err)
	require.Equal(t, service.StatusActive, m.Status)

	_, err = r.ActivateMember(ctx, "u-nobody")
	require.ErrorIs(t, err, service.ErrMemberNotFound)
}
