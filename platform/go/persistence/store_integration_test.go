package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostgresStores(t *testing.T) {
	t.Parallel()

	_, db := startPostgres(t)
	ctx := context.Background()

	tenants, err := NewTenantStore(db)
	require.NoError(t, err)
	docs, err := NewDocumentStore(db)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	acme, err := tenants.CreateWithOwner(ctx,
		TenantRecord{TenantID: "t-acme", Name: "Acme", Slug: "acme", OwnerID: "u-1", Tier: "starter", Settings: json.RawMessage(`{"currency":"USD"}`)},
		MemberRecord{UserID: "u-1", Email: "ops@acme.test", Role: "admin", Status: "active"},
	)
	require.NoError(t, err)
	require.Equal(t, "starter", acme.Tier)

	_, err = tenants.CreateWithOwner(ctx,
		TenantRecord{TenantID: "t-other", Name: "Acme 2", Slug: "acme", OwnerID: "u-2", Tier: "trial"},
		MemberRecord{UserID: "u-2", Role: "admin", Status: "active"},
	)
	require.ErrorIs(t, err, ErrSlugTaken)

	_, err = tenants.CreateWithOwner(ctx,
		TenantRecord{TenantID: "t-beta", Name: "Beta", Slug: "beta", OwnerID: "u-1", Tier: "trial"},
		MemberRecord{UserID: "u-1", Role: "admin", Status: "active"},
	)
	require.ErrorIs(t, err, ErrMemberExists)
	_, err = tenants.GetTenant(ctx, "t-beta")
	require.ErrorIs(t, err, ErrNotFound, "tenant insert must roll back with the membership")

	taken, err := tenants.SlugExists(ctx, "acme")
	require.NoError(t, err)
	require.True(t, taken)

	t.Run("concurrent ensure creates once", func(t *testing.T) {
		var wg sync.WaitGroup
		created := make(chan bool, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := tenants.EnsureTenant(ctx, TenantRecord{TenantID: "demo", Name: "Demo", Slug: "demo", OwnerID: "system", Tier: "trial", IsDemo: true})
				require.NoError(t, err)
				created <- ok
			}()
		}
		wg.Wait()
		close(created)

		count := 0
		for ok := range created {
			if ok {
				count++
			}
		}
		require.Equal(t, 1, count)

		m, ok, err := tenants.EnsureMember(ctx, MemberRecord{UserID: "u-demo", TenantID: "demo", Role: "admin", Status: "active"})
		require.NoError(t, err)
		require.True(t, ok)
		again, ok, err := tenants.EnsureMember(ctx, MemberRecord{UserID: "u-demo", TenantID: "demo", Role: "viewer", Status: "active"})
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, m.Role, again.Role)
	})

	t.Run("documents are tenant scoped", func(t *testing.T) {
		_, err := tenants.CreateWithOwner(ctx,
			TenantRecord{TenantID: "t-beta", Name: "Beta", Slug: "beta", OwnerID: "u-3", Tier: "trial"},
			MemberRecord{UserID: "u-3", Role: "admin", Status: "active"},
		)
		require.NoError(t, err)

		for _, rec := range []DocumentRecord{
			{TenantID: "t-acme", Collection: "loads", ID: "l-1", Data: json.RawMessage(`{"name":"Chicago run","status":"booked"}`), CreatedAt: now, UpdatedAt: now},
			{TenantID: "t-beta", Collection: "loads", ID: "l-2", Data: json.RawMessage(`{"name":"Chicago run","status":"quote"}`), CreatedAt: now, UpdatedAt: now},
		} {
			_, err := docs.Insert(ctx, rec)
			require.NoError(t, err)
		}

		_, err = docs.Insert(ctx, DocumentRecord{TenantID: "t-acme", Collection: "loads", ID: "l-1", CreatedAt: now, UpdatedAt: now})
		require.ErrorIs(t, err, ErrConflict)

		list, err := docs.List(ctx, "t-acme", "loads", DocumentQuery{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "l-1", list[0].ID)

		booked, err := docs.List(ctx, "t-acme", "loads", DocumentQuery{Field: "status", Value: "booked"})
		require.NoError(t, err)
		require.Len(t, booked, 1)

		_, err = docs.Get(ctx, "t-acme", "loads", "l-2")
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, docs.Delete(ctx, "t-acme", "loads", "l-2"), ErrNotFound)

		_, err = docs.Mutate(ctx, "t-acme", "loads", "l-2", func(r DocumentRecord) (DocumentRecord, error) { return r, nil })
		require.ErrorIs(t, err, ErrNotFound)

		updated, err := docs.Mutate(ctx, "t-acme", "loads", "l-1", func(r DocumentRecord) (DocumentRecord, error) {
			r.Data = json.RawMessage(`{"name":"Chicago run","status":"dispatched"}`)
			r.UpdatedAt = now.Add(time.Minute)
			return r, nil
		})
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"Chicago run","status":"dispatched"}`, string(updated.Data))

		has, err := docs.Exists(ctx, "t-beta", "customers", "loads")
		require.NoError(t, err)
		require.True(t, has)
		has, err = docs.Exists(ctx, "t-beta", "customers")
		require.NoError(t, err)
		require.False(t, has)

		_, err = docs.List(ctx, "", "loads", DocumentQuery{})
		require.ErrorIs(t, err, ErrTenantRequired)
	})

	t.Run("invitations", func(t *testing.T) {
		_, created, err := tenants.EnsureMember(ctx, MemberRecord{UserID: "u-invited", TenantID: "t-acme", Role: "viewer", Status: "invited"})
		require.NoError(t, err)
		require.True(t, created)

		gamma, err := tenants.CreateWithOwner(ctx,
			TenantRecord{TenantID: "t-gamma", Name: "Gamma", Slug: "gamma", OwnerID: "u-invited", Tier: "trial"},
			MemberRecord{UserID: "u-invited", Role: "admin", Status: "active"},
		)
		require.NoError(t, err)
		m, err := tenants.GetMember(ctx, "u-invited")
		require.NoError(t, err)
		require.Equal(t, gamma.TenantID, m.TenantID)
		require.Equal(t, "active", m.Status)
		require.Equal(t, "admin", m.Role)

		_, _, err = tenants.EnsureMember(ctx, MemberRecord{UserID: "u-joining", TenantID: "t-acme", Role: "dispatcher", Status: "invited"})
		require.NoError(t, err)
		m, err = tenants.ActivateMember(ctx, "u-joining")
		require.NoError(t, err)
		require.Equal(t, "active", m.Status)
		require.Equal(t, "t-acme", m.TenantID)

		_, err = tenants.ActivateMember(ctx, "u-nobody")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("settings and tier updates", func(t *testing.T) {
		rec, err := tenants.UpdateTier(ctx, "t-acme", "professional")
		require.NoError(t, err)
		require.Equal(t, "professional", rec.Tier)

		rec, err = tenants.UpdateSettings(ctx, "t-acme", json.RawMessage(`{"currency":"CAD"}`))
		require.NoError(t, err)
		require.JSONEq(t, `{"currency":"CAD"}`, string(rec.Settings))

		_, err = tenants.UpdateTier(ctx, "missing", "trial")
		require.ErrorIs(t, err, ErrNotFound)

		members, err := tenants.ListMembers(ctx, "t-acme")
		require.NoError(t, err)
		require.Len(t, members, 2)
		require.Equal(t, "u-1", members[0].UserID)
		require.Equal(t, "u-joining", members[1].UserID)
	})
}
