package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
)

// MemoryRepository is an in-memory implementation for tests and local development.
// The mutex provides the create-if-absent atomicity the other stores get from the database.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]service.Tenant
	bySlug  map[string]string
	members map[string]service.TenantUser
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]service.Tenant),
		bySlug:  make(map[string]string),
		members: make(map[string]service.TenantUser),
	}
}

func (r *MemoryRepository) CreateTenant(ctx context.Context, t service.Tenant, owner service.TenantUser) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySlug[t.Slug]; exists {
		return service.Tenant{}, service.ErrSlugTaken
	}
	if existing, exists := r.members[owner.UID]; exists && existing.Status != service.StatusInvited {
		return service.Tenant{}, service.ErrAlreadyMember
	}

	owner.TenantID = t.ID
	r.byID[t.ID] = t
	r.bySlug[t.Slug] = t.ID
	r.members[owner.UID] = owner
	return t, nil
}

func (r *MemoryRepository) EnsureTenant(ctx context.Context, t service.Tenant) (service.Tenant, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[t.ID]; ok {
		return existing, false, nil
	}
	if owner, taken := r.bySlug[t.Slug]; taken && owner != t.ID {
		return service.Tenant{}, false, service.ErrSlugTaken
	}

	r.byID[t.ID] = t
	r.bySlug[t.Slug] = t.ID
	return t, true, nil
}

func (r *MemoryRepository) EnsureMember(ctx context.Context, m service.TenantUser) (service.TenantUser, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.members[m.UID]; ok {
		return existing, false, nil
	}
	r.members[m.UID] = m
	return m, true, nil
}

func (r *MemoryRepository) GetTenant(ctx context.Context, id string) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrTenantNotFound
	}
	return t, nil
}

func (r *MemoryRepository) GetMember(ctx context.Context, uid string) (service.TenantUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[uid]
	if !ok {
		return service.TenantUser{}, service.ErrMemberNotFound
	}
	return m, nil
}

func (r *MemoryRepository) ActivateMember(ctx context.Context, uid string) (service.TenantUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[uid]
	if !ok {
		return service.TenantUser{}, service.ErrMemberNotFound
	}
	m.Status = service.StatusActive
	r.members[uid] = m
	return m, nil
}

func (r *MemoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bySlug[slug]
	return ok, nil
}

func (r *MemoryRepository) ListTenants(ctx context.Context) ([]service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Tenant, 0, len(r.byID))
	for _, t := range r.byID {
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (r *MemoryRepository) ListMembers(ctx context.Context, tenantID string) ([]service.TenantUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []service.TenantUser{}
	for _, m := range r.members {
		if m.TenantID == tenantID {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UID < items[j].UID })
	return items, nil
}

func (r *MemoryRepository) UpdateSettings(ctx context.Context, id string, settings service.Settings) (service.Tenant, error) {
	return r.update(id, func(t *service.Tenant) { t.Settings = settings })
}

func (r *MemoryRepository) UpdateTier(ctx context.Context, id string, tier features.Tier) (service.Tenant, error) {
	return r.update(id, func(t *service.Tenant) { t.Tier = tier })
}

func (r *MemoryRepository) update(id string, fn func(*service.Tenant)) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrTenantNotFound
	}
	fn(&t)
	t.UpdatedAt = time.Now().UTC()
	r.byID[id] = t
	return t, nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
