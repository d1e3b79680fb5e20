package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
	"github.com/zenGate-Global/freightdesk/platform/go/persistence"
)

// PostgresRepository implements the tenant repository on top of persistence.TenantStore.
type PostgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by TenantStore.
func NewPostgresRepository(store *persistence.TenantStore) *PostgresRepository {
	if store == nil {
		panic("tenant store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) CreateTenant(ctx context.Context, t service.Tenant, owner service.TenantUser) (service.Tenant, error) {
	rec, err := toTenantRecord(t)
	if err != nil {
		return service.Tenant{}, err
	}
	out, err := r.store.CreateWithOwner(ctx, rec, toMemberRecord(owner))
	if err != nil {
		return service.Tenant{}, mapError(err)
	}
	return toServiceTenant(out)
}

func (r *PostgresRepository) EnsureTenant(ctx context.Context, t service.Tenant) (service.Tenant, bool, error) {
	rec, err := toTenantRecord(t)
	if err != nil {
		return service.Tenant{}, false, err
	}
	out, created, err := r.store.EnsureTenant(ctx, rec)
	if err != nil {
		return service.Tenant{}, false, mapError(err)
	}
	svc, err := toServiceTenant(out)
	return svc, created, err
}

func (r *PostgresRepository) EnsureMember(ctx context.Context, m service.TenantUser) (service.TenantUser, bool, error) {
	out, created, err := r.store.EnsureMember(ctx, toMemberRecord(m))
	if err != nil {
		return service.TenantUser{}, false, mapError(err)
	}
	return toServiceMember(out), created, nil
}

func (r *PostgresRepository) GetTenant(ctx context.Context, id string) (service.Tenant, error) {
	rec, err := r.store.GetTenant(ctx, id)
	if err != nil {
		return service.Tenant{}, mapNotFound(err, service.ErrTenantNotFound)
	}
	return toServiceTenant(rec)
}

func (r *PostgresRepository) GetMember(ctx context.Context, uid string) (service.TenantUser, error) {
	rec, err := r.store.GetMember(ctx, uid)
	if err != nil {
		return service.TenantUser{}, mapNotFound(err, service.ErrMemberNotFound)
	}
	return toServiceMember(rec), nil
}

func (r *PostgresRepository) ActivateMember(ctx context.Context, uid string) (service.TenantUser, error) {
	rec, err := r.store.ActivateMember(ctx, uid)
	if err != nil {
		return service.TenantUser{}, mapNotFound(err, service.ErrMemberNotFound)
	}
	return toServiceMember(rec), nil
}

func (r *PostgresRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.store.SlugExists(ctx, slug)
}

func (r *PostgresRepository) ListTenants(ctx context.Context) ([]service.Tenant, error) {
	rows, err := r.store.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]service.Tenant, 0, len(rows))
	for _, rec := range rows {
		t, err := toServiceTenant(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, tenantID string) ([]service.TenantUser, error) {
	rows, err := r.store.ListMembers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]service.TenantUser, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toServiceMember(rec))
	}
	return out, nil
}

func (r *PostgresRepository) UpdateSettings(ctx context.Context, id string, settings service.Settings) (service.Tenant, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return service.Tenant{}, fmt.Errorf("encode settings: %w", err)
	}
	rec, err := r.store.UpdateSettings(ctx, id, raw)
	if err != nil {
		return service.Tenant{}, mapNotFound(err, service.ErrTenantNotFound)
	}
	return toServiceTenant(rec)
}

func (r *PostgresRepository) UpdateTier(ctx context.Context, id string, tier features.Tier) (service.Tenant, error) {
	rec, err := r.store.UpdateTier(ctx, id, string(tier))
	if err != nil {
		return service.Tenant{}, mapNotFound(err, service.ErrTenantNotFound)
	}
	return toServiceTenant(rec)
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return notFound
	}
	return err
}

func mapError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrSlugTaken):
		return service.ErrSlugTaken
	case errors.Is(err, persistence.ErrMemberExists):
		return service.ErrAlreadyMember
	default:
		return err
	}
}

func toTenantRecord(t service.Tenant) (persistence.TenantRecord, error) {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return persistence.TenantRecord{}, fmt.Errorf("encode settings: %w", err)
	}
	return persistence.TenantRecord{
		TenantID:   t.ID,
		Name:       t.Name,
		Slug:       t.Slug,
		OwnerID:    t.OwnerID,
		OwnerEmail: t.OwnerEmail,
		Tier:       string(t.Tier),
		IsDemo:     t.IsDemo,
		Settings:   settings,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}, nil
}

func toServiceTenant(rec persistence.TenantRecord) (service.Tenant, error) {
	var settings service.Settings
	if len(rec.Settings) > 0 {
		if err := json.Unmarshal(rec.Settings, &settings); err != nil {
			return service.Tenant{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	tier, _ := features.ParseTier(rec.Tier)
	return service.Tenant{
		ID:         rec.TenantID,
		Name:       rec.Name,
		Slug:       rec.Slug,
		OwnerID:    rec.OwnerID,
		OwnerEmail: rec.OwnerEmail,
		Settings:   settings,
		Tier:       tier,
		IsDemo:     rec.IsDemo,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func toMemberRecord(m service.TenantUser) persistence.MemberRecord {
	return persistence.MemberRecord{
		UserID:    m.UID,
		TenantID:  m.TenantID,
		Email:     m.Email,
		Role:      string(m.Role),
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func toServiceMember(rec persistence.MemberRecord) service.TenantUser {
	return service.TenantUser{
		UID:       rec.UserID,
		TenantID:  rec.TenantID,
		Email:     rec.Email,
		Role:      service.Role(rec.Role),
		Status:    service.MemberStatus(rec.Status),
		CreatedAt: rec.CreatedAt,
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
