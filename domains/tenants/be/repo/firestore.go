package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
)

// Firestore collection names.
const (
	TenantsCollection     = "tenants"
	TenantUsersCollection = "tenantUsers"
	TenantSlugsCollection = "tenantSlugs"
)

// FirestoreRepository stores tenants in Firestore. Slug uniqueness is kept by
// a tenantSlugs/{slug} reservation document created alongside the tenant.
type FirestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository constructs a repository backed by a Firestore client.
func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	if client == nil {
		panic("firestore client is required")
	}
	return &FirestoreRepository{client: client}
}

type tenantDoc struct {
	ID         string           `firestore:"id"`
	Name       string           `firestore:"name"`
	Slug       string           `firestore:"slug"`
	OwnerID    string           `firestore:"ownerId"`
	OwnerEmail string           `firestore:"ownerEmail"`
	Settings   service.Settings `firestore:"settings"`
	Tier       string           `firestore:"subscriptionTier"`
	IsDemo     bool             `firestore:"isDemo"`
	CreatedAt  time.Time        `firestore:"createdAt"`
	UpdatedAt  time.Time        `firestore:"updatedAt"`
}

type memberDoc struct {
	UID       string    `firestore:"uid"`
	TenantID  string    `firestore:"tenantId"`
	Email     string    `firestore:"email"`
	Role      string    `firestore:"role"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type slugDoc struct {
	TenantID string `firestore:"tenantId"`
}

func (r *FirestoreRepository) tenants() *firestore.CollectionRef {
	return r.client.Collection(TenantsCollection)
}

func (r *FirestoreRepository) members() *firestore.CollectionRef {
	return r.client.Collection(TenantUsersCollection)
}

func (r *FirestoreRepository) slugs() *firestore.CollectionRef {
	return r.client.Collection(TenantSlugsCollection)
}

// CreateTenant writes the slug reservation, tenant and owner membership in one
// transaction. An invited membership of the owner is overwritten.
func (r *FirestoreRepository) CreateTenant(ctx context.Context, t service.Tenant, owner service.TenantUser) (service.Tenant, error) {
	owner.TenantID = t.ID
	tenantRef := r.tenants().Doc(t.ID)
	slugRef := r.slugs().Doc(t.Slug)
	memberRef := r.members().Doc(owner.UID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if snap, err := tx.Get(memberRef); err == nil {
			existing, err := decodeMember(snap)
			if err != nil {
				return err
			}
			if existing.Status != service.StatusInvited {
				return service.ErrAlreadyMember
			}
		} else if !isNotFound(err) {
			return err
		}
		if _, err := tx.Get(slugRef); err == nil {
			return service.ErrSlugTaken
		} else if !isNotFound(err) {
			return err
		}

		if err := tx.Create(slugRef, slugDoc{TenantID: t.ID}); err != nil {
			return err
		}
		if err := tx.Create(tenantRef, toTenantDoc(t)); err != nil {
			return err
		}
		return tx.Set(memberRef, toMemberDoc(owner))
	})
	if err != nil {
		if errors.Is(err, service.ErrAlreadyMember) || errors.Is(err, service.ErrSlugTaken) {
			return service.Tenant{}, err
		}
		if isAlreadyExists(err) {
			return service.Tenant{}, service.ErrSlugTaken
		}
		return service.Tenant{}, err
	}
	return t, nil
}

// EnsureTenant creates t and its slug reservation unless a tenant with its id
// exists. A reservation held by another tenant fails with ErrSlugTaken.
func (r *FirestoreRepository) EnsureTenant(ctx context.Context, t service.Tenant) (service.Tenant, bool, error) {
	tenantRef := r.tenants().Doc(t.ID)
	slugRef := r.slugs().Doc(t.Slug)

	var (
		out     service.Tenant
		created bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		snap, err := tx.Get(tenantRef)
		if err == nil {
			out, err = decodeTenant(snap)
			return err
		}
		if !isNotFound(err) {
			return err
		}

		slugSnap, err := tx.Get(slugRef)
		switch {
		case err == nil:
			var holder slugDoc
			if err := slugSnap.DataTo(&holder); err != nil {
				return fmt.Errorf("decode slug %s: %w", t.Slug, err)
			}
			if holder.TenantID != t.ID {
				return service.ErrSlugTaken
			}
		case !isNotFound(err):
			return err
		}

		if err := tx.Set(slugRef, slugDoc{TenantID: t.ID}); err != nil {
			return err
		}
		if err := tx.Create(tenantRef, toTenantDoc(t)); err != nil {
			return err
		}
		out, created = t, true
		return nil
	})
	if err != nil {
		return service.Tenant{}, false, err
	}
	return out, created, nil
}

func (r *FirestoreRepository) EnsureMember(ctx context.Context, m service.TenantUser) (service.TenantUser, bool, error) {
	_, err := r.members().Doc(m.UID).Create(ctx, toMemberDoc(m))
	switch {
	case err == nil:
		return m, true, nil
	case isAlreadyExists(err):
		existing, err := r.GetMember(ctx, m.UID)
		return existing, false, err
	default:
		return service.TenantUser{}, false, err
	}
}

func (r *FirestoreRepository) GetTenant(ctx context.Context, id string) (service.Tenant, error) {
	snap, err := r.tenants().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return service.Tenant{}, service.ErrTenantNotFound
		}
		return service.Tenant{}, err
	}
	return decodeTenant(snap)
}

func (r *FirestoreRepository) GetMember(ctx context.Context, uid string) (service.TenantUser, error) {
	snap, err := r.members().Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return service.TenantUser{}, service.ErrMemberNotFound
		}
		return service.TenantUser{}, err
	}
	return decodeMember(snap)
}

func (r *FirestoreRepository) ActivateMember(ctx context.Context, uid string) (service.TenantUser, error) {
	_, err := r.members().Doc(uid).Update(ctx, []firestore.Update{{Path: "status", Value: string(service.StatusActive)}})
	if err != nil {
		if isNotFound(err) {
			return service.TenantUser{}, service.ErrMemberNotFound
		}
		return service.TenantUser{}, err
	}
	return r.GetMember(ctx, uid)
}

func (r *FirestoreRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := r.slugs().Doc(slug).Get(ctx)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (r *FirestoreRepository) ListTenants(ctx context.Context) ([]service.Tenant, error) {
	snaps, err := r.tenants().OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]service.Tenant, 0, len(snaps))
	for _, snap := range snaps {
		t, err := decodeTenant(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *FirestoreRepository) ListMembers(ctx context.Context, tenantID string) ([]service.TenantUser, error) {
	snaps, err := r.members().Where("tenantId", "==", tenantID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]service.TenantUser, 0, len(snaps))
	for _, snap := range snaps {
		m, err := decodeMember(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *FirestoreRepository) UpdateSettings(ctx context.Context, id string, settings service.Settings) (service.Tenant, error) {
	return r.update(ctx, id, firestore.Update{Path: "settings", Value: settings})
}

func (r *FirestoreRepository) UpdateTier(ctx context.Context, id string, tier features.Tier) (service.Tenant, error) {
	return r.update(ctx, id, firestore.Update{Path: "subscriptionTier", Value: string(tier)})
}

func (r *FirestoreRepository) update(ctx context.Context, id string, change firestore.Update) (service.Tenant, error) {
	_, err := r.tenants().Doc(id).Update(ctx, []firestore.Update{
		change,
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if isNotFound(err) {
			return service.Tenant{}, service.ErrTenantNotFound
		}
		return service.Tenant{}, err
	}
	return r.GetTenant(ctx, id)
}

func toTenantDoc(t service.Tenant) tenantDoc {
	return tenantDoc{
		ID:         t.ID,
		Name:       t.Name,
		Slug:       t.Slug,
		OwnerID:    t.OwnerID,
		OwnerEmail: t.OwnerEmail,
		Settings:   t.Settings,
		Tier:       string(t.Tier),
		IsDemo:     t.IsDemo,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func toMemberDoc(m service.TenantUser) memberDoc {
	return memberDoc{
		UID:       m.UID,
		TenantID:  m.TenantID,
		Email:     m.Email,
		Role:      string(m.Role),
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func decodeTenant(snap *firestore.DocumentSnapshot) (service.Tenant, error) {
	var doc tenantDoc
	if err := snap.DataTo(&doc); err != nil {
		return service.Tenant{}, fmt.Errorf("decode tenant %s: %w", snap.Ref.ID, err)
	}
	tier, _ := features.ParseTier(doc.Tier)
	id := doc.ID
	if id == "" {
		id = snap.Ref.ID
	}
	return service.Tenant{
		ID:         id,
		Name:       doc.Name,
		Slug:       doc.Slug,
		OwnerID:    doc.OwnerID,
		OwnerEmail: doc.OwnerEmail,
		Settings:   doc.Settings,
		Tier:       tier,
		IsDemo:     doc.IsDemo,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func decodeMember(snap *firestore.DocumentSnapshot) (service.TenantUser, error) {
	var doc memberDoc
	if err := snap.DataTo(&doc); err != nil {
		return service.TenantUser{}, fmt.Errorf("decode membership %s: %w", snap.Ref.ID, err)
	}
	uid := doc.UID
	if uid == "" {
		uid = snap.Ref.ID
	}
	return service.TenantUser{
		UID:       uid,
		TenantID:  doc.TenantID,
		Email:     doc.Email,
		Role:      service.Role(doc.Role),
		Status:    service.MemberStatus(doc.Status),
		CreatedAt: doc.CreatedAt,
	}, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

var _ service.Repository = (*FirestoreRepository)(nil)
