package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zenGate-Global/freightdesk/domains/entities/be/service"
)

// FirestoreRepository keeps each collection as a top-level Firestore
// collection. Documents carry tenantId and every query filters on it.
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

func (r *FirestoreRepository) Insert(ctx context.Context, doc service.Document) (service.Document, error) {
	ref := r.client.Collection(string(doc.Collection)).Doc(doc.ID)
	if _, err := ref.Create(ctx, toFirestore(doc)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return service.Document{}, service.ErrConflict
		}
		return service.Document{}, fmt.Errorf("insert %s: %w", doc.Collection, err)
	}
	return doc, nil
}

func (r *FirestoreRepository) Get(ctx context.Context, c service.Collection, tenantID, id string) (service.Document, error) {
	snap, err := r.client.Collection(string(c)).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return service.Document{}, service.ErrNotFound
		}
		return service.Document{}, fmt.Errorf("get %s: %w", c, err)
	}
	return ownedDocument(snap, c, tenantID)
}

func (r *FirestoreRepository) List(ctx context.Context, c service.Collection, tenantID string, q service.Query) ([]service.Document, error) {
	query := r.client.Collection(string(c)).Where(service.FieldTenantID, "==", tenantID)
	if q.Field != "" {
		query = query.Where(q.Field, "==", q.Value)
	}
	query = query.OrderBy(service.FieldCreatedAt, firestore.Desc)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	out := []service.Document{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", c, err)
		}
		doc, err := ownedDocument(snap, c, tenantID)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *FirestoreRepository) Mutate(ctx context.Context, c service.Collection, tenantID, id string, fn func(service.Document) (service.Document, error)) (service.Document, error) {
	ref := r.client.Collection(string(c)).Doc(id)
	var out service.Document
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return service.ErrNotFound
			}
			return err
		}
		current, err := ownedDocument(snap, c, tenantID)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		next.ID, next.TenantID, next.Collection, next.CreatedAt = current.ID, current.TenantID, c, current.CreatedAt
		if err := tx.Set(ref, toFirestore(next)); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return service.Document{}, err
	}
	return out, nil
}

func (r *FirestoreRepository) Delete(ctx context.Context, c service.Collection, tenantID, id string) error {
	ref := r.client.Collection(string(c)).Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return service.ErrNotFound
			}
			return err
		}
		if _, err := ownedDocument(snap, c, tenantID); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
}

func (r *FirestoreRepository) Exists(ctx context.Context, tenantID string, cs ...service.Collection) (bool, error) {
	for _, c := range cs {
		iter := r.client.Collection(string(c)).Where(service.FieldTenantID, "==", tenantID).Limit(1).Documents(ctx)
		_, err := iter.Next()
		iter.Stop()
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, iterator.Done):
		default:
			return false, fmt.Errorf("probe %s: %w", c, err)
		}
	}
	return false, nil
}

func toFirestore(doc service.Document) map[string]any {
	out := make(map[string]any, len(doc.Data)+3)
	for k, v := range doc.Data {
		out[k] = v
	}
	out[service.FieldTenantID] = doc.TenantID
	out[service.FieldCreatedAt] = doc.CreatedAt
	out[service.FieldUpdatedAt] = doc.UpdatedAt
	return out
}

// ownedDocument decodes snap, reporting documents of other tenants as missing.
func ownedDocument(snap *firestore.DocumentSnapshot, c service.Collection, tenantID string) (service.Document, error) {
	data := snap.Data()
	owner, _ := data[service.FieldTenantID].(string)
	if owner != tenantID {
		return service.Document{}, service.ErrNotFound
	}

	doc := service.Document{ID: snap.Ref.ID, TenantID: owner, Collection: c}
	doc.CreatedAt, _ = data[service.FieldCreatedAt].(time.Time)
	doc.UpdatedAt, _ = data[service.FieldUpdatedAt].(time.Time)
	for _, k := range []string{service.FieldID, service.FieldTenantID, service.FieldCreatedAt, service.FieldUpdatedAt} {
		delete(data, k)
	}
	doc.Data = data
	return doc, nil
}

var (
	_ service.Repository = (*FirestoreRepository)(nil)
	_ service.Repository = (*PostgresRepository)(nil)
	_ service.Repository = (*MemoryRepository)(nil)
)
