package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/persistence"
)

// PostgresRepository stores documents in the shared documents table.
type PostgresRepository struct {
	store *persistence.DocumentStore
}

// NewPostgresRepository wraps a persistence.DocumentStore.
func NewPostgresRepository(store *persistence.DocumentStore) *PostgresRepository {
	if store == nil {
		panic("document store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Insert(ctx context.Context, doc service.Document) (service.Document, error) {
	rec, err := toRecord(doc)
	if err != nil {
		return service.Document{}, err
	}
	stored, err := r.store.Insert(ctx, rec)
	if err != nil {
		return service.Document{}, mapError(err)
	}
	return fromRecord(stored)
}

func (r *PostgresRepository) Get(ctx context.Context, c service.Collection, tenantID, id string) (service.Document, error) {
	rec, err := r.store.Get(ctx, tenantID, string(c), id)
	if err != nil {
		return service.Document{}, mapError(err)
	}
	return fromRecord(rec)
}

func (r *PostgresRepository) List(ctx context.Context, c service.Collection, tenantID string, q service.Query) ([]service.Document, error) {
	recs, err := r.store.List(ctx, tenantID, string(c), persistence.DocumentQuery{Field: q.Field, Value: q.Value, Limit: q.Limit})
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]service.Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *PostgresRepository) Mutate(ctx context.Context, c service.Collection, tenantID, id string, fn func(service.Document) (service.Document, error)) (service.Document, error) {
	rec, err := r.store.Mutate(ctx, tenantID, string(c), id, func(current persistence.DocumentRecord) (persistence.DocumentRecord, error) {
		doc, err := fromRecord(current)
		if err != nil {
			return persistence.DocumentRecord{}, err
		}
		next, err := fn(doc)
		if err != nil {
			return persistence.DocumentRecord{}, err
		}
		return toRecord(next)
	})
	if err != nil {
		return service.Document{}, mapError(err)
	}
	return fromRecord(rec)
}

func (r *PostgresRepository) Delete(ctx context.Context, c service.Collection, tenantID, id string) error {
	return mapError(r.store.Delete(ctx, tenantID, string(c), id))
}

func (r *PostgresRepository) Exists(ctx context.Context, tenantID string, cs ...service.Collection) (bool, error) {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, string(c))
	}
	found, err := r.store.Exists(ctx, tenantID, names...)
	return found, mapError(err)
}

func toRecord(doc service.Document) (persistence.DocumentRecord, error) {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return persistence.DocumentRecord{}, fmt.Errorf("encode document: %w", err)
	}
	return persistence.DocumentRecord{
		TenantID:   doc.TenantID,
		Collection: string(doc.Collection),
		ID:         doc.ID,
		Data:       data,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func fromRecord(rec persistence.DocumentRecord) (service.Document, error) {
	data := map[string]any{}
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return service.Document{}, fmt.Errorf("decode document %s: %w", rec.ID, err)
		}
	}
	return service.Document{
		ID:         rec.ID,
		TenantID:   rec.TenantID,
		Collection: service.Collection(rec.Collection),
		Data:       data,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return service.ErrConflict
	default:
		return err
	}
}
