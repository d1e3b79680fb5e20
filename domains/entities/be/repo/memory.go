package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/zenGate-Global/freightdesk/domains/entities/be/service"
)

type docKey struct {
	tenantID   string
	collection service.Collection
	id         string
}

// MemoryRepository keeps documents in process memory. Used by tests and the memory backend.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[docKey]service.Document
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: map[docKey]service.Document{}}
}

func (r *MemoryRepository) Insert(ctx context.Context, doc service.Document) (service.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := docKey{doc.TenantID, doc.Collection, doc.ID}
	if _, exists := r.docs[key]; exists {
		return service.Document{}, service.ErrConflict
	}
	doc.Data = cloneData(doc.Data)
	r.docs[key] = doc
	return copyDoc(doc), nil
}

func (r *MemoryRepository) Get(ctx context.Context, c service.Collection, tenantID, id string) (service.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[docKey{tenantID, c, id}]
	if !ok {
		return service.Document{}, service.ErrNotFound
	}
	return copyDoc(doc), nil
}

func (r *MemoryRepository) List(ctx context.Context, c service.Collection, tenantID string, q service.Query) ([]service.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []service.Document{}
	for key, doc := range r.docs {
		if key.tenantID != tenantID || key.collection != c {
			continue
		}
		if q.Field != "" {
			if v, ok := doc.Data[q.Field].(string); !ok || v != q.Value {
				continue
			}
		}
		out = append(out, copyDoc(doc))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) Mutate(ctx context.Context, c service.Collection, tenantID, id string, fn func(service.Document) (service.Document, error)) (service.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := docKey{tenantID, c, id}
	current, ok := r.docs[key]
	if !ok {
		return service.Document{}, service.ErrNotFound
	}
	next, err := fn(copyDoc(current))
	if err != nil {
		return service.Document{}, err
	}

	current.Data = cloneData(next.Data)
	current.UpdatedAt = next.UpdatedAt
	r.docs[key] = current
	return copyDoc(current), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, c service.Collection, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := docKey{tenantID, c, id}
	if _, ok := r.docs[key]; !ok {
		return service.ErrNotFound
	}
	delete(r.docs, key)
	return nil
}

func (r *MemoryRepository) Exists(ctx context.Context, tenantID string, cs ...service.Collection) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key := range r.docs {
		if key.tenantID != tenantID {
			continue
		}
		for _, c := range cs {
			if key.collection == c {
				return true, nil
			}
		}
	}
	return false, nil
}

func copyDoc(doc service.Document) service.Document {
	doc.Data = cloneData(doc.Data)
	return doc
}

// cloneData copies the top level only; nested values are shared.
func cloneData(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
