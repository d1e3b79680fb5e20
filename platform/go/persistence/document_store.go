package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// DocumentRecord is one tenant-owned business document (load, customer, ...).
type DocumentRecord struct {
	TenantID   string          `json:"tenantId"`
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// DocumentQuery narrows a listing. Field/Value filter on a top-level data
// attribute; Limit <= 0 means no limit.
type DocumentQuery struct {
	Field string
	Value string
	Limit int
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,62}$`)

const documentColumns = `tenant_id, collection, id, data, created_at, updated_at`

// DocumentStore persists documents in a single table partitioned by tenant.
// Every statement filters on tenant_id and runs inside DB.WithTenant, so the
// row-level security policy applies as a second barrier.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a store; assumes Bootstrap already created the table.
func NewDocumentStore(db *DB) (*DocumentStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &DocumentStore{db: db}, nil
}

// Insert stores a new document. A duplicate id in the same tenant and collection is ErrConflict.
func (s *DocumentStore) Insert(ctx context.Context, rec DocumentRecord) (DocumentRecord, error) {
	if strings.TrimSpace(rec.ID) == "" || strings.TrimSpace(rec.Collection) == "" {
		return DocumentRecord{}, errors.New("collection and id are required")
	}
	data := rec.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	var out DocumentRecord
	err := s.db.WithTenant(ctx, rec.TenantID, func(tx pgx.Tx) error {
		var err error
		out, err = scanDocument(tx.QueryRow(ctx, `
            INSERT INTO documents (`+documentColumns+`)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING `+documentColumns,
			rec.TenantID, rec.Collection, rec.ID, data, rec.CreatedAt, rec.UpdatedAt,
		))
		if _, dup := uniqueConstraint(err); dup {
			return ErrConflict
		}
		return err
	})
	if err != nil {
		return DocumentRecord{}, err
	}
	return out, nil
}

// Get fetches a document. Documents of other tenants are reported as ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, tenantID, collection, id string) (DocumentRecord, error) {
	var out DocumentRecord
	err := s.db.WithTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var err error
		out, err = scanDocument(tx.QueryRow(ctx, `
            SELECT `+documentColumns+` FROM documents
            WHERE tenant_id = $1 AND collection = $2 AND id = $3`,
			tenantID, collection, id,
		))
		return err
	})
	return out, err
}

// List returns the tenant's documents of a collection, newest first.
func (s *DocumentStore) List(ctx context.Context, tenantID, collection string, q DocumentQuery) ([]DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1 AND collection = $2`
	args := []any{tenantID, collection}

	if q.Field != "" {
		if !fieldPattern.MatchString(q.Field) {
			return nil, fmt.Errorf("invalid filter field %q", q.Field)
		}
		query += ` AND data ->> $3 = $4`
		args = append(args, q.Field, q.Value)
	}
	query += ` ORDER BY created_at DESC, id`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, q.Limit)
	}

	out := []DocumentRecord{}
	err := s.db.WithTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanDocument(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mutate locks the document, applies fn and writes the result back in one
// transaction. Only Data and UpdatedAt of the returned record are persisted.
func (s *DocumentStore) Mutate(ctx context.Context, tenantID, collection, id string, fn func(DocumentRecord) (DocumentRecord, error)) (DocumentRecord, error) {
	var out DocumentRecord
	err := s.db.WithTenant(ctx, tenantID, func(tx pgx.Tx) error {
		current, err := scanDocument(tx.QueryRow(ctx, `
            SELECT `+documentColumns+` FROM documents
            WHERE tenant_id = $1 AND collection = $2 AND id = $3
            FOR UPDATE`,
			tenantID, collection, id,
		))
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		out, err = scanDocument(tx.QueryRow(ctx, `
            UPDATE documents SET data = $4, updated_at = $5
            WHERE tenant_id = $1 AND collection = $2 AND id = $3
            RETURNING `+documentColumns,
			tenantID, collection, id, next.Data, next.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return DocumentRecord{}, err
	}
	return out, nil
}

// Delete removes a document; a missing document is ErrNotFound.
func (s *DocumentStore) Delete(ctx context.Context, tenantID, collection, id string) error {
	return s.db.WithTenant(ctx, tenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE tenant_id = $1 AND collection = $2 AND id = $3`, tenantID, collection, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Exists reports whether the tenant owns at least one document in any of collections.
func (s *DocumentStore) Exists(ctx context.Context, tenantID string, collections ...string) (bool, error) {
	if len(collections) == 0 {
		return false, nil
	}
	var exists bool
	err := s.db.WithTenant(ctx, tenantID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1 FROM documents WHERE tenant_id = $1 AND collection = ANY($2)
            )`, tenantID, collections,
		).Scan(&exists)
	})
	return exists, err
}

func scanDocument(row pgx.Row) (DocumentRecord, error) {
	var rec DocumentRecord
	if err := row.Scan(&rec.TenantID, &rec.Collection, &rec.ID, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DocumentRecord{}, ErrNotFound
		}
		return DocumentRecord{}, err
	}
	return rec, nil
}
