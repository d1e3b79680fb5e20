package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// TenantRecord mirrors a row of the tenants table.
type TenantRecord struct {
	TenantID   string          `db:"tenant_id"`
	Name       string          `db:"name"`
	Slug       string          `db:"slug"`
	OwnerID    string          `db:"owner_id"`
	OwnerEmail string          `db:"owner_email"`
	Tier       string          `db:"tier"`
	IsDemo     bool            `db:"is_demo"`
	Settings   json.RawMessage `db:"settings"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// MemberRecord mirrors a row of the tenant_users table.
type MemberRecord struct {
	UserID    string    `db:"user_id"`
	TenantID  string    `db:"tenant_id"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	tenantColumns = `tenant_id, name, slug, owner_id, owner_email, tier, is_demo, settings, created_at, updated_at`
	memberColumns = `user_id, tenant_id, email, role, status, created_at`
)

// TenantStore provides access to the tenants and tenant_users tables.
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a store; assumes Bootstrap already created the tables.
func NewTenantStore(db *DB) (*TenantStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &TenantStore{db: db}, nil
}

// replaceInvitation lets a new owner row take over a membership that is still
// only an invitation. Active memberships make the insert return no row.
const replaceInvitation = `ON CONFLICT (user_id) DO UPDATE SET
            tenant_id = EXCLUDED.tenant_id, email = EXCLUDED.email, role = EXCLUDED.role,
            status = EXCLUDED.status, created_at = EXCLUDED.created_at
        WHERE tenant_users.status = 'invited'`

// CreateWithOwner inserts the tenant and its owner membership in one
// transaction. A pending invitation of the owner is replaced; an active
// membership yields ErrMemberExists.
func (s *TenantStore) CreateWithOwner(ctx context.Context, rec TenantRecord, owner MemberRecord) (TenantRecord, error) {
	if err := validateTenant(rec); err != nil {
		return TenantRecord{}, err
	}

	var out TenantRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanTenant(tx.QueryRow(ctx, insertTenantSQL(""), tenantArgs(rec)...))
		if err != nil {
			return classifyTenantError(err)
		}

		owner.TenantID = out.TenantID
		_, err = scanMember(tx.QueryRow(ctx, insertMemberSQL(replaceInvitation), memberArgs(owner)...))
		switch {
		case errors.Is(err, ErrNotFound):
			return ErrMemberExists
		case err != nil:
			return classifyTenantError(err)
		}
		return nil
	})
	if err != nil {
		return TenantRecord{}, err
	}
	return out, nil
}

// EnsureTenant inserts rec unless a tenant with the same id exists and returns
// the stored row. The boolean reports whether this call created it. Any
// unique index acts as arbiter, so a slug owned by a different tenant id
// surfaces as ErrSlugTaken instead of a raced unique violation.
func (s *TenantStore) EnsureTenant(ctx context.Context, rec TenantRecord) (TenantRecord, bool, error) {
	if err := validateTenant(rec); err != nil {
		return TenantRecord{}, false, err
	}

	var (
		out     TenantRecord
		created bool
	)
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanTenant(tx.QueryRow(ctx, insertTenantSQL("ON CONFLICT DO NOTHING"), tenantArgs(rec)...))
		switch {
		case err == nil:
			created = true
			return nil
		case !errors.Is(err, ErrNotFound):
			return classifyTenantError(err)
		}

		out, err = scanTenant(tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1`, rec.TenantID))
		if errors.Is(err, ErrNotFound) {
			return ErrSlugTaken
		}
		return err
	})
	if err != nil {
		return TenantRecord{}, false, err
	}
	return out, created, nil
}

// EnsureMember inserts m unless the user already has a membership and returns
// the stored row, which may point at a different tenant.
func (s *TenantStore) EnsureMember(ctx context.Context, m MemberRecord) (MemberRecord, bool, error) {
	if strings.TrimSpace(m.UserID) == "" || strings.TrimSpace(m.TenantID) == "" {
		return MemberRecord{}, false, errors.New("user id and tenant id are required")
	}

	var (
		out     MemberRecord
		created bool
	)
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanMember(tx.QueryRow(ctx, insertMemberSQL("ON CONFLICT (user_id) DO NOTHING"), memberArgs(m)...))
		switch {
		case err == nil:
			created = true
			return nil
		case !errors.Is(err, ErrNotFound):
			return err
		}

		out, err = scanMember(tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM tenant_users WHERE user_id = $1`, m.UserID))
		return err
	})
	if err != nil {
		return MemberRecord{}, false, err
	}
	return out, created, nil
}

// ActivateMember marks the membership of userID active.
func (s *TenantStore) ActivateMember(ctx context.Context, userID string) (MemberRecord, error) {
	var out MemberRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanMember(tx.QueryRow(ctx, `UPDATE tenant_users SET status = 'active' WHERE user_id = $1 RETURNING `+memberColumns, userID))
		return err
	})
	return out, err
}

// GetTenant fetches a tenant by id.
func (s *TenantStore) GetTenant(ctx context.Context, tenantID string) (TenantRecord, error) {
	var out TenantRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanTenant(tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1`, tenantID))
		return err
	})
	return out, err
}

// SlugExists reports whether slug is already taken.
func (s *TenantStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE slug = $1)`, slug).Scan(&exists)
	})
	return exists, err
}

// GetMember fetches the membership of userID.
func (s *TenantStore) GetMember(ctx context.Context, userID string) (MemberRecord, error) {
	var out MemberRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanMember(tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM tenant_users WHERE user_id = $1`, userID))
		return err
	})
	return out, err
}

// ListMembers returns the memberships of a tenant ordered by creation.
func (s *TenantStore) ListMembers(ctx context.Context, tenantID string) ([]MemberRecord, error) {
	var out []MemberRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+memberColumns+` FROM tenant_users WHERE tenant_id = $1 ORDER BY created_at, user_id`, tenantID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMember(rows)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	return out, err
}

// ListTenants returns every tenant ordered by creation, newest first.
func (s *TenantStore) ListTenants(ctx context.Context) ([]TenantRecord, error) {
	var out []TenantRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC, tenant_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanTenant(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateSettings replaces the settings document of a tenant.
func (s *TenantStore) UpdateSettings(ctx context.Context, tenantID string, settings json.RawMessage) (TenantRecord, error) {
	return s.update(ctx, `UPDATE tenants SET settings = $2, updated_at = now() WHERE tenant_id = $1 RETURNING `+tenantColumns, tenantID, settings)
}

// UpdateTier changes the subscription tier of a tenant.
func (s *TenantStore) UpdateTier(ctx context.Context, tenantID, tier string) (TenantRecord, error) {
	return s.update(ctx, `UPDATE tenants SET tier = $2, updated_at = now() WHERE tenant_id = $1 RETURNING `+tenantColumns, tenantID, tier)
}

func (s *TenantStore) update(ctx context.Context, query, tenantID string, value any) (TenantRecord, error) {
	var out TenantRecord
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanTenant(tx.QueryRow(ctx, query, tenantID, value))
		return err
	})
	return out, err
}

func validateTenant(rec TenantRecord) error {
	if strings.TrimSpace(rec.TenantID) == "" {
		return errors.New("tenant id is required")
	}
	if _, err := NormalizeSlug(rec.Slug); err != nil {
		return err
	}
	return nil
}

func insertTenantSQL(onConflict string) string {
	return fmt.Sprintf(`
        INSERT INTO tenants (%s)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
        %s
        RETURNING %s`, tenantColumns, onConflict, tenantColumns)
}

func insertMemberSQL(onConflict string) string {
	return fmt.Sprintf(`
        INSERT INTO tenant_users (%s)
        VALUES ($1, $2, $3, $4, $5, $6)
        %s
        RETURNING %s`, memberColumns, onConflict, memberColumns)
}

func tenantArgs(rec TenantRecord) []any {
	settings := rec.Settings
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return []any{rec.TenantID, rec.Name, rec.Slug, rec.OwnerID, rec.OwnerEmail, rec.Tier, rec.IsDemo, settings, createdAt}
}

func memberArgs(m MemberRecord) []any {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return []any{m.UserID, m.TenantID, m.Email, m.Role, m.Status, createdAt}
}

func classifyTenantError(err error) error {
	constraint, ok := uniqueConstraint(err)
	if !ok {
		return err
	}
	switch constraint {
	case "tenants_slug_unique":
		return ErrSlugTaken
	case "tenant_users_pkey":
		return ErrMemberExists
	default:
		return fmt.Errorf("%w: %s", ErrConflict, constraint)
	}
}

func scanTenant(row pgx.Row) (TenantRecord, error) {
	var rec TenantRecord
	if err := row.Scan(&rec.TenantID, &rec.Name, &rec.Slug, &rec.OwnerID, &rec.OwnerEmail, &rec.Tier, &rec.IsDemo, &rec.Settings, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrNotFound
		}
		return TenantRecord{}, err
	}
	return rec, nil
}

func scanMember(row pgx.Row) (MemberRecord, error) {
	var m MemberRecord
	if err := row.Scan(&m.UserID, &m.TenantID, &m.Email, &m.Role, &m.Status, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRecord{}, ErrNotFound
		}
		return MemberRecord{}, err
	}
	return m, nil
}
