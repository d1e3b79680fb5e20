package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zenGate-Global/freightdesk/platform/go/requesttrace"
)

// Domain-level errors surfaced by the service.
var (
	ErrNotFound          = errors.New("document not found")
	ErrConflict          = errors.New("document already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTenantRequired    = errors.New("tenant id is required")
	ErrUnknownCollection = errors.New("unknown collection")
)

// ValidationError reports rejected payload fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Repository stores documents. Every method is scoped to one tenant; a
// document of another tenant is reported as ErrNotFound.
type Repository interface {
	// Insert writes a new document, ErrConflict if the id is taken.
	Insert(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, c Collection, tenantID, id string) (Document, error)
	// List returns documents newest first.
	List(ctx context.Context, c Collection, tenantID string, q Query) ([]Document, error)
	// Mutate applies fn to the stored document as one atomic read-modify-write.
	Mutate(ctx context.Context, c Collection, tenantID, id string, fn func(Document) (Document, error)) (Document, error)
	Delete(ctx context.Context, c Collection, tenantID, id string) error
	// Exists reports whether the tenant owns any document in the given collections.
	Exists(ctx context.Context, tenantID string, cs ...Collection) (bool, error)
}

// Validator checks a JSON payload against the schema registered under name.
type Validator interface {
	Validate(ctx context.Context, name string, payload []byte) error
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Config wires optional collaborators.
type Config struct {
	Validator Validator
	Now       func() time.Time
	NewID     func() string
}

// Service implements tenant-scoped CRUD over the entity collections.
type Service struct {
	repo      Repository
	validator Validator
	now       func() time.Time
	newID     func() string
}

// New constructs a Service instance.
func New(repo Repository, cfg Config) *Service {
	if repo == nil {
		panic("entities repository is required")
	}
	s := &Service{repo: repo, validator: cfg.Validator, now: cfg.Now, newID: cfg.NewID}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// GetAll lists a tenant's documents, newest first. A non-positive limit uses
// DefaultListLimit; larger limits are capped at MaxListLimit.
func (s *Service) GetAll(ctx context.Context, c Collection, tenantID string, limit int) ([]Document, error) {
	if err := checkScope(c, tenantID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.repo.List(ctx, c, tenantID, Query{Limit: limit})
}

// GetByID returns one document of the tenant.
func (s *Service) GetByID(ctx context.Context, c Collection, tenantID, id string) (Document, error) {
	if err := checkScope(c, tenantID); err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	return s.repo.Get(ctx, c, tenantID, id)
}

// GetByStatus lists the tenant's loads in the given status.
func (s *Service) GetByStatus(ctx context.Context, tenantID, status string) ([]Document, error) {
	if err := checkScope(Loads, tenantID); err != nil {
		return nil, err
	}
	parsed, ok := ParseLoadStatus(status)
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{FieldStatus: "unknown load status"}}
	}
	return s.repo.List(ctx, Loads, tenantID, Query{Field: FieldStatus, Value: string(parsed), Limit: MaxListLimit})
}

// Create stores data as a new document of the tenant. The id, tenantId and
// timestamps are assigned here; client supplied values for them are ignored.
func (s *Service) Create(ctx context.Context, c Collection, tenantID string, data map[string]any) (Document, error) {
	if err := checkScope(c, tenantID); err != nil {
		return Document{}, err
	}
	if data == nil {
		return Document{}, &ValidationError{Fields: map[string]string{"body": "must be a JSON object"}}
	}

	payload := withoutReserved(data)
	if c == Loads {
		if err := normalizeLoadStatus(payload, ""); err != nil {
			return Document{}, err
		}
	}
	if audit, ok := requesttrace.FromContext(ctx); ok && audit.ActorKind != requesttrace.ActorKindAnonymous {
		payload[FieldCreatedBy] = audit.Actor()
	}
	if err := s.validate(ctx, c, payload); err != nil {
		return Document{}, err
	}

	now := s.now()
	return s.repo.Insert(ctx, Document{
		ID:         s.newID(),
		TenantID:   tenantID,
		Collection: c,
		Data:       payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// Update shallow-merges patch into the stored document. A null value removes
// the field. Load status changes must follow the load lifecycle.
func (s *Service) Update(ctx context.Context, c Collection, tenantID, id string, patch map[string]any) (Document, error) {
	if err := checkScope(c, tenantID); err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	if patch == nil {
		return Document{}, &ValidationError{Fields: map[string]string{"body": "must be a JSON object"}}
	}
	changes := withoutReserved(patch)

	return s.repo.Mutate(ctx, c, tenantID, id, func(current Document) (Document, error) {
		merged := make(map[string]any, len(current.Data)+len(changes))
		for k, v := range current.Data {
			merged[k] = v
		}
		for k, v := range changes {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}

		if c == Loads {
			if err := normalizeLoadStatus(merged, current.String(FieldStatus)); err != nil {
				return Document{}, err
			}
		}
		if err := s.validate(ctx, c, merged); err != nil {
			return Document{}, err
		}

		current.Data = merged
		current.UpdatedAt = s.now()
		return current, nil
	})
}

// Delete removes a document of the tenant.
func (s *Service) Delete(ctx context.Context, c Collection, tenantID, id string) error {
	if err := checkScope(c, tenantID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, c, tenantID, id)
}

func checkScope(c Collection, tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrTenantRequired
	}
	if !c.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return nil
}

func withoutReserved(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if reservedFields[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// normalizeLoadStatus canonicalizes data's status and checks the move from
// previous. An empty previous means the load is new and defaults to quote.
func normalizeLoadStatus(data map[string]any, previous string) error {
	raw, present := data[FieldStatus]
	if !present {
		if previous == "" {
			data[FieldStatus] = string(LoadQuote)
		}
		return nil
	}
	str, ok := raw.(string)
	if !ok {
		// left for the schema to report
		return nil
	}
	next, ok := ParseLoadStatus(str)
	if !ok {
		return &ValidationError{Fields: map[string]string{FieldStatus: "unknown load status"}}
	}
	data[FieldStatus] = string(next)

	if previous == "" {
		return nil
	}
	from, ok := ParseLoadStatus(previous)
	if !ok {
		return nil
	}
	if !from.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, next)
	}
	return nil
}

func (s *Service) validate(ctx context.Context, c Collection, data map[string]any) error {
	if s.validator == nil {
		return nil
	}
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	err = s.validator.Validate(ctx, string(c), body)
	var schemaErr *jsonschema.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &schemaErr):
		return &ValidationError{Fields: schemaFields(schemaErr)}
	default:
		return fmt.Errorf("validate %s: %w", c, err)
	}
}

// schemaFields flattens the leaf causes of a schema violation into
// dotted field paths. Violations on the document root are keyed "body".
func schemaFields(verr *jsonschema.ValidationError) map[string]string {
	fields := map[string]string{}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, cause := range e.Causes {
				walk(cause)
			}
			return
		}
		key := strings.ReplaceAll(strings.TrimPrefix(e.InstanceLocation, "/"), "/", ".")
		if key == "" {
			key = "body"
		}
		if _, seen := fields[key]; !seen {
			fields[key] = e.Message
		}
	}
	walk(verr)
	return fields
}
