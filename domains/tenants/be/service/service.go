package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/freightdesk/platform/go/features"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrMemberNotFound      = errors.New("membership not found")
	ErrAlreadyMember       = errors.New("user already belongs to a tenant")
	ErrMemberOfOtherTenant = errors.New("user belongs to another tenant")
	ErrSlugTaken           = errors.New("tenant slug already exists")
	ErrSlugUnavailable     = errors.New("could not allocate a unique tenant slug")
	ErrForbidden           = errors.New("admin role required")
	ErrDemoReadOnly        = errors.New("demo tenant members and settings cannot be changed")
	ErrInvitationNotFound  = errors.New("no pending invitation")
)

// ValidationError reports rejected input fields.
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

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// Repository abstracts persistence of tenants and memberships.
type Repository interface {
	// CreateTenant writes the tenant and the owner membership atomically. A
	// pending invitation of the owner is replaced. It returns ErrSlugTaken or
	// ErrAlreadyMember on collisions.
	CreateTenant(ctx context.Context, t Tenant, owner TenantUser) (Tenant, error)
	// EnsureTenant creates t unless a tenant with its id exists.
	EnsureTenant(ctx context.Context, t Tenant) (Tenant, bool, error)
	// EnsureMember creates m unless the uid already has a membership, which is returned instead.
	EnsureMember(ctx context.Context, m TenantUser) (TenantUser, bool, error)
	GetTenant(ctx context.Context, id string) (Tenant, error)
	GetMember(ctx context.Context, uid string) (TenantUser, error)
	// ActivateMember marks the membership of uid active.
	ActivateMember(ctx context.Context, uid string) (TenantUser, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	ListMembers(ctx context.Context, tenantID string) ([]TenantUser, error)
	UpdateSettings(ctx context.Context, id string, settings Settings) (Tenant, error)
	UpdateTier(ctx context.Context, id string, tier features.Tier) (Tenant, error)
}

// ProvisionRecorder observes newly created tenants.
type ProvisionRecorder interface {
	TenantProvisioned(demo bool)
}

// DefaultDemoTenantID is the fixed id of the shared demo tenant.
const DefaultDemoTenantID = "demo-tenant"

// DemoSlug is reserved for the demo tenant; regular tenants never receive it.
const DemoSlug = "demo"

const defaultSlugAttempts = 5

// Config wires optional collaborators.
type Config struct {
	DemoTenantID string
	DemoMatcher  tenant.DemoMatcher
	SlugAttempts int
	Recorder     ProvisionRecorder
	Now          func() time.Time
	NewID        func() string
}

// Service resolves principals to tenants and manages tenant records.
type Service struct {
	repo         Repository
	demoTenantID string
	demo         tenant.DemoMatcher
	slugAttempts int
	recorder     ProvisionRecorder
	now          func() time.Time
	newID        func() string
}

// New constructs a Service with required dependencies.
func New(repo Repository, cfg Config) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	s := &Service{
		repo:         repo,
		demoTenantID: cfg.DemoTenantID,
		demo:         cfg.DemoMatcher,
		slugAttempts: cfg.SlugAttempts,
		recorder:     cfg.Recorder,
		now:          cfg.Now,
		newID:        cfg.NewID,
	}
	if s.demoTenantID == "" {
		s.demoTenantID = DefaultDemoTenantID
	}
	if s.slugAttempts <= 0 {
		s.slugAttempts = defaultSlugAttempts
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// DemoTenantID returns the id of the shared demo tenant.
func (s *Service) DemoTenantID() string { return s.demoTenantID }

// IsDemoEmail reports whether email belongs to a demo account.
func (s *Service) IsDemoEmail(email string) bool { return s.demo.IsDemo(email) }

// GetTenantIDForUser maps a principal to its tenant id. Demo accounts always
// resolve to the demo tenant, which is provisioned on first use. Principals
// without an active membership get ErrTenantNotFound; a pending invitation
// does not count until it is accepted.
func (s *Service) GetTenantIDForUser(ctx context.Context, uid, email string) (string, error) {
	if strings.TrimSpace(uid) == "" {
		return "", invalid("uid", "is required")
	}

	if s.demo.IsDemo(email) {
		if err := s.ensureDemo(ctx, uid, email); err != nil {
			return "", err
		}
		return s.demoTenantID, nil
	}

	member, err := s.repo.GetMember(ctx, uid)
	if errors.Is(err, ErrMemberNotFound) {
		return "", ErrTenantNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup membership: %w", err)
	}
	if member.Status != StatusActive {
		return "", ErrTenantNotFound
	}
	return member.TenantID, nil
}

// ensureDemo checks for the demo tenant and membership and creates whichever
// is missing. Concurrent first logins race on the store's create-if-absent;
// the loser sees the winner's record and carries on.
func (s *Service) ensureDemo(ctx context.Context, uid, email string) error {
	_, err := s.repo.GetTenant(ctx, s.demoTenantID)
	switch {
	case errors.Is(err, ErrTenantNotFound):
		now := s.now()
		_, created, err := s.repo.EnsureTenant(ctx, Tenant{
			ID:         s.demoTenantID,
			Name:       "Demo Freight Co",
			Slug:       DemoSlug,
			OwnerID:    uid,
			OwnerEmail: email,
			Settings:   DefaultSettings("Demo Freight Co"),
			Tier:       features.DefaultTier,
			IsDemo:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("provision demo tenant: %w", err)
		}
		if created && s.recorder != nil {
			s.recorder.TenantProvisioned(true)
		}
	case err != nil:
		return fmt.Errorf("lookup demo tenant: %w", err)
	}

	_, err = s.repo.GetMember(ctx, uid)
	switch {
	case errors.Is(err, ErrMemberNotFound):
		if _, _, err := s.repo.EnsureMember(ctx, TenantUser{
			UID:       uid,
			TenantID:  s.demoTenantID,
			Email:     email,
			Role:      RoleAdmin,
			Status:    StatusActive,
			CreatedAt: s.now(),
		}); err != nil {
			return fmt.Errorf("provision demo membership: %w", err)
		}
	case err != nil:
		return fmt.Errorf("lookup demo membership: %w", err)
	}
	return nil
}

// CreateTenant provisions a tenant owned by the principal, with an admin
// membership written in the same atomic step. The slug derives from the
// company name; on collision (or when it equals DemoSlug) a random suffix is
// appended, up to a bounded number of attempts. A pending invitation does not
// block onboarding; the new tenant replaces it.
func (s *Service) CreateTenant(ctx context.Context, ownerUID, ownerEmail, companyName string) (Tenant, error) {
	companyName = strings.TrimSpace(companyName)
	if strings.TrimSpace(ownerUID) == "" {
		return Tenant{}, invalid("uid", "is required")
	}
	if companyName == "" {
		return Tenant{}, invalid("companyName", "is required")
	}
	if len(companyName) > 200 {
		return Tenant{}, invalid("companyName", "must be at most 200 characters")
	}
	if s.demo.IsDemo(ownerEmail) {
		return Tenant{}, ErrAlreadyMember
	}

	if member, err := s.repo.GetMember(ctx, ownerUID); err == nil {
		if member.Status == StatusActive {
			return Tenant{}, ErrAlreadyMember
		}
	} else if !errors.Is(err, ErrMemberNotFound) {
		return Tenant{}, fmt.Errorf("lookup membership: %w", err)
	}

	base := tenant.Slugify(companyName)
	for attempt := 0; attempt < s.slugAttempts; attempt++ {
		slug := base
		if attempt > 0 {
			slug = tenant.Disambiguate(base)
		}

		if slug == DemoSlug {
			continue
		}
		taken, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return Tenant{}, fmt.Errorf("check slug: %w", err)
		}
		if taken {
			continue
		}

		now := s.now()
		created, err := s.repo.CreateTenant(ctx, Tenant{
			ID:         s.newID(),
			Name:       companyName,
			Slug:       slug,
			OwnerID:    ownerUID,
			OwnerEmail: ownerEmail,
			Settings:   DefaultSettings(companyName),
			Tier:       features.DefaultTier,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, TenantUser{
			UID:       ownerUID,
			Email:     ownerEmail,
			Role:      RoleAdmin,
			Status:    StatusActive,
			CreatedAt: now,
		})
		switch {
		case errors.Is(err, ErrSlugTaken):
			continue
		case errors.Is(err, ErrAlreadyMember):
			return Tenant{}, ErrAlreadyMember
		case err != nil:
			return Tenant{}, fmt.Errorf("create tenant: %w", err)
		}

		if s.recorder != nil {
			s.recorder.TenantProvisioned(false)
		}
		return created, nil
	}

	return Tenant{}, ErrSlugUnavailable
}

// AddUserToTenant adds a membership, invited unless the caller says otherwise.
// Re-adding an existing member of the same tenant is a no-op returning the
// stored membership. The demo tenant is shared, so nobody can be added to it.
func (s *Service) AddUserToTenant(ctx context.Context, tenantID string, user TenantUser) (TenantUser, error) {
	if strings.TrimSpace(user.UID) == "" {
		return TenantUser{}, invalid("uid", "is required")
	}
	if user.Role == "" {
		user.Role = RoleViewer
	}
	if !user.Role.IsValid() {
		return TenantUser{}, invalid("role", "must be one of admin, dispatcher, viewer")
	}
	if user.Status == "" {
		user.Status = StatusInvited
	}

	t, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return TenantUser{}, err
	}
	if t.IsDemo {
		return TenantUser{}, ErrDemoReadOnly
	}

	user.TenantID = tenantID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	member, created, err := s.repo.EnsureMember(ctx, user)
	if err != nil {
		return TenantUser{}, fmt.Errorf("add member: %w", err)
	}
	if !created && member.TenantID != tenantID {
		return TenantUser{}, ErrMemberOfOtherTenant
	}
	return member, nil
}

// PendingInvitation returns the invited membership of uid, or ErrInvitationNotFound.
func (s *Service) PendingInvitation(ctx context.Context, uid string) (TenantUser, error) {
	member, err := s.repo.GetMember(ctx, uid)
	switch {
	case errors.Is(err, ErrMemberNotFound):
		return TenantUser{}, ErrInvitationNotFound
	case err != nil:
		return TenantUser{}, fmt.Errorf("lookup membership: %w", err)
	case member.Status != StatusInvited:
		return TenantUser{}, ErrInvitationNotFound
	}
	return member, nil
}

// AcceptInvitation activates the pending invitation of uid and returns the
// tenant it joins. Demo principals always belong to the demo tenant and
// cannot accept invitations.
func (s *Service) AcceptInvitation(ctx context.Context, uid, email string) (Tenant, TenantUser, error) {
	if s.demo.IsDemo(email) {
		return Tenant{}, TenantUser{}, ErrAlreadyMember
	}
	invite, err := s.PendingInvitation(ctx, uid)
	if err != nil {
		return Tenant{}, TenantUser{}, err
	}

	member, err := s.repo.ActivateMember(ctx, invite.UID)
	if err != nil {
		return Tenant{}, TenantUser{}, fmt.Errorf("accept invitation: %w", err)
	}
	t, err := s.repo.GetTenant(ctx, member.TenantID)
	if err != nil {
		return Tenant{}, TenantUser{}, err
	}
	return t, member, nil
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id string) (Tenant, error) {
	return s.repo.GetTenant(ctx, id)
}

// List returns all tenants.
func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	return s.repo.ListTenants(ctx)
}

// Members returns the memberships of a tenant.
func (s *Service) Members(ctx context.Context, tenantID string) ([]TenantUser, error) {
	return s.repo.ListMembers(ctx, tenantID)
}

// Current resolves the principal and returns its tenant and membership.
func (s *Service) Current(ctx context.Context, uid, email string) (Tenant, TenantUser, error) {
	tenantID, err := s.GetTenantIDForUser(ctx, uid, email)
	if err != nil {
		return Tenant{}, TenantUser{}, err
	}

	t, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return Tenant{}, TenantUser{}, err
	}

	member, err := s.repo.GetMember(ctx, uid)
	switch {
	case err == nil && member.TenantID == tenantID:
	case err == nil || errors.Is(err, ErrMemberNotFound):
		// demo principals whose membership points elsewhere act as demo admins
		member = TenantUser{UID: uid, TenantID: tenantID, Email: email, Role: RoleAdmin, Status: StatusActive}
	default:
		return Tenant{}, TenantUser{}, err
	}
	return t, member, nil
}

// ResolveScope maps a principal to the request scope used by the tenant middleware.
func (s *Service) ResolveScope(ctx context.Context, uid, email string) (tenant.Scope, error) {
	t, member, err := s.Current(ctx, uid, email)
	if errors.Is(err, ErrTenantNotFound) {
		return tenant.Scope{}, tenant.ErrNotResolved
	}
	if err != nil {
		return tenant.Scope{}, err
	}

	tier, _ := features.ParseTier(string(t.Tier))
	return tenant.Scope{
		TenantID: t.ID,
		Slug:     t.Slug,
		Role:     string(member.Role),
		IsDemo:   t.IsDemo,
		Tier:     tier,
	}, nil
}

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	distanceUnits   = map[string]bool{"miles": true, "kilometers": true}
	fuelUnits       = map[string]bool{"gallons": true, "liters": true}
)

// UpdateSettings applies a partial settings update. Only admins may change
// settings, and never on the shared demo tenant.
func (s *Service) UpdateSettings(ctx context.Context, tenantID string, role Role, patch SettingsPatch) (Tenant, error) {
	if role != RoleAdmin {
		return Tenant{}, ErrForbidden
	}

	current, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return Tenant{}, err
	}
	if current.IsDemo {
		return Tenant{}, ErrDemoReadOnly
	}

	settings := current.Settings
	fields := map[string]string{}
	if patch.CompanyName != nil {
		if name := strings.TrimSpace(*patch.CompanyName); name == "" {
			fields["companyName"] = "must not be empty"
		} else {
			settings.CompanyName = name
		}
	}
	if patch.Timezone != nil {
		if _, err := time.LoadLocation(*patch.Timezone); err != nil || *patch.Timezone == "" {
			fields["timezone"] = "must be an IANA time zone"
		} else {
			settings.Timezone = *patch.Timezone
		}
	}
	if patch.Currency != nil {
		if !currencyPattern.MatchString(*patch.Currency) {
			fields["currency"] = "must be an ISO 4217 code"
		} else {
			settings.Currency = *patch.Currency
		}
	}
	if patch.DistanceUnit != nil {
		if !distanceUnits[*patch.DistanceUnit] {
			fields["distanceUnit"] = "must be miles or kilometers"
		} else {
			settings.DistanceUnit = *patch.DistanceUnit
		}
	}
	if patch.FuelUnit != nil {
		if !fuelUnits[*patch.FuelUnit] {
			fields["fuelUnit"] = "must be gallons or liters"
		} else {
			settings.FuelUnit = *patch.FuelUnit
		}
	}
	if len(fields) > 0 {
		return Tenant{}, &ValidationError{Fields: fields}
	}

	return s.repo.UpdateSettings(ctx, tenantID, settings)
}

// UpdateTier changes the subscription tier stored on the tenant record.
func (s *Service) UpdateTier(ctx context.Context, tenantID string, tier features.Tier) (Tenant, error) {
	if !tier.IsValid() {
		return Tenant{}, invalid("tier", "must be one of trial, starter, professional, enterprise")
	}
	return s.repo.UpdateTier(ctx, tenantID, tier)
}
