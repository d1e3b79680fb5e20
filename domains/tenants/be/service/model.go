package service

import (
	"strings"
	"time"

	"github.com/zenGate-Global/freightdesk/platform/go/features"
)

// Role is a member's permission level inside a tenant.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDispatcher Role = "dispatcher"
	RoleViewer     Role = "viewer"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDispatcher, RoleViewer:
		return true
	default:
		return false
	}
}

// MemberStatus tracks whether a membership was accepted.
type MemberStatus string

const (
	StatusActive  MemberStatus = "active"
	StatusInvited MemberStatus = "invited"
)

// Settings holds tenant-wide display preferences.
type Settings struct {
	CompanyName  string `json:"companyName" firestore:"companyName"`
	Timezone     string `json:"timezone" firestore:"timezone"`
	Currency     string `json:"currency" firestore:"currency"`
	DistanceUnit string `json:"distanceUnit" firestore:"distanceUnit"`
	FuelUnit     string `json:"fuelUnit" firestore:"fuelUnit"`
}

// DefaultSettings returns the settings new tenants start with.
func DefaultSettings(companyName string) Settings {
	return Settings{
		CompanyName:  strings.TrimSpace(companyName),
		Timezone:     "America/Chicago",
		Currency:     "USD",
		DistanceUnit: "miles",
		FuelUnit:     "gallons",
	}
}

// Tenant is one customer organization.
type Tenant struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Slug       string        `json:"slug"`
	OwnerID    string        `json:"ownerId"`
	OwnerEmail string        `json:"ownerEmail"`
	Settings   Settings      `json:"settings"`
	Tier       features.Tier `json:"subscriptionTier"`
	IsDemo     bool          `json:"isDemo"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// TenantUser links a principal to exactly one tenant.
type TenantUser struct {
	UID       string       `json:"uid"`
	TenantID  string       `json:"tenantId"`
	Email     string       `json:"email"`
	Role      Role         `json:"role"`
	Status    MemberStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SettingsPatch carries the fields of a partial settings update.
type SettingsPatch struct {
	CompanyName  *string `json:"companyName,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	DistanceUnit *string `json:"distanceUnit,omitempty"`
	FuelUnit     *string `json:"fuelUnit,omitempty"`
}
