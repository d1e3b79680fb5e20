package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "TMS_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata used to stamp createdBy/updatedBy on documents.
// UserID is set only when ActorKind is user. TenantID is filled once the tenant
// middleware resolved the principal's tenant.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *string
	Email     string
	TenantID  *string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	audit, ok := ctx.Value(ctxAuditInfo).(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// WithTenant returns ctx with the audit record's TenantID set.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	audit := FromContextOrAnonymous(ctx)
	audit.TenantID = &tenantID
	return IntoContext(ctx, audit)
}

// Actor returns the acting user id, or "system"/"anonymous" for non-user actors.
func (a AuditInfo) Actor() string {
	if a.ActorKind == ActorKindUser && a.UserID != nil {
		return *a.UserID
	}
	if a.ActorKind == "" {
		return string(ActorKindAnonymous)
	}
	return string(a.ActorKind)
}

// FromCredentials builds an AuditInfo from authenticated user credentials and a request ID.
// Returns an error when creds are nil or missing a UserID.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.Id == "" {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	id := creds.Id
	return AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &id,
		Email:     creds.Email,
		RequestID: requestID,
	}, nil
}

// Anonymous builds an AuditInfo for unauthenticated requests.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for CLI and background operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
