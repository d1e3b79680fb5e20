package devtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Params captures the Firebase-compatible claims required to mint an unsigned JWT
// for local and CI environments. No environment variables are read so the
// builder stays deterministic for tooling.
type Params struct {
	ProjectID     string        // Firebase project id; used for aud and iss
	UserID        string        // user_id/sub/uid (required)
	Email         string        // email claim (required); demo addresses land in the demo tenant
	Name          string        // display name
	EmailVerified bool          // email_verified claim
	Role          string        // optional role custom claim
	TenantID      string        // optional tenantId custom claim
	ExpiresIn     time.Duration // relative expiry; default 1h if zero
	Audience      string        // optional override; defaults to ProjectID
	Issuer        string        // optional override; defaults to https://securetoken.google.com/<projectId>
}

// BuildUnsignedFirebaseToken returns a JWT signed with alg "none". The payload
// mirrors the Firebase ID token shape so it flows through the auth middleware
// when AUTH_PROVIDER=dev.
func BuildUnsignedFirebaseToken(p Params, now time.Time) (string, error) {
	if strings.TrimSpace(p.ProjectID) == "" {
		return "", errors.New("projectID is required")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return "", errors.New("userID is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return "", errors.New("email is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	issuer := p.Issuer
	if strings.TrimSpace(issuer) == "" {
		issuer = fmt.Sprintf("https://securetoken.google.com/%s", p.ProjectID)
	}

	audience := p.Audience
	if strings.TrimSpace(audience) == "" {
		audience = p.ProjectID
	}

	claims := jwt.MapClaims{
		"iss":            issuer,
		"aud":            audience,
		"auth_time":      now.Unix(),
		"user_id":        p.UserID,
		"sub":            p.UserID,
		"iat":            now.Unix(),
		"exp":            now.Add(expiresIn).Unix(),
		"email":          p.Email,
		"email_verified": p.EmailVerified,
		"firebase": map[string]interface{}{
			"identities":       map[string]interface{}{"email": []string{p.Email}},
			"sign_in_provider": "password",
		},
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	if p.Role != "" {
		claims["role"] = p.Role
	}
	if p.TenantID != "" {
		claims["tenantId"] = p.TenantID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	return token.SignedString(jwt.UnsafeAllowNoneSignatureType)
}
