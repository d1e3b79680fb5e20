package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zenGate-Global/freightdesk/platform/go/auth/devtoken"
)

func main() {
	projectID := flag.String("project-id", "", "Firebase project ID (used for iss/aud)")
	userID := flag.String("user-id", "", "user_id/sub/uid claim")
	email := flag.String("email", "", "email claim")
	name := flag.String("name", "", "display name")
	emailVerified := flag.Bool("email-verified", true, "email_verified claim")
	role := flag.String("role", "", "role custom claim")
	tenantID := flag.String("tenant-id", "", "tenantId custom claim")
	expiresIn := flag.Duration("expires-in", time.Hour, "token lifetime (duration, e.g. 30m, 2h)")
	audience := flag.String("audience", "", "override aud (defaults to project-id)")
	issuer := flag.String("issuer", "", "override iss (defaults to https://securetoken.google.com/<project-id>)")

	flag.Parse()

	params := devtoken.Params{
		ProjectID:     strings.TrimSpace(*projectID),
		UserID:        strings.TrimSpace(*userID),
		Email:         strings.TrimSpace(*email),
		Name:          strings.TrimSpace(*name),
		EmailVerified: *emailVerified,
		Role:          strings.TrimSpace(*role),
		TenantID:      strings.TrimSpace(*tenantID),
		ExpiresIn:     *expiresIn,
		Audience:      strings.TrimSpace(*audience),
		Issuer:        strings.TrimSpace(*issuer),
	}

	token, err := devtoken.BuildUnsignedFirebaseToken(params, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
