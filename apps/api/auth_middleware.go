package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
	"github.com/zenGate-Global/freightdesk/platform/go/gcp"
)

// buildVerifier picks the token verifier for AUTH_PROVIDER.
func buildVerifier(ctx context.Context, cfg config, fb *firebaseApp, logger *zap.Logger) (platformauth.VerifyFunc, error) {
	switch cfg.AuthProvider {
	case "firebase":
		app, err := fb.get(ctx)
		if err != nil {
			return nil, err
		}
		fbAuth, err := gcp.InitFirebaseAuth(ctx, app)
		if err != nil {
			return nil, err
		}
		return platformauth.FirebaseTokenVerifier(fbAuth), nil
	case "dev":
		logger.Warn("using dev auth middleware; do not use in production")
		return platformauth.UnsignedTokenVerifier(), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.AuthProvider)
	}
}
