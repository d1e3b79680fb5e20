package contracts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAPI(t *testing.T) {
	spec, err := LoadAPI(context.Background())
	require.NoError(t, err)

	for _, path := range []string{
		"/api/v1/tenant",
		"/api/v1/tenant/invitation/accept",
		"/api/v1/features/gate",
		"/api/v1/dashboard",
		"/api/v1/loads/{id}",
		"/api/v1/settlements",
		"/api/v1/fleet",
		"/api/v1/attachments/{collection}/{id}/{name}",
	} {
		require.NotNilf(t, spec.Paths.Find(path), "missing path %s", path)
	}
	require.Contains(t, spec.Components.SecuritySchemes, "bearerAuth")
}
