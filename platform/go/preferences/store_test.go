package preferences

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store, key string) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, key, "starter"))
	v, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "starter", v)

	require.NoError(t, store.Set(ctx, key, "enterprise"))
	v, _, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "enterprise", v)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryStore(), "prefs:test")
}

func TestRedisStore(t *testing.T) {
	url, ok := os.LookupEnv("TEST_REDIS_URL")
	if !ok || url == "" {
		t.Skip("TEST_REDIS_URL not set; skipping redis integration test")
	}

	ctx := context.Background()
	client, err := DialRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	key := "freightdesk:test:" + uuid.NewString()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	exerciseStore(t, NewRedisStore(client), key)
}
