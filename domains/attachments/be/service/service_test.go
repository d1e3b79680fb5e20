package service_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/freightdesk/domains/attachments/be/service"
	entitiesrepo "github.com/zenGate-Global/freightdesk/domains/entities/be/repo"
	entities "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/storage"
)

func setup(t *testing.T, maxBytes int64) (*service.Service, string) {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	docs := entities.New(entitiesrepo.NewMemoryRepository(), entities.Config{})
	load, err := docs.Create(context.Background(), entities.Loads, "t1", map[string]any{"customerId": "c1"})
	require.NoError(t, err)

	return service.New(store, docs, maxBytes), load.ID
}

func TestUploadListOpenDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, loadID := setup(t, 0)
	require.Equal(t, service.DefaultMaxBytes, svc.MaxBytes())

	att, err := svc.Upload(ctx, "t1", entities.Loads, loadID, "bol.pdf", "", strings.NewReader("%PDF"))
	require.NoError(t, err)
	require.Equal(t, "bol.pdf", att.Name)
	require.Equal(t, "application/pdf", att.ContentType)
	require.Equal(t, "tenants/t1/loads/"+loadID+"/bol.pdf", att.Key)

	_, err = svc.Upload(ctx, "t1", entities.Loads, loadID, "pod.jpg", "image/jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)

	items, err := svc.List(ctx, "t1", entities.Loads, loadID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "bol.pdf", items[0].Name)

	rc, got, err := svc.Open(ctx, "t1", entities.Loads, loadID, "bol.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(body))
	require.Equal(t, int64(4), got.Size)

	require.NoError(t, svc.Delete(ctx, "t1", entities.Loads, loadID, "bol.pdf"))
	require.ErrorIs(t, svc.Delete(ctx, "t1", entities.Loads, loadID, "bol.pdf"), service.ErrNotFound)
	_, _, err = svc.Open(ctx, "t1", entities.Loads, loadID, "bol.pdf")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestOtherTenantCannotReachRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, loadID := setup(t, 0)

	_, err := svc.Upload(ctx, "t2", entities.Loads, loadID, "bol.pdf", "application/pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, entities.ErrNotFound)

	_, err = svc.List(ctx, "t2", entities.Loads, loadID)
	require.ErrorIs(t, err, entities.ErrNotFound)
}

func TestUploadRejectsBadNamesAndLargeFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, loadID := setup(t, 8)

	for _, name := range []string{"", ".hidden", "../x.pdf", "a b.pdf", "a..pdf", strings.Repeat("a", 129)} {
		_, err := svc.Upload(ctx, "t1", entities.Loads, loadID, name, "", strings.NewReader("x"))
		require.ErrorIsf(t, err, service.ErrInvalidName, "name %q", name)
	}

	_, err := svc.Upload(ctx, "t1", entities.Loads, loadID, "exact.bin", "", strings.NewReader("12345678"))
	require.NoError(t, err)

	_, err = svc.Upload(ctx, "t1", entities.Loads, loadID, "big.bin", "", strings.NewReader("123456789"))
	require.ErrorIs(t, err, service.ErrTooLarge)

	items, err := svc.List(ctx, "t1", entities.Loads, loadID)
	require.NoError(t, err)
	require.Len(t, items, 1)
}
