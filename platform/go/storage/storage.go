package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for keys that would escape their tenant prefix.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Object describes one stored blob.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Updated     time.Time `json:"updated"`
}

// Store persists blobs under flat keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
	Check(ctx context.Context) error
}

// TenantPrefix returns the key prefix every object of tenantID lives under.
func TenantPrefix(tenantID string) string {
	return "tenants/" + tenantID + "/"
}

// ObjectKey combines the tenant prefix and a tenant-relative logical key such
// as "loads/<id>/bol.pdf".
func ObjectKey(tenantID, logicalKey string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" || strings.ContainsAny(tenantID, "/\\") {
		return "", fmt.Errorf("%w: tenant id is required", ErrInvalidKey)
	}
	key := strings.TrimPrefix(strings.TrimSpace(logicalKey), "/")
	if key == "" {
		return "", fmt.Errorf("%w: logical key is required", ErrInvalidKey)
	}
	if cleaned := path.Clean(key); cleaned != key || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, logicalKey)
	}
	return TenantPrefix(tenantID) + key, nil
}
