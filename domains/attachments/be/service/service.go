package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"

	entities "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/storage"
)

var (
	ErrNotFound    = errors.New("attachment not found")
	ErrInvalidName = errors.New("invalid attachment name")
	ErrTooLarge    = errors.New("attachment too large")
)

// DefaultMaxBytes caps a single upload.
const DefaultMaxBytes int64 = 10 << 20

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// EntityReader confirms the owning record exists inside the caller's tenant.
type EntityReader interface {
	GetByID(ctx context.Context, c entities.Collection, tenantID, id string) (entities.Document, error)
}

// Attachment is a file stored against one tenant record.
type Attachment struct {
	Name string `json:"name"`
	storage.Object
}

// Service stores files such as rate confirmations, BOLs and PODs next to
// tenant records.
type Service struct {
	store    storage.Store
	entities EntityReader
	maxBytes int64
}

func New(store storage.Store, entities EntityReader, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, entities: entities, maxBytes: maxBytes}
}

// MaxBytes is the upload limit in bytes.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

func (s *Service) List(ctx context.Context, tenantID string, c entities.Collection, id string) ([]Attachment, error) {
	if _, err := s.entities.GetByID(ctx, c, tenantID, id); err != nil {
		return nil, err
	}
	prefix, err := storage.ObjectKey(tenantID, ownerKey(c, id))
	if err != nil {
		return nil, err
	}
	objects, err := s.store.List(ctx, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	out := make([]Attachment, 0, len(objects))
	for _, o := range objects {
		out = append(out, Attachment{Name: path.Base(o.Key), Object: o})
	}
	return out, nil
}

// Upload stores r under name, replacing any previous file with that name.
// Reading past the size limit fails with ErrTooLarge.
func (s *Service) Upload(ctx context.Context, tenantID string, c entities.Collection, id, name, contentType string, r io.Reader) (Attachment, error) {
	key, err := s.key(ctx, tenantID, c, id, name)
	if err != nil {
		return Attachment{}, err
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	limited := &limitReader{r: r, remaining: s.maxBytes}
	obj, err := s.store.Put(ctx, key, contentType, limited)
	if limited.exceeded {
		_ = s.store.Delete(ctx, key)
		return Attachment{}, ErrTooLarge
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("store attachment: %w", err)
	}
	return Attachment{Name: name, Object: obj}, nil
}

// Open returns the file content. Callers close the reader.
func (s *Service) Open(ctx context.Context, tenantID string, c entities.Collection, id, name string) (io.ReadCloser, Attachment, error) {
	key, err := s.key(ctx, tenantID, c, id, name)
	if err != nil {
		return nil, Attachment{}, err
	}
	rc, obj, err := s.store.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, Attachment{}, ErrNotFound
	}
	if err != nil {
		return nil, Attachment{}, err
	}
	return rc, Attachment{Name: name, Object: obj}, nil
}

func (s *Service) Delete(ctx context.Context, tenantID string, c entities.Collection, id, name string) error {
	key, err := s.key(ctx, tenantID, c, id, name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) key(ctx context.Context, tenantID string, c entities.Collection, id, name string) (string, error) {
	if !namePattern.MatchString(name) || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	if _, err := s.entities.GetByID(ctx, c, tenantID, id); err != nil {
		return "", err
	}
	return storage.ObjectKey(tenantID, ownerKey(c, id)+"/"+name)
}

func ownerKey(c entities.Collection, id string) string {
	return string(c) + "/" + id
}

type limitReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrTooLarge
	}
	return n, err
}
