package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const metaSuffix = ".meta.json"

// LocalStore keeps objects on the local filesystem under root. Intended for
// development and tests.
type LocalStore struct {
	root string
	now  func() time.Time
}

func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

type localMeta struct {
	ContentType string `json:"contentType"`
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStore) Put(_ context.Context, key, contentType string, r io.Reader) (Object, error) {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Object{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return Object{}, err
	}
	size, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, err
	}

	meta, err := json.Marshal(localMeta{ContentType: contentType})
	if err != nil {
		return Object{}, err
	}
	if err := os.WriteFile(p+metaSuffix, meta, 0o644); err != nil {
		return Object{}, err
	}
	return Object{Key: key, ContentType: contentType, Size: size, Updated: s.now().UTC()}, nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, Object, error) {
	obj, err := s.stat(key)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, Object{}, mapFSError(err)
	}
	return f, obj, nil
}

func (s *LocalStore) List(_ context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, metaSuffix) || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		obj, err := s.stat(key)
		if err != nil {
			return err
		}
		out = append(out, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil {
		return mapFSError(err)
	}
	_ = os.Remove(s.path(key) + metaSuffix)
	return nil
}

// Check verifies the root directory still exists.
func (s *LocalStore) Check(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.root)
	}
	return nil
}

func (s *LocalStore) stat(key string) (Object, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return Object{}, mapFSError(err)
	}
	obj := Object{Key: key, Size: info.Size(), Updated: info.ModTime().UTC()}
	if raw, err := os.ReadFile(s.path(key) + metaSuffix); err == nil {
		var meta localMeta
		if json.Unmarshal(raw, &meta) == nil {
			obj.ContentType = meta.ContentType
		}
	}
	return obj, nil
}

func mapFSError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

var _ Store = (*LocalStore)(nil)
