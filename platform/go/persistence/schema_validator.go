package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrUnknownSchema is returned when no schema was registered under a name.
var ErrUnknownSchema = errors.New("unknown schema")

// SchemaValidator validates JSON payloads against named JSON Schemas compiled
// via santhosh-tekuri/jsonschema. Compilation is lazy and cached.
type SchemaValidator struct {
	mu          sync.RWMutex
	definitions map[string][]byte
	cache       map[string]*jsonschema.Schema
}

// NewSchemaValidator returns a validator with no registered schemas.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		definitions: make(map[string][]byte),
		cache:       make(map[string]*jsonschema.Schema),
	}
}

// LoadSchemaValidator registers every <name>.json file found at the root of fsys.
func LoadSchemaValidator(fsys fs.FS, dir string) (*SchemaValidator, error) {
	v := NewSchemaValidator()
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		if err := v.Register(strings.TrimSuffix(entry.Name(), ".json"), raw); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Register adds or replaces the schema definition stored under name.
func (v *SchemaValidator) Register(name string, definition []byte) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("schema name is required")
	}
	if !json.Valid(definition) {
		return fmt.Errorf("schema %s is not valid JSON", name)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.definitions[name] = append([]byte(nil), definition...)
	delete(v.cache, name)
	return nil
}

// Has reports whether a schema is registered under name.
func (v *SchemaValidator) Has(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.definitions[name]
	return ok
}

// Validate ensures the payload matches the schema registered under name.
// Schema violations are returned as *jsonschema.ValidationError.
func (v *SchemaValidator) Validate(ctx context.Context, name string, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is required for validation")
	}

	compiled, err := v.getOrCompile(name)
	if err != nil {
		return err
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	return compiled.Validate(document)
}

func (v *SchemaValidator) getOrCompile(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	compiled, ok := v.cache[name]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// another goroutine may have populated the cache while we were waiting
	if compiled, ok = v.cache[name]; ok {
		return compiled, nil
	}

	definition, ok := v.definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}

	key := "memory://schemas/" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(key, bytes.NewReader(definition)); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", name, err)
	}

	newCompiled, err := compiler.Compile(key)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	v.cache[name] = newCompiled
	return newCompiled, nil
}
