// Package registry keeps JSON schemas for externally sourced documents and
// validates raw payloads against them.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
)

// Document kinds registered by Default.
const (
	KindManifest = "manifest"
	KindSidecar  = "sidecar"
)

// sidecarSchema describes workshop-ids.json: a flat object of file name to id.
const sidecarSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": {"type": "string"}
}`

const schemaBaseURL = "https://schemas.avrix.dev/"

// Registry implements SchemaRegistry using in-memory storage.
type Registry struct {
	schemas   map[string]string
	compiled  map[string]*jsonschemav5.Schema
	reflector *jsonschema.Reflector
	mu        sync.RWMutex
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithStrictMode rejects unknown properties in reflected schemas.
func WithStrictMode(strict bool) RegistryOption {
	return func(r *Registry) {
		r.reflector.AllowAdditionalProperties = !strict
	}
}

// NewRegistry creates an empty schema registry.
// Reflected schemas tolerate unknown properties unless WithStrictMode(true) is given.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		schemas:  make(map[string]string),
		compiled: make(map[string]*jsonschemav5.Schema),
		reflector: &jsonschema.Reflector{
			ExpandedStruct:            true,
			AllowAdditionalProperties: true,
			Anonymous:                 true,
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Default returns a registry with the manifest and side-car schemas registered.
func Default() *Registry {
	r := NewRegistry()
	// Both registrations use fixed inputs and cannot collide.
	_ = r.Register(KindManifest, entities.Manifest{})
	_ = r.Register(KindSidecar, sidecarSchema)
	return r
}

// Register adds a schema for a document kind.
// model can be a Go struct (to generate schema) or a raw JSON schema string, map or byte slice.
func (r *Registry) Register(kind string, model interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[kind]; exists {
		return fmt.Errorf("schema kind already registered: %s", kind)
	}

	var schemaStr string

	switch v := model.(type) {
	case string:
		schemaStr = v
	case []byte:
		schemaStr = string(v)
	case map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal schema map: %w", err)
		}
		schemaStr = string(b)
	default:
		t := reflect.TypeOf(model)
		if t == nil || (t.Kind() != reflect.Struct && !(t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct)) {
			return fmt.Errorf("cannot derive schema for %s from %T", kind, model)
		}

		s := r.reflector.Reflect(model)
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal generated schema: %w", err)
		}
		schemaStr = string(b)
	}

	compiled, err := compile(kind, schemaStr)
	if err != nil {
		return err
	}

	r.schemas[kind] = schemaStr
	r.compiled[kind] = compiled
	return nil
}

func compile(kind, schema string) (*jsonschemav5.Schema, error) {
	url := schemaBaseURL + kind + ".json"

	c := jsonschemav5.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", kind, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", kind, err)
	}
	return s, nil
}

// GetSchema retrieves the JSON Schema for a document kind.
func (r *Registry) GetSchema(kind string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[kind]
	return s, ok
}

// Validate decodes document and checks it against the schema of kind.
func (r *Registry) Validate(kind string, document []byte) error {
	r.mu.RLock()
	s, ok := r.compiled[kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no schema registered for %s", kind)
	}

	dec := json.NewDecoder(bytes.NewReader(document))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", kind, err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s does not match schema: %w", kind, err)
	}
	return nil
}

// List returns all registered document kinds, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
