package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/registry"
)

// SidecarFileName is the mapping file written next to installed plugins.
const SidecarFileName = "workshop-ids.json"

// FileSidecarRepository implements ports.SidecarRepository with a JSON file
// per directory. Writes from one process are serialized; concurrent writers
// in other processes can still lose updates.
type FileSidecarRepository struct {
	schemas registry.SchemaRegistry
	mu      sync.Mutex
}

// NewFileSidecarRepository creates a repository. When schemas is non-nil,
// loaded files are checked against its side-car schema.
func NewFileSidecarRepository(schemas registry.SchemaRegistry) *FileSidecarRepository {
	return &FileSidecarRepository{schemas: schemas}
}

// Load reads the mapping stored in dir. A missing directory or file yields
// an empty map.
func (r *FileSidecarRepository) Load(ctx context.Context, dir string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(dir)
}

func (r *FileSidecarRepository) load(dir string) (map[string]string, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open directory %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	file, err := root.Open(SidecarFileName)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", SidecarFileName, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, entities.NewIOError("read", SidecarFileName, err)
	}

	if r.schemas != nil {
		if err := r.schemas.Validate(registry.KindSidecar, data); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", SidecarFileName, err)
		}
	}

	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", SidecarFileName, err)
	}
	return out, nil
}

// Put merges fileName -> id into the mapping of dir and rewrites the file.
func (r *FileSidecarRepository) Put(ctx context.Context, dir, fileName, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(dir)
	if err != nil {
		return err
	}
	current[fileName] = id

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening directory for write %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	file, err := root.OpenFile(SidecarFileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", SidecarFileName, err)
	}
	defer func() { _ = file.Close() }()

	// encoding/json sorts map keys, so the file is stable across writes.
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(current); err != nil {
		return fmt.Errorf("encoding %s: %w", SidecarFileName, err)
	}
	return nil
}
