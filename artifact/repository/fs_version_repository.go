package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/filesystem"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
)

// FSVersionRepository implements ports.VersionRepository. Each installed
// version is one directory directly under the root.
type FSVersionRepository struct {
	root string
}

// NewFSVersionRepository creates a repository rooted at dir.
func NewFSVersionRepository(dir string) (*FSVersionRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("versions directory cannot be empty")
	}
	return &FSVersionRepository{root: filepath.Clean(dir)}, nil
}

// Root returns the versions directory.
func (r *FSVersionRepository) Root() string {
	return r.root
}

// Dir returns the directory for id, whether or not it exists.
func (r *FSVersionRepository) Dir(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("version id cannot be empty")
	}
	return containedPath(r.root, id)
}

// IDs creates the root when missing and returns its subdirectory names in
// ascending order.
func (r *FSVersionRepository) IDs(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return nil, entities.NewIOError("create_dir", r.root, err)
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, entities.NewIOError("read_dir", r.root, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Create makes the directory for id. The directory is created with a
// single exclusive mkdir so two installers racing for the same id cannot
// both succeed.
func (r *FSVersionRepository) Create(ctx context.Context, id values.VersionID) (string, error) {
	dir, err := r.Dir(id.String())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return "", entities.NewIOError("create_dir", r.root, err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return "", &entities.AlreadyInstalledError{ID: id.String(), Dir: dir}
		}
		return "", entities.NewIOError("create_dir", dir, err)
	}
	return dir, nil
}

// Adopt moves the prepared directory src into place as id.
func (r *FSVersionRepository) Adopt(ctx context.Context, id values.VersionID, src string) (string, error) {
	dir, err := r.Dir(id.String())
	if err != nil {
		return "", err
	}

	if filesystem.Exists(dir) {
		return "", &entities.AlreadyInstalledError{ID: id.String(), Dir: dir}
	}
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return "", entities.NewIOError("create_dir", r.root, err)
	}
	if err := filesystem.MoveDir(src, dir); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", &entities.AlreadyInstalledError{ID: id.String(), Dir: dir}
		}
		return "", err
	}
	return dir, nil
}

// Remove deletes the directory named id and everything under it.
func (r *FSVersionRepository) Remove(ctx context.Context, id string) error {
	dir, err := r.Dir(id)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &entities.NotFoundError{What: id}
		}
		return entities.NewIOError("stat", dir, err)
	}
	if !info.IsDir() {
		return &entities.NotFoundError{What: id}
	}

	return entities.NewIOError("remove", dir, os.RemoveAll(dir))
}
