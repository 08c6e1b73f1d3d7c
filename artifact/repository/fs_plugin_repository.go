// Package repository implements the on-disk plugin and version repositories.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/filesystem"
	"github.com/avrix-dev/avrix-sdk/artifact/ports"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
)

// FSPluginRepository implements ports.PluginRepository over a flat
// directory of plugin archives. The directory is created on first Store.
type FSPluginRepository struct {
	root string
}

// NewFSPluginRepository creates a filesystem-based repository rooted at dir.
func NewFSPluginRepository(dir string) (*FSPluginRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("plugins directory cannot be empty")
	}
	return &FSPluginRepository{root: filepath.Clean(dir)}, nil
}

// Dir returns the plugins directory.
func (r *FSPluginRepository) Dir() string {
	return r.root
}

// Store copies the staged file at src into the plugins directory.
func (r *FSPluginRepository) Store(ctx context.Context, name values.PluginFileName, src string) (string, error) {
	dst, err := containedPath(r.root, name.String())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.root, 0o750); err != nil {
		return "", entities.NewIOError("create_dir", r.root, err)
	}
	if err := filesystem.CopyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// List returns the regular files of the plugins directory sorted by name.
// A missing directory yields an empty list.
func (r *FSPluginRepository) List(ctx context.Context) ([]ports.PluginFile, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, entities.NewIOError("read_dir", r.root, err)
	}

	files := make([]ports.PluginFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed while listing
		}
		files = append(files, ports.PluginFile{
			Info: info,
			Path: filepath.Join(r.root, e.Name()),
			Name: e.Name(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Delete removes one plugin archive.
func (r *FSPluginRepository) Delete(ctx context.Context, name values.PluginFileName) error {
	path, err := containedPath(r.root, name.String())
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &entities.NotFoundError{What: name.String()}
		}
		return entities.NewIOError("stat", path, err)
	}
	if info.IsDir() {
		return &entities.NotFoundError{What: name.String()}
	}

	return entities.NewIOError("remove", path, os.Remove(path))
}

// containedPath joins name under root and rejects results that escape it.
func containedPath(root, name string) (string, error) {
	// filepath.Join drops the root on Unix for absolute names.
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("security violation: absolute paths not allowed: %q", name)
	}

	cleanRoot := filepath.Clean(root)
	cleanPath := filepath.Clean(filepath.Join(root, name))

	if !strings.HasPrefix(cleanPath, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("security violation: path traversal detected for %q", name)
	}
	return cleanPath, nil
}
