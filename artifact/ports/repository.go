package ports

import (
	"context"
	"os"

	"github.com/avrix-dev/avrix-sdk/artifact/values"
)

// PluginFile is a file found in the plugins directory.
type PluginFile struct {
	Info os.FileInfo
	Path string
	Name string
}

// PluginRepository manages the plugins directory.
type PluginRepository interface {
	// Dir returns the plugins directory.
	Dir() string
	// Store copies the staged file at src into the directory under name.
	Store(ctx context.Context, name values.PluginFileName, src string) (string, error)
	// List returns the regular files of the directory.
	List(ctx context.Context) ([]PluginFile, error)
	// Delete removes one plugin archive.
	Delete(ctx context.Context, name values.PluginFileName) error
}

// VersionRepository manages the version root.
type VersionRepository interface {
	Root() string
	// Dir returns the directory named id, whether or not it exists.
	Dir(id string) (string, error)
	// IDs returns the names of every subdirectory of the root.
	IDs(ctx context.Context) ([]string, error)
	// Create makes the directory for id, failing with AlreadyInstalled if present.
	Create(ctx context.Context, id values.VersionID) (string, error)
	// Adopt moves a fully prepared directory into place as id.
	Adopt(ctx context.Context, id values.VersionID, src string) (string, error)
	// Remove deletes the directory named id.
	Remove(ctx context.Context, id string) error
}

// VersionResolver converts version constraints to exact versions.
type VersionResolver interface {
	Resolve(constraint string, available []string) (string, error)
}
