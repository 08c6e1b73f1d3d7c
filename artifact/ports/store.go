package ports

import "context"

// KeyValueStore persists small preference values such as the selected version.
type KeyValueStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SidecarRepository persists the installed-file to external-id mapping kept
// next to installed plugins.
type SidecarRepository interface {
	Load(ctx context.Context, dir string) (map[string]string, error)
	// Put merges one key into the mapping stored in dir.
	Put(ctx context.Context, dir, fileName, id string) error
}
