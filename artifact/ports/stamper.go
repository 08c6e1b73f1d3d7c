package ports

import "context"

// Stamper rewrites descriptor fields of installed archives in the background.
type Stamper interface {
	// Stamp schedules a patch of the descriptor inside the archive at path.
	// The returned channel receives exactly one value once the rewrite ends.
	Stamp(ctx context.Context, path string, patch map[string]string) <-chan error
}
