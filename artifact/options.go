// Package artifact implements the plugin and version use cases on top of the
// archive, verification and repository layers.
package artifact

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/ports"
	"github.com/avrix-dev/avrix-sdk/artifact/resolvers"
	"github.com/avrix-dev/avrix-sdk/parser"
	"github.com/avrix-dev/avrix-sdk/registry"
)

// DefaultManifestURL is the catalog of published versions.
const DefaultManifestURL = "https://s3.storage.skymunt.com/avrix-loader/manifest.json"

// DefaultRuntimeDir is the runtime folder inside a version directory.
const DefaultRuntimeDir = "jre"

// serviceOptions holds the settings shared by PluginService and VersionService.
// Each service reads only the fields it needs.
type serviceOptions struct {
	logger         *slog.Logger
	stagingDir     string
	cleanupOnError bool

	// plugin pipeline
	coreArtifact  string
	sidecars      ports.SidecarRepository
	stamper       ports.Stamper
	workshopRoots []string

	// version repository
	manifestURL    string
	manifestParser parser.ManifestParser
	schemas        registry.SchemaRegistry
	resolver       ports.VersionResolver
	runtimeDir     string
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:         slog.Default(),
		stagingDir:     os.TempDir(),
		manifestURL:    DefaultManifestURL,
		manifestParser: parser.NewJSONManifestParser(),
		resolver:       resolvers.NewSemverResolver(),
		runtimeDir:     DefaultRuntimeDir,
	}
}

// Option configures a PluginService or a VersionService.
type Option func(*serviceOptions)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStagingDir sets where downloads and extractions are staged before
// they are moved into place.
func WithStagingDir(dir string) Option {
	return func(o *serviceOptions) {
		if dir != "" {
			o.stagingDir = dir
		}
	}
}

// WithStagingCleanup removes staging directories after failed installs too.
// By default they are kept so the rejected payload can be inspected.
func WithStagingCleanup(always bool) Option {
	return func(o *serviceOptions) { o.cleanupOnError = always }
}

// WithCoreArtifact sets the path of the core jar listed first by PluginService.List.
func WithCoreArtifact(path string) Option {
	return func(o *serviceOptions) { o.coreArtifact = path }
}

// WithSidecars sets the repository that records workshop ids of installed plugins.
func WithSidecars(r ports.SidecarRepository) Option {
	return func(o *serviceOptions) { o.sidecars = r }
}

// WithStamper sets the worker that stamps workshop ids into installed archives.
func WithStamper(s ports.Stamper) Option {
	return func(o *serviceOptions) { o.stamper = s }
}

// WithWorkshopRoots sets the directories searched by ScanWorkshop.
func WithWorkshopRoots(roots ...string) Option {
	return func(o *serviceOptions) { o.workshopRoots = roots }
}

// WithManifestURL overrides the version catalog location.
func WithManifestURL(url string) Option {
	return func(o *serviceOptions) {
		if url != "" {
			o.manifestURL = url
		}
	}
}

// WithManifestParser sets the parser used for the version catalog.
func WithManifestParser(p parser.ManifestParser) Option {
	return func(o *serviceOptions) { o.manifestParser = p }
}

// WithSchemaRegistry enables schema validation of fetched manifests.
func WithSchemaRegistry(r registry.SchemaRegistry) Option {
	return func(o *serviceOptions) { o.schemas = r }
}

// WithResolver sets the resolver used for the "latest" tag.
func WithResolver(r ports.VersionResolver) Option {
	return func(o *serviceOptions) { o.resolver = r }
}

// WithRuntimeDir sets the runtime folder name inside version directories.
func WithRuntimeDir(name string) Option {
	return func(o *serviceOptions) {
		if name != "" {
			o.runtimeDir = name
		}
	}
}

// staging is one uuid-named scratch directory.
type staging struct {
	dir            string
	logger         *slog.Logger
	cleanupOnError bool
}

func (o *serviceOptions) newStaging(prefix string) (*staging, error) {
	dir := filepath.Join(o.stagingDir, prefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, entities.NewIOError("create_dir", dir, err)
	}
	return &staging{dir: dir, logger: o.logger, cleanupOnError: o.cleanupOnError}, nil
}

// Path joins name under the staging directory.
func (s *staging) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Release removes the staging directory once the install finished with err.
// Successful installs and AlreadyInstalled rejections always clean up; other
// failures keep the payload for inspection unless cleanupOnError is set.
func (s *staging) Release(err error) {
	if err != nil && !errors.Is(err, entities.ErrAlreadyInstalled) && !s.cleanupOnError {
		s.logger.Debug("keeping staging directory", "dir", s.dir, "error", err)
		return
	}
	if rmErr := os.RemoveAll(s.dir); rmErr != nil {
		s.logger.Warn("failed to remove staging directory", "dir", s.dir, "error", rmErr)
	}
}
