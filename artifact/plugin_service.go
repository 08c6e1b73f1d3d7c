package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/filesystem"
	"github.com/avrix-dev/avrix-sdk/artifact/ports"
	"github.com/avrix-dev/avrix-sdk/artifact/services"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

// Plugin listing constants.
const (
	// CoreID is the id reported for the core jar when its descriptor has none.
	CoreID = "avrix-core"
	// DownloadedPluginName is used when a URL does not end in a jar name.
	DownloadedPluginName = "downloaded-plugin.jar"

	internalPluginsPrefix = "internal-plugins/"
)

// PluginService orchestrates plugin validation, installation and listing.
type PluginService struct {
	plugins  ports.PluginRepository
	fetcher  ports.Fetcher
	verifier *services.Verifier
	logger   *slog.Logger
	opts     serviceOptions
}

// NewPluginService creates a plugin service. The repository is required;
// fetcher may be nil when URL operations are not used.
func NewPluginService(plugins ports.PluginRepository, fetcher ports.Fetcher, opts ...Option) *PluginService {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PluginService{
		plugins:  plugins,
		fetcher:  fetcher,
		verifier: services.NewVerifier(),
		logger:   o.logger,
		opts:     o,
	}
}

// Dir returns the plugins directory.
func (s *PluginService) Dir() string {
	return s.plugins.Dir()
}

// ValidateLocal checks the jar at path without installing it.
func (s *PluginService) ValidateLocal(ctx context.Context, path string) (entities.ValidationOutcome, error) {
	v, err := s.verifier.VerifyFile(ctx, path, values.Permissive)
	if err != nil {
		return entities.ValidationOutcome{}, err
	}
	return v.Outcome, nil
}

// ValidateURL downloads the jar at url and checks it without installing it.
// An oversized advertised or received payload yields an invalid outcome;
// transport and status failures are returned as errors.
func (s *PluginService) ValidateURL(ctx context.Context, url string) (entities.ValidationOutcome, error) {
	if err := s.requireFetcher(); err != nil {
		return entities.ValidationOutcome{}, err
	}

	if length, ok := s.preflight(ctx, url); ok {
		if err := s.verifier.CheckSize(length, true); err != nil {
			return entities.NewInvalidOutcome(err.Error(), length, ""), nil
		}
	}

	data, err := s.fetcher.Get(ctx, url, s.verifier.Ceiling().Bytes())
	if err != nil {
		var tooLarge *entities.TooLargeError
		if errors.As(err, &tooLarge) {
			return entities.NewInvalidOutcome(err.Error(), tooLarge.Size, ""), nil
		}
		return entities.ValidationOutcome{}, err
	}

	v, err := s.verifier.VerifyBytes(ctx, remotePluginName(url).String(), data, values.Permissive)
	if err != nil {
		return entities.ValidationOutcome{}, err
	}
	return v.Outcome, nil
}

// InstallLocal validates the jar at path and copies it into the plugins directory.
func (s *PluginService) InstallLocal(ctx context.Context, path string) (*entities.InstallResult, error) {
	s.logger.Info("installing plugin", "source", path)

	v, err := s.verifier.VerifyFile(ctx, path, values.Strict)
	if err != nil {
		return nil, fmt.Errorf("plugin rejected: %w", err)
	}

	name, err := values.NewPluginFileName(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, name, v, path, func(dst string) error {
		return filesystem.CopyFile(path, dst)
	})
}

// InstallFromURL downloads, validates and installs the jar at url.
func (s *PluginService) InstallFromURL(ctx context.Context, url string) (*entities.InstallResult, error) {
	if err := s.requireFetcher(); err != nil {
		return nil, err
	}
	s.logger.Info("downloading plugin", "url", netutil.StripCredentials(url))

	if length, ok := s.preflight(ctx, url); ok {
		if err := s.verifier.CheckSize(length, true); err != nil {
			return nil, err
		}
	}

	data, err := s.fetcher.Get(ctx, url, s.verifier.Ceiling().Bytes())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("download complete", "bytes", len(data))

	name := remotePluginName(url)
	v, err := s.verifier.VerifyBytes(ctx, name.String(), data, values.Strict)
	if err != nil {
		return nil, fmt.Errorf("plugin rejected: %w", err)
	}

	return s.commit(ctx, name, v, url, func(dst string) error {
		return entities.NewIOError("write", dst, os.WriteFile(dst, data, 0o644))
	})
}

// commit stages the verified payload, re-reads its descriptor from disk,
// stores it and runs the workshop hook.
func (s *PluginService) commit(
	ctx context.Context,
	name values.PluginFileName,
	v services.Verification,
	source string,
	stage func(dst string) error,
) (result *entities.InstallResult, err error) {
	st, err := s.opts.newStaging("avrix-plugin-")
	if err != nil {
		return nil, err
	}
	defer func() { st.Release(err) }()

	staged := st.Path(name.String())
	if err = stage(staged); err != nil {
		return nil, err
	}

	d, _, err := archive.ReadDescriptor(staged)
	if err != nil {
		return nil, fmt.Errorf("staged plugin rejected: %w", err)
	}

	dest, err := s.plugins.Store(ctx, name, staged)
	if err != nil {
		return nil, fmt.Errorf("failed to store plugin: %w", err)
	}
	s.logger.Info("plugin installed", "path", dest, "sha256", v.Digest.Hex())

	result = &entities.InstallResult{
		Message:     fmt.Sprintf("Plugin installed: %s", dest),
		Path:        dest,
		Size:        v.Outcome.Size(),
		SHA256:      v.Digest.Hex(),
		Name:        d.Name,
		Version:     d.Version,
		Environment: d.Environment,
	}

	if id, ok := WorkshopID(source); ok {
		result.Stamp = s.recordWorkshopID(ctx, name, dest, id)
	}
	return result, nil
}

// recordWorkshopID writes the side-car entry and queues the descriptor
// stamp. The install has already succeeded, so failures are only logged.
func (s *PluginService) recordWorkshopID(ctx context.Context, name values.PluginFileName, dest, id string) <-chan error {
	if s.opts.sidecars != nil {
		if err := s.opts.sidecars.Put(ctx, s.plugins.Dir(), name.String(), id); err != nil {
			s.logger.Warn("failed to record workshop id", "plugin", name.String(), "id", id, "error", err)
		}
	}
	if s.opts.stamper == nil {
		return nil
	}

	// The stamp outlives this call; a caller cancelling ctx must not abort it.
	return s.opts.stamper.Stamp(context.WithoutCancel(ctx), dest, map[string]string{ExternalIDKey: id})
}

// Delete removes an installed plugin by file name. A missing plugins
// directory is not an error.
func (s *PluginService) Delete(ctx context.Context, name string) (string, error) {
	dir := s.plugins.Dir()
	if !isDir(dir) {
		return fmt.Sprintf("Plugins directory not found: %s", dir), nil
	}

	fileName, err := values.NewPluginFileName(name)
	if err != nil {
		return "", err
	}

	if !filesystem.Exists(filepath.Join(dir, fileName.String())) {
		return "", &entities.NotFoundError{What: name}
	}
	if !fileName.IsJar() {
		return "", &entities.WrongExtensionError{Path: name, Want: values.PluginExtension}
	}

	if err := s.plugins.Delete(ctx, fileName); err != nil {
		return "", err
	}
	s.logger.Info("plugin deleted", "plugin", name)
	return fmt.Sprintf("Deleted: %s", name), nil
}

// List builds the plugin listing: the core jar, the internal plugins it
// embeds, then every external jar in the plugins directory, sorted by name.
func (s *PluginService) List(ctx context.Context) (*entities.PluginsResult, error) {
	var out []entities.PluginEntry

	if s.opts.coreArtifact != "" && filesystem.Exists(s.opts.coreArtifact) {
		out = append(out, s.coreEntries(s.opts.coreArtifact)...)
	}

	files, err := s.plugins.List(ctx)
	if err != nil {
		return nil, err
	}
	if files == nil {
		s.logger.Warn("no plugins directory found", "dir", s.plugins.Dir())
	}

	for _, f := range files {
		if !isExternalPlugin(f.Name) {
			continue
		}
		out = append(out, s.externalEntry(f))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	s.logger.Debug("plugin scan finished", "count", len(out))

	if out == nil {
		out = []entities.PluginEntry{}
	}
	return &entities.PluginsResult{Dir: s.plugins.Dir(), Plugins: out}, nil
}

func isExternalPlugin(name string) bool {
	lower := strings.ToLower(name)
	return values.HasPluginExtension(name) &&
		!strings.Contains(lower, "launcher") &&
		!strings.HasPrefix(name, "Avrix-Core")
}

func (s *PluginService) externalEntry(f ports.PluginFile) entities.PluginEntry {
	entry := entities.PluginEntry{
		Name:     f.Name,
		SizeKB:   filesystem.SizeKB(f.Info.Size()),
		Modified: f.Info.ModTime().Unix(),
	}

	a, err := archive.Open(f.Path)
	if err == nil {
		defer func() { _ = a.Close() }()
		if d, loc, derr := archive.ExtractDescriptor(a); derr == nil {
			entry.ApplyDescriptor(d)
			img := archive.ResolveImage(a, d, loc)
			entry.Image, entry.ImageURL = img.Data, img.URL
			return entry
		}
	}

	s.logger.Debug("no descriptor, falling back to file name", "plugin", f.Name)
	if disp, ver, ok := services.ParseNameVersion(f.Name); ok {
		entry.DisplayName = disp
		entry.Version = ver
	}
	return entry
}

// coreEntries lists the core jar and its embedded internal plugins.
func (s *PluginService) coreEntries(path string) []entities.PluginEntry {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	a, err := archive.Open(path)
	if err != nil {
		s.logger.Warn("core artifact unreadable", "path", path, "error", err)
		return nil
	}
	defer func() { _ = a.Close() }()

	var out []entities.PluginEntry
	notInternal := false

	if d, loc, err := archive.ExtractDescriptor(a); err == nil {
		entry := entities.PluginEntry{
			Name:     services.CoreArtifactName,
			SizeKB:   filesystem.SizeKB(info.Size()),
			Modified: info.ModTime().Unix(),
		}
		entry.ApplyDescriptor(d)
		if entry.ID == "" {
			entry.ID = CoreID
		}
		entry.Internal = &notInternal
		entry.ParentID = ""
		img := archive.ResolveImage(a, d, loc)
		entry.Image, entry.ImageURL = img.Data, img.URL
		out = append(out, entry)
	} else {
		s.logger.Warn("core descriptor not found", "path", path, "error", err)
	}

	return append(out, s.internalEntries(a, info.ModTime().Unix(), out)...)
}

// internalEntries reads internal-plugins/*.yml from the core archive. Each
// id is registered once; ids already listed are skipped.
func (s *PluginService) internalEntries(a *archive.Archive, modified int64, listed []entities.PluginEntry) []entities.PluginEntry {
	seen := make(map[string]struct{}, len(listed))
	for _, e := range listed {
		seen[e.ID] = struct{}{}
	}

	internal := true
	var out []entities.PluginEntry
	for _, e := range a.Entries() {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, internalPluginsPrefix) || !strings.HasSuffix(name, ".yml") {
			continue
		}

		data, err := e.ReadAll(values.ImageCeiling.Bytes())
		if err != nil {
			continue
		}
		d, err := archive.ParseDescriptor(data)
		if err != nil || d.ID == "" {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}

		entry := entities.PluginEntry{
			Name:     d.ID + " (internal)",
			Modified: modified,
		}
		entry.ApplyDescriptor(d)
		entry.Internal = &internal
		if entry.ParentID == "" {
			entry.ParentID = CoreID
		}
		img := archive.ResolveImage(a, d, entities.LocationOf(name))
		entry.Image, entry.ImageURL = img.Data, img.URL

		s.logger.Debug("registered internal plugin", "id", d.ID)
		out = append(out, entry)
	}
	return out
}

// preflight issues the HEAD request. Failures are ignored: the GET that
// follows enforces the ceiling anyway.
func (s *PluginService) preflight(ctx context.Context, url string) (int64, bool) {
	length, known, err := s.fetcher.Head(ctx, url)
	if err != nil {
		s.logger.Debug("HEAD preflight failed", "url", netutil.StripCredentials(url), "error", err)
		return 0, false
	}
	return length, known
}

func (s *PluginService) requireFetcher() error {
	if s.fetcher == nil {
		return errors.New("no fetcher configured")
	}
	return nil
}

// remotePluginName picks the destination name for a download: the last
// URL path segment if it names a jar, else DownloadedPluginName.
func remotePluginName(url string) values.PluginFileName {
	if seg := netutil.LastPathSegment(url); values.HasPluginExtension(seg) {
		if name, err := values.NewPluginFileName(seg); err == nil {
			return name
		}
	}
	name, _ := values.NewPluginFileName(DownloadedPluginName)
	return name
}
