package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/filesystem"
	"github.com/avrix-dev/avrix-sdk/artifact/ports"
	"github.com/avrix-dev/avrix-sdk/artifact/resolvers"
	"github.com/avrix-dev/avrix-sdk/artifact/services"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
	"github.com/avrix-dev/avrix-sdk/netutil"
	"github.com/avrix-dev/avrix-sdk/registry"
)

// SelectedVersionKey is the settings key holding the selected version id.
const SelectedVersionKey = "selectedVersionId"

// maxManifestSize caps the version catalog download.
const maxManifestSize = 4 << 20

// VersionService manages the version root: listing, installation from
// local bundles, URLs and the remote manifest, repair, selection and removal.
type VersionService struct {
	versions    ports.VersionRepository
	fetcher     ports.Fetcher
	store       ports.KeyValueStore
	bundle      *services.Verifier
	jarDetector services.VersionDetector
	dirDetector services.VersionDetector
	logger      *slog.Logger
	opts        serviceOptions
}

// NewVersionService creates a version service. fetcher may be nil when no
// remote operation is used; store may be nil when selection is not used.
func NewVersionService(versions ports.VersionRepository, fetcher ports.Fetcher, store ports.KeyValueStore, opts ...Option) *VersionService {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	jar := services.NewJarVersionDetector()
	return &VersionService{
		versions:    versions,
		fetcher:     fetcher,
		store:       store,
		bundle:      services.NewVerifier(services.WithExtension(""), services.WithCeiling(values.BundleCeiling)),
		jarDetector: jar,
		dirDetector: services.NewDirectoryVersionDetector(jar),
		logger:      o.logger,
		opts:        o,
	}
}

// Root returns the version root.
func (s *VersionService) Root() string {
	return s.versions.Root()
}

// List describes every version directory, sorted by id. Descriptor
// failures are tolerated; the entry simply lacks version and display name.
func (s *VersionService) List(ctx context.Context) (*entities.VersionsResult, error) {
	ids, err := s.versions.IDs(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]entities.VersionEntry, 0, len(ids))
	for _, id := range ids {
		dir, err := s.versions.Dir(id)
		if err != nil {
			continue
		}
		entries = append(entries, s.describe(id, dir))
	}

	selected, _, err := s.GetSelected(ctx)
	if err != nil {
		s.logger.Warn("failed to read selected version", "error", err)
	}

	return &entities.VersionsResult{
		Root:       s.versions.Root(),
		SelectedID: selected,
		Versions:   entries,
	}, nil
}

func (s *VersionService) describe(id, dir string) entities.VersionEntry {
	entry := entities.VersionEntry{
		ID:         id,
		Dir:        dir,
		HasRuntime: s.hasRuntime(dir),
		SizeKB:     filesystem.DirSizeKB(dir),
	}
	if info, err := os.Stat(dir); err == nil {
		entry.Modified = info.ModTime().Unix()
	}

	core := filepath.Join(dir, services.CoreArtifactName)
	if d, _, err := archive.ReadDescriptor(core); err == nil {
		entry.Version = d.Version
		entry.DisplayName = d.Name
	}
	return entry
}

func (s *VersionService) hasRuntime(dir string) bool {
	launcher := filepath.Join("bin", "java")
	if runtime.GOOS == "windows" {
		launcher = filepath.Join("bin", "javaw.exe")
	}
	return filesystem.Exists(filepath.Join(dir, s.opts.runtimeDir, launcher))
}

// InstallFromLocal installs a version from a directory, a zip bundle or a
// single core jar. The version id is derived from the content.
func (s *VersionService) InstallFromLocal(ctx context.Context, path string) (*entities.VersionInstallResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &entities.NotFoundError{What: path}
		}
		return nil, entities.NewIOError("stat", path, err)
	}
	s.logger.Info("installing version", "source", path)

	switch {
	case info.IsDir():
		return s.installDir(ctx, path)
	case strings.EqualFold(filepath.Ext(path), ".zip"):
		a, err := archive.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = a.Close() }()
		return s.installBundle(ctx, a)
	case values.HasPluginExtension(path):
		return s.installJar(ctx, path)
	default:
		return nil, &entities.WrongExtensionError{Path: path, Want: "directory, .zip or .jar"}
	}
}

// InstallFromURL downloads a bundle or core jar and installs it. A last
// URL path segment ending in .zip selects the bundle flow.
func (s *VersionService) InstallFromURL(ctx context.Context, url string) (*entities.VersionInstallResult, error) {
	if s.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	s.logger.Info("downloading version", "url", netutil.StripCredentials(url))

	data, err := s.download(ctx, url)
	if err != nil {
		return nil, err
	}

	seg := netutil.LastPathSegment(url)
	if strings.HasSuffix(strings.ToLower(seg), ".zip") {
		a, err := archive.OpenBytes(seg, data)
		if err != nil {
			return nil, err
		}
		return s.installBundle(ctx, a)
	}

	// Keep the download's own name so the file name can still yield a version.
	name := seg
	if !values.HasPluginExtension(name) || strings.ContainsAny(name, `/\`) {
		name = services.CoreArtifactName
	}

	return s.installStagedJar(ctx, name, data)
}

func (s *VersionService) installDir(ctx context.Context, src string) (*entities.VersionInstallResult, error) {
	ver, err := s.dirDetector.Detect(ctx, src)
	if err != nil {
		return nil, err
	}
	id, err := values.NewVersionID(ver)
	if err != nil {
		return nil, err
	}

	dest, err := s.versions.Create(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := filesystem.CopyDir(src, dest); err != nil {
		s.abandon(dest)
		return nil, err
	}
	return s.installed(id, dest, "installed"), nil
}

func (s *VersionService) installBundle(ctx context.Context, a *archive.Archive) (result *entities.VersionInstallResult, err error) {
	st, err := s.opts.newStaging("avrix-version-")
	if err != nil {
		return nil, err
	}
	defer func() { st.Release(err) }()

	if err = archive.ExtractAll(ctx, a, st.dir); err != nil {
		return nil, err
	}

	ver, err := s.dirDetector.Detect(ctx, st.dir)
	if err != nil {
		return nil, err
	}
	id, err := values.NewVersionID(ver)
	if err != nil {
		return nil, err
	}

	// Adopt renames the staging directory away on success.
	dest, err := s.versions.Adopt(ctx, id, st.dir)
	if err != nil {
		return nil, err
	}
	return s.installed(id, dest, "extracted"), nil
}

func (s *VersionService) installJar(ctx context.Context, src string) (*entities.VersionInstallResult, error) {
	ver, err := s.jarDetector.Detect(ctx, src)
	if err != nil {
		return nil, err
	}
	id, err := values.NewVersionID(ver)
	if err != nil {
		return nil, err
	}

	dest, err := s.versions.Create(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := filesystem.CopyFile(src, filepath.Join(dest, services.CoreArtifactName)); err != nil {
		s.abandon(dest)
		return nil, err
	}
	return s.installed(id, dest, "created"), nil
}

func (s *VersionService) installStagedJar(ctx context.Context, name string, data []byte) (result *entities.VersionInstallResult, err error) {
	st, err := s.opts.newStaging("avrix-core-")
	if err != nil {
		return nil, err
	}
	defer func() { st.Release(err) }()

	staged := st.Path(name)
	if err = os.WriteFile(staged, data, 0o644); err != nil {
		return nil, entities.NewIOError("write", staged, err)
	}
	return s.installJar(ctx, staged)
}

// InstallFromManifest installs the catalog entry matching tag ("latest"
// selects the newest). Both downloads complete before the version
// directory is created, so a failed download leaves nothing behind.
func (s *VersionService) InstallFromManifest(ctx context.Context, tag string) (*entities.VersionInstallResult, error) {
	entry, err := s.lookup(ctx, tag)
	if err != nil {
		return nil, err
	}
	id, err := values.NewVersionID(entry.Version)
	if err != nil {
		return nil, err
	}

	if dir, derr := s.versions.Dir(id.String()); derr == nil && filesystem.Exists(dir) {
		return nil, &entities.AlreadyInstalledError{ID: id.String(), Dir: dir}
	}

	core, runtimeZip, err := s.downloadRelease(ctx, entry)
	if err != nil {
		return nil, err
	}

	dest, err := s.versions.Create(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.writeRelease(ctx, dest, core, runtimeZip); err != nil {
		s.abandon(dest)
		return nil, err
	}
	return s.installed(id, dest, "installed"), nil
}

// RepairFromManifest re-downloads the catalog entry matching tag into its
// version directory, replacing the core jar and the runtime folder.
func (s *VersionService) RepairFromManifest(ctx context.Context, tag string) (*entities.VersionInstallResult, error) {
	entry, err := s.lookup(ctx, tag)
	if err != nil {
		return nil, err
	}
	id, err := values.NewVersionID(entry.Version)
	if err != nil {
		return nil, err
	}
	dest, err := s.versions.Dir(id.String())
	if err != nil {
		return nil, err
	}

	core, runtimeZip, err := s.downloadRelease(ctx, entry)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, entities.NewIOError("create_dir", dest, err)
	}
	if runtimeZip != nil {
		rt := filepath.Join(dest, s.opts.runtimeDir)
		if err := os.RemoveAll(rt); err != nil {
			return nil, entities.NewIOError("remove", rt, err)
		}
	}
	if err := s.writeRelease(ctx, dest, core, runtimeZip); err != nil {
		return nil, err
	}
	return s.installed(id, dest, "repaired"), nil
}

func (s *VersionService) downloadRelease(ctx context.Context, entry *entities.ManifestVersion) (core, runtimeZip []byte, err error) {
	s.logger.Info("downloading core artifact", "version", entry.Version)
	core, err = s.download(ctx, entry.CoreURL)
	if err != nil {
		return nil, nil, fmt.Errorf("core artifact download failed: %w", err)
	}

	if entry.JreURL != "" {
		s.logger.Info("downloading runtime", "version", entry.Version)
		runtimeZip, err = s.download(ctx, entry.JreURL)
		if err != nil {
			return nil, nil, fmt.Errorf("runtime download failed: %w", err)
		}
	}
	return core, runtimeZip, nil
}

func (s *VersionService) writeRelease(ctx context.Context, dest string, core, runtimeZip []byte) error {
	corePath := filepath.Join(dest, services.CoreArtifactName)
	if err := os.WriteFile(corePath, core, 0o644); err != nil {
		return entities.NewIOError("write", corePath, err)
	}
	if runtimeZip == nil {
		return nil
	}
	return s.installRuntime(ctx, dest, runtimeZip)
}

// installRuntime unpacks the runtime bundle into dest/<runtimeDir>. A
// bundle whose root holds a folder of that name contributes that folder;
// otherwise the bundle root is the runtime.
func (s *VersionService) installRuntime(ctx context.Context, dest string, data []byte) error {
	a, err := archive.OpenBytes("runtime.zip", data)
	if err != nil {
		return err
	}

	tmp := filepath.Join(dest, "_runtime_tmp")
	_ = os.RemoveAll(tmp)
	defer func() { _ = os.RemoveAll(tmp) }()

	if err := archive.ExtractAll(ctx, a, tmp); err != nil {
		return err
	}

	final := filepath.Join(dest, s.opts.runtimeDir)
	src := tmp
	if nested := filepath.Join(tmp, s.opts.runtimeDir); filesystem.IsDir(nested) {
		src = nested
	}
	return filesystem.MoveDir(src, final)
}

// ListAvailable returns the catalog entries, newest first.
func (s *VersionService) ListAvailable(ctx context.Context) ([]entities.AvailableVersion, error) {
	m, err := s.fetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string][]entities.AvailableVersion, len(m.Versions))
	order := make([]string, 0, len(m.Versions))
	for _, v := range m.Versions {
		ver := values.NormalizeTag(v.Version)
		tag := v.Tag
		if tag == "" {
			tag = values.VersionPrefix + ver
		}
		if _, ok := byVersion[ver]; !ok {
			order = append(order, ver)
		}
		byVersion[ver] = append(byVersion[ver], entities.AvailableVersion{
			Tag:         tag,
			Version:     ver,
			CoreURL:     v.CoreURL,
			JreURL:      v.JreURL,
			PublishedAt: v.PublishedAt,
		})
	}

	out := make([]entities.AvailableVersion, 0, len(m.Versions))
	for _, ver := range resolvers.SortNewestFirst(order) {
		out = append(out, byVersion[ver]...)
	}
	return out, nil
}

// Select stores id as the selected version; nil clears the selection.
func (s *VersionService) Select(ctx context.Context, id *string) error {
	if s.store == nil {
		return errors.New("no settings store configured")
	}
	if id == nil {
		return s.store.Delete(ctx, SelectedVersionKey)
	}
	return s.store.Set(ctx, SelectedVersionKey, *id)
}

// GetSelected returns the selected version id, if any.
func (s *VersionService) GetSelected(ctx context.Context) (string, bool, error) {
	if s.store == nil {
		return "", false, nil
	}
	return s.store.Get(ctx, SelectedVersionKey)
}

// SelectedDir returns the directory of the selected version when it exists.
func (s *VersionService) SelectedDir(ctx context.Context) (string, bool, error) {
	id, ok, err := s.GetSelected(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	dir, err := s.versions.Dir(id)
	if err != nil || !filesystem.IsDir(dir) {
		return "", false, nil
	}
	return dir, true, nil
}

// Delete removes the version directory id, clearing the selection first
// when it points at id.
func (s *VersionService) Delete(ctx context.Context, id string) (string, error) {
	dir, err := s.versions.Dir(id)
	if err != nil {
		return "", err
	}
	if !filesystem.IsDir(dir) {
		return "", &entities.NotFoundError{What: id}
	}

	if selected, ok, err := s.GetSelected(ctx); err == nil && ok && selected == id {
		if err := s.Select(ctx, nil); err != nil {
			s.logger.Warn("failed to clear selection", "id", id, "error", err)
		}
	}

	if err := s.versions.Remove(ctx, id); err != nil {
		return "", err
	}
	s.logger.Info("version deleted", "id", id)
	return fmt.Sprintf("Deleted: %s", id), nil
}

// lookup fetches the manifest and finds the entry for tag.
func (s *VersionService) lookup(ctx context.Context, tag string) (*entities.ManifestVersion, error) {
	m, err := s.fetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	needle := values.NormalizeTag(tag)
	if strings.EqualFold(strings.TrimSpace(tag), resolvers.LatestConstraint) {
		needle, err = s.latest(m)
		if err != nil {
			return nil, err
		}
	}

	for i := range m.Versions {
		if values.NormalizeTag(m.Versions[i].Version) == needle {
			return &m.Versions[i], nil
		}
	}
	return nil, &entities.ManifestEntryNotFoundError{Version: tag}
}

// latest prefers the manifest's own latest field, then the highest semver.
func (s *VersionService) latest(m *entities.Manifest) (string, error) {
	if m.Latest != "" {
		return values.NormalizeTag(m.Latest), nil
	}

	available := make([]string, 0, len(m.Versions))
	for _, v := range m.Versions {
		available = append(available, values.NormalizeTag(v.Version))
	}
	ver, err := s.opts.resolver.Resolve(resolvers.LatestConstraint, available)
	if err != nil {
		return "", &entities.ManifestEntryNotFoundError{Version: resolvers.LatestConstraint}
	}
	return ver, nil
}

func (s *VersionService) fetchManifest(ctx context.Context) (*entities.Manifest, error) {
	if s.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}

	url := s.opts.manifestURL
	data, err := s.fetcher.Get(ctx, url, maxManifestSize)
	if err != nil {
		return nil, fmt.Errorf("manifest unavailable: %w", err)
	}

	if s.opts.schemas != nil {
		if err := s.opts.schemas.Validate(registry.KindManifest, data); err != nil {
			return nil, fmt.Errorf("invalid manifest: %w", err)
		}
	}

	m, err := s.opts.manifestParser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	s.logger.Debug("manifest fetched", "url", netutil.StripCredentials(url), "versions", len(m.Versions))
	return m, nil
}

// download runs the HEAD preflight and the capped GET for one bundle.
func (s *VersionService) download(ctx context.Context, url string) ([]byte, error) {
	if length, known, err := s.fetcher.Head(ctx, url); err == nil && known {
		if err := s.bundle.CheckSize(length, true); err != nil {
			return nil, err
		}
	}
	return s.fetcher.Get(ctx, url, s.bundle.Ceiling().Bytes())
}

// abandon removes a version directory left half-written by a failed install.
func (s *VersionService) abandon(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn("failed to remove incomplete version", "dir", dir, "error", err)
	}
}

func (s *VersionService) installed(id values.VersionID, dir, verb string) *entities.VersionInstallResult {
	s.logger.Info("version "+verb, "id", id.String(), "dir", dir)
	return &entities.VersionInstallResult{
		ID:      id.String(),
		Dir:     dir,
		Version: id.Version(),
		Message: fmt.Sprintf("Version %s %s in %s", id, verb, dir),
	}
}
