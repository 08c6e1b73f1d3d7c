package artifact_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrix-dev/avrix-sdk/artifact"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/repository"
	"github.com/avrix-dev/avrix-sdk/registry"
)

const manifestURL = "https://manifest.example/avrix/manifest.json"

type versionFixture struct {
	svc     *artifact.VersionService
	root    string
	staging string
	fetcher *artifact.MockFetcher
	store   *artifact.MockStore
}

func newVersionFixture(t *testing.T, opts ...artifact.Option) *versionFixture {
	t.Helper()

	base := t.TempDir()
	f := &versionFixture{
		root:    filepath.Join(base, "versions"),
		staging: filepath.Join(base, "staging"),
		fetcher: &artifact.MockFetcher{Responses: map[string]artifact.MockResponse{}},
		store:   &artifact.MockStore{},
	}

	repo, err := repository.NewFSVersionRepository(f.root)
	require.NoError(t, err)

	all := append([]artifact.Option{
		artifact.WithLogger(artifact.NewTestLogger()),
		artifact.WithStagingDir(f.staging),
		artifact.WithManifestURL(manifestURL),
		artifact.WithSchemaRegistry(registry.Default()),
	}, opts...)
	f.svc = artifact.NewVersionService(repo, f.fetcher, f.store, all...)
	return f
}

func (f *versionFixture) serve(url string, body []byte) {
	f.fetcher.Responses[url] = artifact.MockResponse{Body: body}
}

func coreJar(t *testing.T, version string) []byte {
	t.Helper()
	return jar(t, file{"metadata.yml", "name: Avrix Core\nversion: \"" + version + "\"\n"}, file{"Main.class", "cafebabe"})
}

func javaLauncher() string {
	if runtime.GOOS == "windows" {
		return "javaw.exe"
	}
	return "java"
}

func TestVersionService_InstallFromLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A well-formed core archive with version 2.0.0 lands in v2.0.0.
	t.Run("scenario B and C", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		data := coreJar(t, "2.0.0")
		src := write(t, filepath.Join(t.TempDir(), "core-build.jar"), data)

		res, err := f.svc.InstallFromLocal(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, "v2.0.0", res.ID)
		assert.Equal(t, "2.0.0", res.Version)
		assert.Equal(t, filepath.Join(f.root, "v2.0.0"), res.Dir)

		installed := filepath.Join(f.root, "v2.0.0", "Avrix-Core.jar")
		got, err := os.ReadFile(installed)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		marker := write(t, filepath.Join(f.root, "v2.0.0", "marker.txt"), []byte("keep"))

		other := write(t, filepath.Join(t.TempDir(), "other.jar"), coreJar(t, "v2.0.0"))
		_, err = f.svc.InstallFromLocal(ctx, other)
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrAlreadyInstalled)

		assert.FileExists(t, marker)
		got, err = os.ReadFile(installed)
		require.NoError(t, err)
		assert.Equal(t, data, got, "existing version is untouched")
	})

	t.Run("zip bundle", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		bundle := jar(t,
			file{"release/Avrix-Core-3.1.0.jar", string(coreJar(t, "3.1.0"))},
			file{"release/jre/bin/" + javaLauncher(), "#!"},
		)
		src := write(t, filepath.Join(t.TempDir(), "release.zip"), bundle)

		res, err := f.svc.InstallFromLocal(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, "v3.1.0", res.ID)
		assert.FileExists(t, filepath.Join(res.Dir, "release", "Avrix-Core-3.1.0.jar"))
		assert.Empty(t, stagingEntries(t, f.staging), "staging is adopted or removed")

		_, err = f.svc.InstallFromLocal(ctx, src)
		assert.ErrorIs(t, err, entities.ErrAlreadyInstalled)
		assert.Empty(t, stagingEntries(t, f.staging), "AlreadyInstalled always cleans staging")
	})

	t.Run("zip without version keeps staging", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		src := write(t, filepath.Join(t.TempDir(), "empty.zip"), jar(t, file{"readme.txt", "nothing"}))

		_, err := f.svc.InstallFromLocal(ctx, src)
		assert.ErrorIs(t, err, entities.ErrVersionUndetectable)
		assert.Len(t, stagingEntries(t, f.staging), 1)
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		src := t.TempDir()
		write(t, filepath.Join(src, "Avrix-Core.jar"), jar(t, file{"x", "y"}))
		write(t, filepath.Join(src, "lib", "dep.jar"), []byte("dep"))

		// No descriptor: the version falls back to the file name chain and fails.
		_, err := f.svc.InstallFromLocal(ctx, src)
		require.ErrorIs(t, err, entities.ErrVersionUndetectable)

		write(t, filepath.Join(src, "Avrix-Core.jar"), coreJar(t, "1.5.0"))
		res, err := f.svc.InstallFromLocal(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, "v1.5.0", res.ID)
		assert.FileExists(t, filepath.Join(res.Dir, "lib", "dep.jar"))
	})

	t.Run("jar version from file name", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		src := write(t, filepath.Join(t.TempDir(), "Avrix-Core-0.7.2.jar"), jar(t, file{"x", "y"}))

		res, err := f.svc.InstallFromLocal(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, "v0.7.2", res.ID)
		assert.FileExists(t, filepath.Join(res.Dir, "Avrix-Core.jar"))
	})

	t.Run("rejections", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		dir := t.TempDir()

		_, err := f.svc.InstallFromLocal(ctx, filepath.Join(dir, "missing.zip"))
		assert.ErrorIs(t, err, entities.ErrNotFound)

		_, err = f.svc.InstallFromLocal(ctx, write(t, filepath.Join(dir, "notes.txt"), []byte("x")))
		assert.ErrorIs(t, err, entities.ErrWrongExtension)

		_, err = f.svc.InstallFromLocal(ctx, write(t, filepath.Join(dir, "broken.zip"), []byte("not a zip")))
		assert.ErrorIs(t, err, entities.ErrArchiveCorrupt)
	})
}

func TestVersionService_InstallFromURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("core jar", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.serve("https://dl.example/builds/Avrix-Core-4.0.1.jar", jar(t, file{"x", "y"}))

		res, err := f.svc.InstallFromURL(ctx, "https://dl.example/builds/Avrix-Core-4.0.1.jar")
		require.NoError(t, err)
		assert.Equal(t, "v4.0.1", res.ID)
		assert.FileExists(t, filepath.Join(res.Dir, "Avrix-Core.jar"))
		assert.Empty(t, stagingEntries(t, f.staging))
	})

	t.Run("zip bundle", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.serve("https://dl.example/release.zip?token=1", jar(t, file{"Avrix-Core.jar", string(coreJar(t, "4.2.0"))}))

		res, err := f.svc.InstallFromURL(ctx, "https://dl.example/release.zip?token=1")
		require.NoError(t, err)
		assert.Equal(t, "v4.2.0", res.ID)
	})

	t.Run("oversized HEAD", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.fetcher.Responses["https://dl.example/huge.zip"] = artifact.MockResponse{Length: 300 << 20, HasLength: true}

		_, err := f.svc.InstallFromURL(ctx, "https://dl.example/huge.zip")
		assert.ErrorIs(t, err, entities.ErrTooLarge)
		assert.Equal(t, 0, f.fetcher.GetCount())
	})
}

const manifestDoc = `{
  "latest": "1.2.0",
  "versions": [
    {"tag": "v1.0.0", "version": "1.0.0", "coreUrl": "https://dl.example/1.0.0/core.jar"},
    {"tag": "v1.2.0", "version": "1.2.0", "coreUrl": "https://dl.example/1.2.0/core.jar", "jreUrl": "https://dl.example/1.2.0/jre.zip", "publishedAt": "2024-03-01"},
    {"version": "v1.10.0", "coreUrl": "https://dl.example/1.10.0/core.jar", "jreUrl": "https://dl.example/1.10.0/jre.zip"},
    {"tag": "nightly", "version": "nightly", "coreUrl": "https://dl.example/nightly/core.jar"}
  ]
}`

func TestVersionService_ListAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newVersionFixture(t)
	f.serve(manifestURL, []byte(manifestDoc))

	got, err := f.svc.ListAvailable(ctx)
	require.NoError(t, err)

	var tags, versions []string
	for _, v := range got {
		tags = append(tags, v.Tag)
		versions = append(versions, v.Version)
	}
	assert.Equal(t, []string{"1.10.0", "1.2.0", "1.0.0", "nightly"}, versions)
	assert.Equal(t, []string{"v1.10.0", "v1.2.0", "v1.0.0", "nightly"}, tags)
	assert.Equal(t, "2024-03-01", got[1].PublishedAt)
}

func TestVersionService_ManifestErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		doc     string
		tag     string
		wantErr error
	}{
		{name: "unknown tag", doc: manifestDoc, tag: "9.9.9", wantErr: entities.ErrManifestEntryNotFound},
		{name: "schema violation", doc: `{"latest": "1.0"}`, tag: "1.0"},
		{name: "not json", doc: `<html>`, tag: "1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newVersionFixture(t)
			f.serve(manifestURL, []byte(tt.doc))

			_, err := f.svc.InstallFromManifest(ctx, tt.tag)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, f.fetcher.GetCount(), "nothing is downloaded past the manifest")
		})
	}

	t.Run("manifest unavailable", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		_, err := f.svc.ListAvailable(ctx)
		assert.ErrorIs(t, err, entities.ErrBadStatus)
	})
}

func TestVersionService_InstallFromManifest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("latest with nested runtime folder", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.serve(manifestURL, []byte(manifestDoc))
		core := coreJar(t, "1.2.0")
		f.serve("https://dl.example/1.2.0/core.jar", core)
		f.serve("https://dl.example/1.2.0/jre.zip", jar(t,
			file{"jre/bin/" + javaLauncher(), "#!"},
			file{"jre/lib/modules", "m"},
		))

		res, err := f.svc.InstallFromManifest(ctx, "latest")
		require.NoError(t, err)
		assert.Equal(t, "v1.2.0", res.ID)

		got, err := os.ReadFile(filepath.Join(res.Dir, "Avrix-Core.jar"))
		require.NoError(t, err)
		assert.Equal(t, core, got)
		assert.FileExists(t, filepath.Join(res.Dir, "jre", "bin", javaLauncher()))
		assert.FileExists(t, filepath.Join(res.Dir, "jre", "lib", "modules"))
		assert.NoDirExists(t, filepath.Join(res.Dir, "_runtime_tmp"))

		list, err := f.svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list.Versions, 1)
		assert.True(t, list.Versions[0].HasRuntime)
		assert.Equal(t, "1.2.0", list.Versions[0].Version)
		assert.Equal(t, "Avrix Core", list.Versions[0].DisplayName)

		gets := f.fetcher.GetCount()
		_, err = f.svc.InstallFromManifest(ctx, "v1.2.0")
		assert.ErrorIs(t, err, entities.ErrAlreadyInstalled)
		assert.Equal(t, gets+1, f.fetcher.GetCount(), "only the manifest is fetched again")
	})

	t.Run("flat runtime bundle", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.serve(manifestURL, []byte(manifestDoc))
		f.serve("https://dl.example/1.10.0/core.jar", coreJar(t, "1.10.0"))
		f.serve("https://dl.example/1.10.0/jre.zip", jar(t, file{"bin/" + javaLauncher(), "#!"}))

		res, err := f.svc.InstallFromManifest(ctx, "1.10.0")
		require.NoError(t, err)
		assert.Equal(t, "v1.10.0", res.ID)
		assert.FileExists(t, filepath.Join(res.Dir, "jre", "bin", javaLauncher()))
	})

	t.Run("latest resolved by semver without latest field", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.serve(manifestURL, []byte(`{"versions": [
			{"version": "2.0.0", "coreUrl": "https://dl.example/2.0.0/core.jar"},
			{"version": "2.3.1", "coreUrl": "https://dl.example/2.3.1/core.jar"}
		]}`))
		f.serve("https://dl.example/2.3.1/core.jar", coreJar(t, "2.3.1"))

		res, err := f.svc.InstallFromManifest(ctx, "LATEST")
		require.NoError(t, err)
		assert.Equal(t, "v2.3.1", res.ID)
	})

	t.Run("failed runtime download leaves nothing", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.serve(manifestURL, []byte(manifestDoc))
		f.serve("https://dl.example/1.2.0/core.jar", coreJar(t, "1.2.0"))

		_, err := f.svc.InstallFromManifest(ctx, "1.2.0")
		assert.ErrorIs(t, err, entities.ErrBadStatus)
		assert.NoDirExists(t, filepath.Join(f.root, "v1.2.0"))
	})

	t.Run("corrupt runtime abandons the version", func(t *testing.T) {
		t.Parallel()
		f := newVersionFixture(t)
		f.serve(manifestURL, []byte(manifestDoc))
		f.serve("https://dl.example/1.2.0/core.jar", coreJar(t, "1.2.0"))
		f.serve("https://dl.example/1.2.0/jre.zip", []byte("not a zip"))

		_, err := f.svc.InstallFromManifest(ctx, "1.2.0")
		assert.ErrorIs(t, err, entities.ErrArchiveCorrupt)
		assert.NoDirExists(t, filepath.Join(f.root, "v1.2.0"))
	})
}

func TestVersionService_RepairFromManifest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newVersionFixture(t)
	f.serve(manifestURL, []byte(manifestDoc))
	core := coreJar(t, "1.2.0")
	f.serve("https://dl.example/1.2.0/core.jar", core)
	f.serve("https://dl.example/1.2.0/jre.zip", jar(t, file{"jre/bin/" + javaLauncher(), "#!"}))

	dir := filepath.Join(f.root, "v1.2.0")
	write(t, filepath.Join(dir, "Avrix-Core.jar"), []byte("damaged"))
	write(t, filepath.Join(dir, "jre", "stale.txt"), []byte("old"))
	write(t, filepath.Join(dir, "mods.txt"), []byte("user data"))

	res, err := f.svc.RepairFromManifest(ctx, "v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, dir, res.Dir)

	got, err := os.ReadFile(filepath.Join(dir, "Avrix-Core.jar"))
	require.NoError(t, err)
	assert.Equal(t, core, got)
	assert.NoFileExists(t, filepath.Join(dir, "jre", "stale.txt"))
	assert.FileExists(t, filepath.Join(dir, "jre", "bin", javaLauncher()))
	assert.FileExists(t, filepath.Join(dir, "mods.txt"))
}

func TestVersionService_SelectAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newVersionFixture(t)
	write(t, filepath.Join(f.root, "v1.0.0", "Avrix-Core.jar"), coreJar(t, "1.0.0"))
	write(t, filepath.Join(f.root, "v2.0.0", "Avrix-Core.jar"), coreJar(t, "2.0.0"))

	_, ok, err := f.svc.SelectedDir(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	id := "v2.0.0"
	require.NoError(t, f.svc.Select(ctx, &id))

	dir, ok, err := f.svc.SelectedDir(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(f.root, "v2.0.0"), dir)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", list.SelectedID)
	require.Len(t, list.Versions, 2)
	assert.Equal(t, "v1.0.0", list.Versions[0].ID)
	assert.False(t, list.Versions[0].HasRuntime)
	assert.Positive(t, list.Versions[0].SizeKB)

	_, err = f.svc.Delete(ctx, "v9.9.9")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	_, err = f.svc.Delete(ctx, "../outside")
	assert.Error(t, err)

	msg, err := f.svc.Delete(ctx, "v2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Deleted: v2.0.0", msg)
	assert.NoDirExists(t, dir)

	_, ok, err = f.svc.GetSelected(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "deleting the selected version clears the selection")

	require.NoError(t, f.svc.Select(ctx, &id))
	require.NoError(t, f.svc.Select(ctx, nil))
	_, ok, err = f.svc.GetSelected(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
