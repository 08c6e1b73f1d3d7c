package artifact_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/repository"
)

type file struct {
	name string
	body string
}

// jar builds a zip in the given entry order.
func jar(t *testing.T, files ...file) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		fw, err := w.Create(f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func write(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readDescriptor(t *testing.T, path string) *entities.Descriptor {
	t.Helper()
	d, _, err := archive.ReadDescriptor(path)
	require.NoError(t, err)
	return d
}

type pluginFixture struct {
	svc      *artifact.PluginService
	dir      string
	staging  string
	fetcher  *artifact.MockFetcher
	stamper  *artifact.MockStamper
	sidecars *artifact.MockSidecars
}

func newPluginFixture(t *testing.T, opts ...artifact.Option) *pluginFixture {
	t.Helper()

	root := t.TempDir()
	f := &pluginFixture{
		dir:      filepath.Join(root, "plugins"),
		staging:  filepath.Join(root, "staging"),
		fetcher:  &artifact.MockFetcher{Responses: map[string]artifact.MockResponse{}},
		stamper:  &artifact.MockStamper{},
		sidecars: &artifact.MockSidecars{},
	}

	repo, err := repository.NewFSPluginRepository(f.dir)
	require.NoError(t, err)

	base := []artifact.Option{
		artifact.WithLogger(artifact.NewTestLogger()),
		artifact.WithStagingDir(f.staging),
		artifact.WithStamper(f.stamper),
		artifact.WithSidecars(f.sidecars),
	}
	f.svc = artifact.NewPluginService(repo, f.fetcher, append(base, opts...)...)
	return f
}

func stagingEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return entries
}
