package archive_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
)

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := archive.Open(filepath.Join(dir, "missing.jar"))
	assert.ErrorIs(t, err, entities.ErrNotFound)

	garbage := filepath.Join(dir, "garbage.jar")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a zip"), 0o644))
	_, err = archive.Open(garbage)
	assert.ErrorIs(t, err, entities.ErrArchiveCorrupt)

	_, err = archive.OpenBytes("mem", []byte("PK nope"))
	assert.ErrorIs(t, err, entities.ErrArchiveCorrupt)
}

func TestArchive_Entries(t *testing.T) {
	t.Parallel()

	path := writeZip(t, t.TempDir(), "plugin.jar",
		zipEntry{name: "META-INF/"},
		zipEntry{name: "META-INF/MANIFEST.MF", body: "Manifest-Version: 1.0\n"},
		zipEntry{name: "metadata.yml", body: "name: x\n"},
	)

	a, err := archive.Open(path)
	require.NoError(t, err)
	defer a.Close()

	entries := a.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "META-INF/", entries[0].Name())
	assert.True(t, entries[0].IsDir())
	assert.False(t, entries[1].IsDir())
	assert.Equal(t, path, a.Source())

	e, ok := a.Find("metadata.yml")
	require.True(t, ok)
	data, err := e.ReadAll(0)
	require.NoError(t, err)
	assert.Equal(t, "name: x\n", string(data))

	_, ok = a.Find("nope")
	assert.False(t, ok)
}

func TestEntry_ReadAll_Limit(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("z", 100)
	a, err := archive.OpenBytes("mem", buildZip(t, zipEntry{name: "blob.bin", body: body}))
	require.NoError(t, err)

	e := a.Entries()[0]

	data, err := e.ReadAll(100)
	require.NoError(t, err, "exactly at limit is accepted")
	assert.Len(t, data, 100)

	_, err = e.ReadAll(99)
	assert.ErrorIs(t, err, entities.ErrTooLarge)
}
