package filesystem_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/filesystem"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	t.Run("copies content and creates parents", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		src := filepath.Join(dir, "a.jar")
		require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

		dst := filepath.Join(dir, "nested", "deep", "b.jar")
		require.NoError(t, filesystem.CopyFile(src, dst))

		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(got))
	})

	t.Run("truncates existing destination", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		src := filepath.Join(dir, "a")
		dst := filepath.Join(dir, "b")
		require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
		require.NoError(t, os.WriteFile(dst, []byte("much longer old content"), 0o644))

		require.NoError(t, filesystem.CopyFile(src, dst))
		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("missing source is an io failure", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		err := filesystem.CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, entities.ErrIO))
	})

	t.Run("directory source is rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		err := filesystem.CopyFile(dir, filepath.Join(dir, "out"))
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrIO)
	})
}

func TestCopyDirAndMoveDir(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"Avrix-Core.jar":   "core",
		"jre/bin/java":     "java",
		"jre/lib/rt.jar":   "rt",
		"empty/.keep":      "",
		"notes/readme.txt": "hello",
	}

	t.Run("copy", func(t *testing.T) {
		t.Parallel()
		src := filepath.Join(t.TempDir(), "src")
		dst := filepath.Join(t.TempDir(), "dst")
		writeTree(t, src, files)

		require.NoError(t, filesystem.CopyDir(src, dst))
		for name, body := range files {
			got, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
			require.NoError(t, err, name)
			assert.Equal(t, body, string(got), name)
		}
		assert.True(t, filesystem.IsDir(src), "source must survive a copy")
	})

	t.Run("move", func(t *testing.T) {
		t.Parallel()
		src := filepath.Join(t.TempDir(), "src")
		dst := filepath.Join(t.TempDir(), "v1.0.0")
		writeTree(t, src, files)

		require.NoError(t, filesystem.MoveDir(src, dst))
		assert.False(t, filesystem.Exists(src))
		got, err := os.ReadFile(filepath.Join(dst, "jre", "bin", "java"))
		require.NoError(t, err)
		assert.Equal(t, "java", string(got))
	})

	t.Run("move never merges into an existing dir", func(t *testing.T) {
		t.Parallel()
		src := filepath.Join(t.TempDir(), "src")
		dst := filepath.Join(t.TempDir(), "v1.0.0")
		writeTree(t, src, files)
		writeTree(t, dst, map[string]string{"Avrix-Core.jar": "theirs"})

		err := filesystem.MoveDir(src, dst)
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrExist)

		got, err := os.ReadFile(filepath.Join(dst, "Avrix-Core.jar"))
		require.NoError(t, err)
		assert.Equal(t, "theirs", string(got))
		assert.NoDirExists(t, filepath.Join(dst, "jre"))
		assert.DirExists(t, src)
	})
}

func TestDirSizeKB(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		want  int64
	}{
		{name: "empty directory has minimum size", files: nil, want: 1},
		{name: "small file rounds up to one", files: map[string]string{"a": "x"}, want: 1},
		{
			name: "sums nested files",
			files: map[string]string{
				"a":       strings.Repeat("a", 2048),
				"sub/b":   strings.Repeat("b", 1024),
				"sub/c/d": strings.Repeat("d", 1024),
			},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeTree(t, dir, tt.files)
			assert.Equal(t, tt.want, filesystem.DirSizeKB(dir))
		})
	}
}

func TestSizeKB(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(1), filesystem.SizeKB(0))
	assert.Equal(t, int64(1), filesystem.SizeKB(1023))
	assert.Equal(t, int64(1), filesystem.SizeKB(2047))
	assert.Equal(t, int64(2), filesystem.SizeKB(2048))
}
