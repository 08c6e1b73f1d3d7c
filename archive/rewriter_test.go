package archive_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
)

func TestPatchDescriptor_AddsExternalID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeZip(t, dir, "plugin.jar",
		zipEntry{name: "META-INF/"},
		zipEntry{name: "com/example/Main.class", body: strings.Repeat("bytecode", 64)},
		zipEntry{name: "metadata.yml", body: "# plugin descriptor\nname: Example\nversion: 1.0\n"},
		zipEntry{name: "assets/icon.png", body: "\x89PNG....", method: zip.Store},
	)
	before := rawEntries(t, path)

	require.NoError(t, archive.PatchDescriptor(context.Background(), path, map[string]string{"externalId": "42"}))

	d, _, err := archive.ReadDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, "42", d.ExternalID)
	assert.Equal(t, "Example", d.Name)
	assert.Equal(t, "1.0", d.Version)

	after := rawEntries(t, path)
	require.Len(t, after, len(before))
	for name, raw := range before {
		if name == "metadata.yml" {
			continue
		}
		assert.Equal(t, raw, after[name], "entry %s changed", name)
	}

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.Name == "metadata.yml" {
			assert.Equal(t, zip.Deflate, f.Method, "compression method preserved")
		}
	}
	assert.Equal(t, []string{"META-INF/", "com/example/Main.class", "metadata.yml", "assets/icon.png"}, names)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPatchDescriptor_OverwritesExistingKey(t *testing.T) {
	t.Parallel()

	path := writeZip(t, t.TempDir(), "plugin.jar",
		zipEntry{name: "metadata.yml", body: "externalId: \"1\"\nname: Example\n"},
	)

	require.NoError(t, archive.PatchDescriptor(context.Background(), path, map[string]string{"externalId": "2"}))

	a, err := archive.Open(path)
	require.NoError(t, err)
	defer a.Close()
	e, _ := a.Find("metadata.yml")
	data, err := e.ReadAll(0)
	require.NoError(t, err)

	assert.Equal(t, "externalId: \"2\"\nname: Example\n", string(data), "key order preserved")
}

func TestPatchDescriptor_UnparseableDescriptorKept(t *testing.T) {
	t.Parallel()

	path := writeZip(t, t.TempDir(), "plugin.jar",
		zipEntry{name: "metadata.yml", body: "- just\n- a list\n"},
	)
	before := rawEntries(t, path)

	require.NoError(t, archive.PatchDescriptor(context.Background(), path, map[string]string{"externalId": "9"}))

	assert.Equal(t, before, rawEntries(t, path))
}

func TestPatchDescriptor_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := archive.PatchDescriptor(context.Background(), filepath.Join(dir, "none.jar"), map[string]string{"a": "b"})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	bad := filepath.Join(dir, "bad.jar")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	err = archive.PatchDescriptor(context.Background(), bad, map[string]string{"a": "b"})
	assert.ErrorIs(t, err, entities.ErrArchiveCorrupt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeZip(t, dir, "ok.jar", zipEntry{name: "metadata.yml", body: "name: x\n"})
	before := rawEntries(t, path)
	err = archive.PatchDescriptor(ctx, path, map[string]string{"a": "b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, rawEntries(t, path), "original untouched on failure")
}

func TestMergeDescriptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		patch   map[string]string
		want    string
		wantErr bool
	}{
		{
			name:  "empty document",
			in:    "",
			patch: map[string]string{"externalId": "42"},
			want:  "externalId: \"42\"\n",
		},
		{
			name:  "appends sorted",
			in:    "name: x\n",
			patch: map[string]string{"b": "2", "a": "1"},
			want:  "name: x\na: \"1\"\nb: \"2\"\n",
		},
		{
			name:    "scalar root",
			in:      "hello",
			patch:   map[string]string{"a": "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := archive.MergeDescriptor([]byte(tt.in), tt.patch)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

// Rewriting never alters the compressed bytes of non-descriptor entries,
// whatever the patch.
func TestPatchDescriptor_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()

	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(0, 6).Draw(rt, "count")
		entries := []zipEntry{{name: "metadata.yml", body: "name: prop\n"}}
		for i := 0; i < count; i++ {
			body := rapid.StringMatching(`[a-zA-Z0-9 ]{0,200}`).Draw(rt, fmt.Sprintf("body%d", i))
			stored := rapid.Bool().Draw(rt, fmt.Sprintf("stored%d", i))
			e := zipEntry{name: fmt.Sprintf("data/file%d.txt", i), body: body}
			if stored {
				e.method = zip.Store
			}
			entries = append(entries, e)
		}
		patch := rapid.MapOfN(
			rapid.StringMatching(`name|x[a-zA-Z]{0,8}`),
			rapid.StringMatching(`[a-zA-Z0-9]{0,12}`),
			0, 4,
		).Draw(rt, "patch")

		path := writeZip(rt, dir, rapid.StringMatching(`[a-z]{12}`).Draw(rt, "file")+".jar", entries...)
		before := rawEntries(rt, path)

		if err := archive.PatchDescriptor(context.Background(), path, patch); err != nil {
			rt.Fatalf("patch failed: %v", err)
		}
		after := rawEntries(rt, path)

		for name, raw := range before {
			if name == "metadata.yml" && len(patch) > 0 {
				continue
			}
			if string(after[name]) != string(raw) {
				rt.Fatalf("entry %s changed", name)
			}
		}

		d, _, err := archive.ReadDescriptor(path)
		if err != nil {
			rt.Fatalf("descriptor unreadable after patch: %v", err)
		}
		if v, ok := patch["name"]; ok && d.Name != v {
			rt.Fatalf("name = %q, want %q", d.Name, v)
		}
	})
}
