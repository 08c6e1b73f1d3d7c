package artifact_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrix-dev/avrix-sdk/artifact"
)

func TestWorkshopID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		wantID string
		wantOK bool
	}{
		{
			name:   "steam library",
			path:   "/home/u/.steam/steamapps/workshop/content/108600/2931602698/mods/Cool/Cool.jar",
			wantID: "2931602698",
			wantOK: true,
		},
		{
			name:   "relative",
			path:   "workshop/content/108600/42/Cool.jar",
			wantID: "42",
			wantOK: true,
		},
		{name: "item directory itself", path: "/s/workshop/content/108600/42"},
		{name: "non numeric item", path: "/s/workshop/content/108600/abc/Cool.jar"},
		{name: "other game", path: "/s/workshop/content/4000/42/Cool.jar"},
		{name: "plain directory", path: "/home/u/Downloads/Cool.jar"},
		{name: "url", path: "https://cdn.example/Cool.jar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := artifact.WorkshopID(filepath.FromSlash(tt.path))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestPluginService_ScanWorkshop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	good := jar(t, file{"metadata.yml", goodDescriptor})
	a := write(t, filepath.Join(root, "101", "mods", "A", "A.jar"), good)
	b := write(t, filepath.Join(root, "102", "B.JAR"), good)
	write(t, filepath.Join(root, "103", "plain.jar"), jar(t, file{"x", "y"}))
	write(t, filepath.Join(root, "104", "notes.txt"), []byte("x"))
	write(t, filepath.Join(root, "105", "a", "b", "c", "d", "Deep.jar"), good)

	f := newPluginFixture(t, artifact.WithWorkshopRoots(root, root+string(filepath.Separator), filepath.Join(root, "missing")))

	res, err := f.svc.ScanWorkshop(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "missing")}, res.Roots)
	assert.ElementsMatch(t, []string{a, b}, res.Found)
}

func TestPluginService_ScanWorkshopWithoutRoots(t *testing.T) {
	t.Parallel()
	f := newPluginFixture(t)

	res, err := f.svc.ScanWorkshop(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Found)
	assert.NotNil(t, res.Found)
}

func TestPluginService_ScanWorkshopCancelled(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, filepath.Join(root, "1", "A.jar"), jar(t, file{"metadata.yml", goodDescriptor}))

	f := newPluginFixture(t, artifact.WithWorkshopRoots(root))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ScanWorkshop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
