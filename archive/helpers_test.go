package archive_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

type zipEntry struct {
	name   string
	body   string
	method uint16
}

func buildZip(t testingT, entries ...zipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		method := e.method
		if method == 0 && len(e.name) > 0 && e.name[len(e.name)-1] != '/' {
			method = zip.Deflate
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		require.NoError(t, err)
		if e.body != "" {
			_, err = fw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeZip(t testingT, dir, name string, entries ...zipEntry) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buildZip(t, entries...), 0o644))
	return path
}

// rawEntries returns the compressed bytes of every entry keyed by name.
func rawEntries(t testingT, path string) map[string][]byte {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		rr, err := f.OpenRaw()
		require.NoError(t, err)
		var b bytes.Buffer
		_, err = b.ReadFrom(rr)
		require.NoError(t, err)
		out[f.Name] = b.Bytes()
	}
	return out
}
