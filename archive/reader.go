// Package archive reads and rewrites the zip containers that carry plugins
// and version bundles.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

// Archive is a random-access view over the entries of a zip container.
type Archive struct {
	closer  io.Closer
	reader  *zip.Reader
	source  string
	entries []Entry
}

// Entry is one member of an Archive.
type Entry struct {
	file   *zip.File
	source string
}

// Open opens the archive at path. A missing file yields NotFound; an
// unparseable central directory yields ArchiveCorrupt.
func Open(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &entities.NotFoundError{What: path}
		}
		return nil, entities.NewIOError("stat", path, err)
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, &entities.ArchiveCorruptError{Source: path, Err: err}
	}

	return newArchive(path, &rc.Reader, rc), nil
}

// OpenBytes opens an in-memory archive. name is used in error messages only.
func OpenBytes(name string, data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &entities.ArchiveCorruptError{Source: name, Err: err}
	}
	return newArchive(name, zr, nil), nil
}

func newArchive(source string, zr *zip.Reader, closer io.Closer) *Archive {
	a := &Archive{
		closer:  closer,
		reader:  zr,
		source:  source,
		entries: make([]Entry, 0, len(zr.File)),
	}
	for _, f := range zr.File {
		a.entries = append(a.entries, Entry{file: f, source: source})
	}
	return a
}

// Source returns the path or name the archive was opened from.
func (a *Archive) Source() string {
	return a.source
}

// Entries returns the entries in archive order.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// Find returns the first entry whose name equals name exactly.
func (a *Archive) Find(name string) (Entry, bool) {
	for _, e := range a.entries {
		if e.Name() == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Name returns the '/'-separated entry name.
func (e Entry) Name() string {
	return e.file.Name
}

// IsDir reports whether the entry is a directory (its name ends with '/').
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.file.Name, "/")
}

// Size returns the declared uncompressed size.
func (e Entry) Size() int64 {
	return int64(e.file.UncompressedSize64)
}

// Open returns a stream over the entry content.
func (e Entry) Open() (io.ReadCloser, error) {
	rc, err := e.file.Open()
	if err != nil {
		return nil, &entities.ArchiveCorruptError{Source: e.source + "!" + e.file.Name, Err: err}
	}
	return rc, nil
}

// ReadAll reads the whole entry. When limit > 0, content larger than limit
// fails with TooLarge.
func (e Entry) ReadAll(limit int64) ([]byte, error) {
	if limit > 0 && e.Size() > limit {
		return nil, &entities.TooLargeError{Size: e.Size(), Limit: limit}
	}

	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var r io.Reader = rc
	if limit > 0 {
		r = netutil.NewLimitedReader(rc, limit)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		if netutil.IsSizeLimitExceededError(err) {
			return nil, &entities.TooLargeError{Size: int64(len(data)), Limit: limit}
		}
		return nil, &entities.ArchiveCorruptError{Source: e.source + "!" + e.file.Name, Err: fmt.Errorf("read entry: %w", err)}
	}
	return data, nil
}
