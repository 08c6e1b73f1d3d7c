package entities

import (
	"errors"
	"fmt"

	"github.com/inhies/go-bytesize"
)

// Sentinel errors for the artifact error taxonomy.
// Typed errors below carry the details and match these through errors.Is().
var (
	// ErrNotFound is returned when a source path, plugin or version id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrWrongExtension is returned when an artifact lacks the required file extension.
	ErrWrongExtension = errors.New("wrong file extension")

	// ErrTooLarge is returned when a payload exceeds its size ceiling.
	ErrTooLarge = errors.New("artifact too large")

	// ErrArchiveCorrupt is returned when the zip central directory cannot be parsed.
	ErrArchiveCorrupt = errors.New("archive corrupt")

	// ErrDescriptorNotFound is returned when no entry carries the descriptor file name.
	ErrDescriptorNotFound = errors.New("metadata.yml not found")

	// ErrDescriptorInvalid is returned when descriptor candidates exist but none parses.
	ErrDescriptorInvalid = errors.New("metadata.yml invalid")

	// ErrTransport is returned when an HTTP request fails below the status layer.
	ErrTransport = errors.New("transport error")

	// ErrBadStatus is returned when an HTTP response status is outside 200-299.
	ErrBadStatus = errors.New("bad status")

	// ErrAlreadyInstalled is returned when the target version directory already exists.
	ErrAlreadyInstalled = errors.New("already installed")

	// ErrVersionUndetectable is returned when no version can be derived for a bundle.
	ErrVersionUndetectable = errors.New("version undetectable")

	// ErrManifestEntryNotFound is returned when the manifest has no matching version.
	ErrManifestEntryNotFound = errors.New("version not found in manifest")

	// ErrIO is returned for filesystem failures during copy, move or write.
	ErrIO = errors.New("io failure")
)

// NotFoundError names the missing path or identifier.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.What)
}

// Is implements error matching for errors.Is() checks.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// WrongExtensionError indicates a file that does not carry the expected suffix.
type WrongExtensionError struct {
	Path string
	Want string
}

func (e *WrongExtensionError) Error() string {
	return fmt.Sprintf("%s: expected a %s file", e.Path, e.Want)
}

// Is implements error matching for errors.Is() checks.
func (e *WrongExtensionError) Is(target error) bool {
	return target == ErrWrongExtension
}

// TooLargeError reports the observed size against the ceiling.
// FromHint is set when the size came from a transport hint (Content-Length)
// rather than the received bytes.
type TooLargeError struct {
	Size     int64
	Limit    int64
	FromHint bool
}

func (e *TooLargeError) Error() string {
	source := "payload"
	if e.FromHint {
		source = "advertised size"
	}
	return fmt.Sprintf("%s %s exceeds maximum allowed size %s",
		source, bytesize.New(float64(e.Size)), bytesize.New(float64(e.Limit)))
}

// Is implements error matching for errors.Is() checks.
func (e *TooLargeError) Is(target error) bool {
	return target == ErrTooLarge
}

// ArchiveCorruptError wraps the zip parse failure.
type ArchiveCorruptError struct {
	Source string
	Err    error
}

func (e *ArchiveCorruptError) Error() string {
	return fmt.Sprintf("archive corrupt: %s: %v", e.Source, e.Err)
}

// Is implements error matching for errors.Is() checks.
func (e *ArchiveCorruptError) Is(target error) bool {
	return target == ErrArchiveCorrupt
}

func (e *ArchiveCorruptError) Unwrap() error { return e.Err }

// DescriptorInvalidError carries the last parse error seen while scanning candidates.
type DescriptorInvalidError struct {
	Entry string
	Err   error
}

func (e *DescriptorInvalidError) Error() string {
	return fmt.Sprintf("metadata.yml invalid (%s): %v", e.Entry, e.Err)
}

// Is implements error matching for errors.Is() checks.
func (e *DescriptorInvalidError) Is(target error) bool {
	return target == ErrDescriptorInvalid
}

func (e *DescriptorInvalidError) Unwrap() error { return e.Err }

// TransportError indicates a network failure for URL.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.URL, e.Err)
}

// Is implements error matching for errors.Is() checks.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error { return e.Err }

// BadStatusError indicates a non-2xx HTTP response.
type BadStatusError struct {
	URL        string
	StatusCode int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("download failed (status %d): %s", e.StatusCode, e.URL)
}

// Is implements error matching for errors.Is() checks.
func (e *BadStatusError) Is(target error) bool {
	return target == ErrBadStatus
}

// AlreadyInstalledError names the version id whose directory exists.
type AlreadyInstalledError struct {
	ID  string
	Dir string
}

func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("version %s is already installed in %s", e.ID, e.Dir)
}

// Is implements error matching for errors.Is() checks.
func (e *AlreadyInstalledError) Is(target error) bool {
	return target == ErrAlreadyInstalled
}

// VersionUndetectableError names the source that yielded no version.
type VersionUndetectableError struct {
	Source string
}

func (e *VersionUndetectableError) Error() string {
	return fmt.Sprintf("cannot detect version of %s", e.Source)
}

// Is implements error matching for errors.Is() checks.
func (e *VersionUndetectableError) Is(target error) bool {
	return target == ErrVersionUndetectable
}

// ManifestEntryNotFoundError names the requested version.
type ManifestEntryNotFoundError struct {
	Version string
}

func (e *ManifestEntryNotFoundError) Error() string {
	return fmt.Sprintf("version %s not found in manifest", e.Version)
}

// Is implements error matching for errors.Is() checks.
func (e *ManifestEntryNotFoundError) Is(target error) bool {
	return target == ErrManifestEntryNotFound
}

// IOError represents a failed filesystem operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed on %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s operation failed on %s", e.Op, e.Path)
}

// Is implements error matching for errors.Is() checks.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps err as an IoFailure, returning nil when err is nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
