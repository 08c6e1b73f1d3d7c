package services

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
)

// Verification is the result of one verification run.
type Verification struct {
	Descriptor *entities.Descriptor
	Location   entities.DescriptorLocation
	Digest     values.Digest
	Outcome    entities.ValidationOutcome
}

// Verifier runs the artifact checks shared by validation and installation:
// existence, extension, size ceiling, content hash, descriptor extraction.
//
// With values.Permissive a failed check yields an invalid Outcome and a nil
// error; only I/O failures are returned. With values.Strict every failed
// check is returned as its typed error.
type Verifier struct {
	extension string
	ceiling   values.SizeCeiling
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithExtension sets the required file suffix (matched ignoring case).
func WithExtension(ext string) VerifierOption {
	return func(v *Verifier) {
		v.extension = ext
	}
}

// WithCeiling sets the maximum accepted size.
func WithCeiling(c values.SizeCeiling) VerifierOption {
	return func(v *Verifier) {
		v.ceiling = c
	}
}

// NewVerifier creates a verifier for plugin archives unless options say otherwise.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		extension: values.PluginExtension,
		ceiling:   values.PluginCeiling,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Ceiling returns the configured size ceiling.
func (v *Verifier) Ceiling() values.SizeCeiling {
	return v.ceiling
}

// VerifyFile checks the file at path. Size is taken from the file system
// before any content is read.
func (v *Verifier) VerifyFile(ctx context.Context, path string, mode values.Strictness) (Verification, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v.Reject(mode, &entities.NotFoundError{What: path}, 0, "")
		}
		return Verification{}, entities.NewIOError("stat", path, err)
	}
	if info.IsDir() {
		return v.Reject(mode, &entities.NotFoundError{What: path + " (not a file)"}, 0, "")
	}

	if err := v.CheckExtension(path); err != nil {
		return v.Reject(mode, err, 0, "")
	}
	if err := v.CheckSize(info.Size(), false); err != nil {
		return v.Reject(mode, err, info.Size(), "")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Verification{}, entities.NewIOError("read", path, err)
	}

	return v.verifyContent(ctx, path, data, values.DigestFromBytes(data), mode)
}

// VerifyBytes checks an in-memory payload that will be stored as name.
// The digest is reported even when the payload is rejected.
func (v *Verifier) VerifyBytes(ctx context.Context, name string, data []byte, mode values.Strictness) (Verification, error) {
	size := int64(len(data))
	digest := values.DigestFromBytes(data)

	if err := v.CheckExtension(name); err != nil {
		return v.Reject(mode, err, size, digest.Hex())
	}
	if err := v.CheckSize(size, false); err != nil {
		return v.Reject(mode, err, size, digest.Hex())
	}

	return v.verifyContent(ctx, name, data, digest, mode)
}

// CheckExtension returns WrongExtension when name lacks the required suffix.
func (v *Verifier) CheckExtension(name string) error {
	if v.extension == "" {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(name), v.extension) {
		return &entities.WrongExtensionError{Path: name, Want: v.extension}
	}
	return nil
}

// CheckSize returns TooLarge when size exceeds the ceiling. fromHint marks
// sizes advertised by a transport rather than observed.
func (v *Verifier) CheckSize(size int64, fromHint bool) error {
	if v.ceiling.Allows(size) {
		return nil
	}
	return &entities.TooLargeError{Size: size, Limit: v.ceiling.Bytes(), FromHint: fromHint}
}

// Reject converts a failed check according to mode.
func (v *Verifier) Reject(mode values.Strictness, err error, size int64, sha256 string) (Verification, error) {
	if mode == values.Strict {
		return Verification{}, err
	}
	return Verification{Outcome: entities.NewInvalidOutcome(err.Error(), size, sha256)}, nil
}

func (v *Verifier) verifyContent(ctx context.Context, source string, data []byte, digest values.Digest, mode values.Strictness) (Verification, error) {
	if err := ctx.Err(); err != nil {
		return Verification{}, err
	}

	size := int64(len(data))

	a, err := archive.OpenBytes(source, data)
	if err != nil {
		return v.Reject(mode, err, size, digest.Hex())
	}
	d, loc, err := archive.ExtractDescriptor(a)
	if err != nil {
		return v.Reject(mode, err, size, digest.Hex())
	}

	return Verification{
		Descriptor: d,
		Location:   loc,
		Digest:     digest,
		Outcome:    entities.NewValidOutcome(d, size, digest.Hex()),
	}, nil
}
