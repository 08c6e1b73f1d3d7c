package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

// DefaultExtractLimit bounds the total decompressed size ExtractAll writes.
const DefaultExtractLimit int64 = 1 << 30

// ExtractOption configures ExtractAll.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	limit int64
}

// WithExtractLimit sets the total number of decompressed bytes ExtractAll
// may write. Zero or less keeps the default.
func WithExtractLimit(n int64) ExtractOption {
	return func(c *extractConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// ExtractAll writes every entry of a under dest, creating directories as
// needed. Entries that would land outside dest are rejected, and TooLarge is
// returned once the entries together decompress past the limit.
func ExtractAll(ctx context.Context, a *Archive, dest string, opts ...ExtractOption) error {
	cfg := extractConfig{limit: DefaultExtractLimit}
	for _, opt := range opts {
		opt(&cfg)
	}

	root := filepath.Clean(dest)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return entities.NewIOError("mkdir", root, err)
	}

	var written int64
	for _, e := range a.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(root, e.Name())
		if err != nil {
			return err
		}

		if e.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return entities.NewIOError("mkdir", target, err)
			}
			continue
		}

		remaining := cfg.limit - written
		if e.Size() > remaining {
			return &entities.TooLargeError{Size: written + e.Size(), Limit: cfg.limit}
		}
		n, err := extractFile(e, target, remaining)
		written += n
		if err != nil {
			if netutil.IsSizeLimitExceededError(err) {
				return &entities.TooLargeError{Size: written, Limit: cfg.limit}
			}
			return err
		}
	}
	return nil
}

func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return "", &entities.ArchiveCorruptError{Source: name, Err: fmt.Errorf("absolute entry path")}
	}

	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", &entities.ArchiveCorruptError{Source: name, Err: fmt.Errorf("entry escapes destination")}
	}
	return target, nil
}

// extractFile writes e to target, reading at most limit bytes. A partial
// file is removed.
func extractFile(e Entry, target string, limit int64) (n int64, err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, entities.NewIOError("mkdir", filepath.Dir(target), err)
	}

	mode := e.file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	rc, err := e.Open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, entities.NewIOError("create", target, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = entities.NewIOError("close", target, cerr)
		}
		if err != nil {
			_ = os.Remove(target)
		}
	}()

	n, err = io.Copy(out, netutil.NewLimitedReader(rc, limit))
	if err != nil {
		if netutil.IsSizeLimitExceededError(err) {
			return n, err
		}
		return n, entities.NewIOError("extract", target, err)
	}
	return n, nil
}
