// Package filesystem provides file-based repositories and file helpers for
// the infrastructure layer.
package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
)

// CopyFile copies src to dst, creating parent directories as needed.
// An existing dst is truncated.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return entities.NewIOError("stat", src, err)
	}
	if info.IsDir() {
		return entities.NewIOError("copy", src, errors.New("source is a directory"))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return entities.NewIOError("create_dir", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return entities.NewIOError("open", src, err)
	}
	defer func() { _ = in.Close() }()

	perm := info.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return entities.NewIOError("create", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return entities.NewIOError("copy", dst, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return entities.NewIOError("sync", dst, err)
	}
	return entities.NewIOError("close", dst, out.Close())
}

// CopyDir recursively copies the tree rooted at src into dst.
// Symlinks are skipped.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return entities.NewIOError("walk", p, err)
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return entities.NewIOError("walk", p, err)
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return entities.NewIOError("create_dir", target, err)
			}
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			return nil
		default:
			return CopyFile(p, target)
		}
	})
}

// MoveDir renames src to dst. When the rename fails for another reason
// than dst existing, typically because the two paths sit on different
// devices, dst is created exclusively, the tree copied and src removed.
// An existing dst is never written to; the error then matches fs.ErrExist.
func MoveDir(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) || Exists(dst) {
		return entities.NewIOError("move", dst, fs.ErrExist)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return entities.NewIOError("create_dir", filepath.Dir(dst), err)
	}
	if err := os.Mkdir(dst, 0o755); err != nil {
		return entities.NewIOError("create_dir", dst, err)
	}
	if err := CopyDir(src, dst); err != nil {
		_ = os.RemoveAll(dst)
		return err
	}
	_ = os.RemoveAll(src)
	return nil
}

// DirSizeKB sums the sizes of every regular file under dir and returns the
// total in KiB, never less than 1. Unreadable entries are skipped.
func DirSizeKB(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return SizeKB(total)
}

// SizeKB converts a byte count to KiB, never less than 1.
func SizeKB(size int64) int64 {
	return max(size/1024, 1)
}

// Exists reports whether path can be stat'ed.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
