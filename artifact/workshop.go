package artifact

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
)

// WorkshopAppID is the content id of the game in the Steam workshop.
const WorkshopAppID = "108600"

// workshopPattern matches any file below a numbered workshop item.
const workshopPattern = "**/workshop/content/" + WorkshopAppID + "/*/**"

// maxWorkshopDepth bounds how many directory levels below a root are searched.
const maxWorkshopDepth = 4

// ExternalIDKey is the descriptor key stamped with the workshop item id.
const ExternalIDKey = "externalId"

// WorkshopID returns the numeric workshop item id when path lies inside a
// workshop item directory.
func WorkshopID(path string) (string, bool) {
	p := filepath.ToSlash(strings.TrimPrefix(path, filepath.VolumeName(path)))
	p = strings.TrimLeft(p, "/")

	if ok, _ := doublestar.Match(workshopPattern, p); !ok {
		return "", false
	}

	segs := strings.Split(p, "/")
	for i := 0; i+3 < len(segs); i++ {
		if segs[i] != "workshop" || segs[i+1] != "content" || segs[i+2] != WorkshopAppID {
			continue
		}
		id := segs[i+3]
		if isDigits(id) && i+4 < len(segs) {
			return id, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ScanWorkshop walks every configured workshop root and reports each jar
// that passes permissive verification. Missing roots are skipped.
func (s *PluginService) ScanWorkshop(ctx context.Context) (*entities.WorkshopScanResult, error) {
	roots := dedupeRoots(s.opts.workshopRoots)
	result := &entities.WorkshopScanResult{Roots: roots, Found: []string{}}

	if len(roots) == 0 {
		s.logger.Warn("workshop scan has no roots configured")
		return result, nil
	}

	seen := make(map[string]struct{})
	for _, root := range roots {
		if !isDir(root) {
			s.logger.Debug("skipping missing workshop root", "root", root)
			continue
		}
		s.logger.Info("scanning workshop root", "root", root)

		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable subtree
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if p != root && depth(root, p) > maxWorkshopDepth {
					return filepath.SkipDir
				}
				return nil
			}
			if !values.HasPluginExtension(d.Name()) {
				return nil
			}
			if _, dup := seen[p]; dup {
				return nil
			}

			v, verr := s.verifier.VerifyFile(ctx, p, values.Permissive)
			if verr != nil || !v.Outcome.Valid() {
				return nil
			}
			seen[p] = struct{}{}
			result.Found = append(result.Found, p)
			s.logger.Debug("found workshop plugin", "path", p)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("workshop scan finished", "found", len(result.Found))
	return result, nil
}

// dedupeRoots resolves symlinks where possible and drops repeats, keeping
// the first occurrence.
func dedupeRoots(roots []string) []string {
	seen := make(map[string]struct{}, len(roots))
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(r); err == nil {
			r = resolved
		}
		r = filepath.Clean(r)
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func depth(root, p string) int {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
