package services

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
)

// CoreArtifactName is the primary artifact of every version directory.
const CoreArtifactName = "Avrix-Core.jar"

// coreArtifactPattern matches candidate core jars, applied to lowercased names.
const coreArtifactPattern = "avrix-core*.jar"

var nameVersionPattern = regexp.MustCompile(`(?i)^(.+?)[-_]v?(\d+\.\d+(?:\.\d+)?)(?:[-_].*)?$`)

// ParseNameVersion splits a file name such as "Foo-1.2.3.jar" into a
// display name and a version.
func ParseNameVersion(fileName string) (name, version string, ok bool) {
	base := strings.TrimSuffix(fileName, values.PluginExtension)
	m := nameVersionPattern.FindStringSubmatch(base)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// VersionDetector derives the version of a bundle artifact.
// Implements Chain of Responsibility pattern.
type VersionDetector interface {
	// Detect returns the version found for path.
	Detect(ctx context.Context, path string) (string, error)

	// SetNext sets the next detector in the chain.
	SetNext(next VersionDetector)
}

// BaseDetector provides common chain-of-responsibility logic.
type BaseDetector struct {
	next VersionDetector
}

// SetNext sets the next detector in chain.
func (b *BaseDetector) SetNext(next VersionDetector) {
	b.next = next
}

// DetectNext delegates to the next detector, failing with
// VersionUndetectable at the end of the chain.
func (b *BaseDetector) DetectNext(ctx context.Context, path string) (string, error) {
	if b.next == nil {
		return "", &entities.VersionUndetectableError{Source: path}
	}
	return b.next.Detect(ctx, path)
}

// DescriptorVersionDetector reads the version from the archive descriptor.
type DescriptorVersionDetector struct {
	BaseDetector
}

// Detect implements VersionDetector.
func (d *DescriptorVersionDetector) Detect(ctx context.Context, path string) (string, error) {
	desc, _, err := archive.ReadDescriptor(path)
	if err == nil && strings.TrimSpace(desc.Version) != "" {
		return strings.TrimSpace(desc.Version), nil
	}
	return d.DetectNext(ctx, path)
}

// FileNameVersionDetector parses the version out of the file name.
type FileNameVersionDetector struct {
	BaseDetector
}

// Detect implements VersionDetector.
func (d *FileNameVersionDetector) Detect(ctx context.Context, path string) (string, error) {
	if _, version, ok := ParseNameVersion(filepath.Base(path)); ok {
		return version, nil
	}
	return d.DetectNext(ctx, path)
}

// NewJarVersionDetector builds the chain used for single jars: descriptor
// version first, then the file name.
func NewJarVersionDetector() VersionDetector {
	head := &DescriptorVersionDetector{}
	head.SetNext(&FileNameVersionDetector{})
	return head
}

// DirectoryVersionDetector finds the core artifact inside an unpacked
// bundle and runs the jar chain on it.
//
// The top-level Avrix-Core.jar is tried first; then, in name order, every
// file matching avrix-core*.jar (ignoring case), descending into
// subdirectories as they are met.
type DirectoryVersionDetector struct {
	BaseDetector
	jar VersionDetector
}

// NewDirectoryVersionDetector wraps a jar chain for directory scans.
func NewDirectoryVersionDetector(jar VersionDetector) *DirectoryVersionDetector {
	if jar == nil {
		jar = NewJarVersionDetector()
	}
	return &DirectoryVersionDetector{jar: jar}
}

// Detect implements VersionDetector.
func (d *DirectoryVersionDetector) Detect(ctx context.Context, dir string) (string, error) {
	if version, ok := d.scan(ctx, dir); ok {
		return version, nil
	}
	return d.DetectNext(ctx, dir)
}

func (d *DirectoryVersionDetector) scan(ctx context.Context, dir string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}

	core := filepath.Join(dir, CoreArtifactName)
	if info, err := os.Stat(core); err == nil && info.Mode().IsRegular() {
		if version, err := d.jar.Detect(ctx, core); err == nil {
			return version, true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if version, ok := d.scan(ctx, p); ok {
				return version, true
			}
			continue
		}
		if matched, _ := doublestar.Match(coreArtifactPattern, strings.ToLower(e.Name())); !matched {
			continue
		}
		if version, err := d.jar.Detect(ctx, p); err == nil {
			return version, true
		}
	}
	return "", false
}
