package resolvers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// LatestConstraint selects the highest available version.
const LatestConstraint = "latest"

// SemverResolver implements ports.VersionResolver using Masterminds/semver.
type SemverResolver struct{}

// NewSemverResolver creates a new SemverResolver.
func NewSemverResolver() *SemverResolver {
	return &SemverResolver{}
}

// Resolve converts a version constraint to an exact version from the available options.
// It returns the highest version that satisfies the constraint, in its original spelling.
func (r *SemverResolver) Resolve(constraint string, available []string) (string, error) {
	// "latest" is not a semver constraint keyword; treat it as ">= 0".
	if strings.EqualFold(strings.TrimSpace(constraint), LatestConstraint) {
		constraint = ">= 0"
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	var valid []*semver.Version
	for _, vStr := range available {
		v, err := semver.NewVersion(vStr)
		if err != nil {
			continue // manifests may carry non-semver tags
		}
		if c.Check(v) {
			valid = append(valid, v)
		}
	}

	if len(valid) == 0 {
		return "", fmt.Errorf("no version satisfies constraint %q from available options", constraint)
	}

	// Collection sorts ascending, so the last element is the highest.
	sort.Sort(semver.Collection(valid))
	return valid[len(valid)-1].Original(), nil
}

// SortNewestFirst orders versions by descending semver precedence.
// Versions that do not parse keep their relative order after the rest.
func SortNewestFirst(versions []string) []string {
	type parsed struct {
		v   *semver.Version
		raw string
	}

	var ok []parsed
	var rest []string
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			rest = append(rest, raw)
			continue
		}
		ok = append(ok, parsed{v: v, raw: raw})
	}

	sort.SliceStable(ok, func(i, j int) bool {
		return ok[i].v.GreaterThan(ok[j].v)
	})

	out := make([]string, 0, len(versions))
	for _, p := range ok {
		out = append(out, p.raw)
	}
	return append(out, rest...)
}
