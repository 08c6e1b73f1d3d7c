package values

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VersionPrefix marks every version directory name.
const VersionPrefix = "v"

// VersionID identifies an installed version directory ("v1.2.3").
type VersionID struct {
	version string
}

// NormalizeTag strips surrounding whitespace and any leading v/V markers.
func NormalizeTag(tag string) string {
	return strings.TrimLeft(strings.TrimSpace(tag), "vV")
}

// NewVersionID builds a VersionID from a raw version or tag.
// The result must be usable as a single directory name.
func NewVersionID(raw string) (VersionID, error) {
	ver := NormalizeTag(raw)
	if ver == "" {
		return VersionID{}, fmt.Errorf("version cannot be empty")
	}
	if strings.ContainsAny(ver, `/\`) {
		return VersionID{}, fmt.Errorf("version %q cannot contain path separators", raw)
	}
	if strings.Contains(ver, "..") {
		return VersionID{}, fmt.Errorf("version %q cannot contain parent directory references", raw)
	}
	return VersionID{version: ver}, nil
}

// MustNewVersionID creates a VersionID or panics.
func MustNewVersionID(raw string) VersionID {
	id, err := NewVersionID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the directory name.
func (v VersionID) String() string {
	if v.version == "" {
		return ""
	}
	return VersionPrefix + v.version
}

// Version returns the bare version without the prefix.
func (v VersionID) Version() string {
	return v.version
}

// IsEmpty returns true if this is the zero value.
func (v VersionID) IsEmpty() bool {
	return v.version == ""
}

// Equals checks if two ids are equal.
func (v VersionID) Equals(other VersionID) bool {
	return v.version == other.version
}

// MarshalJSON implements json.Marshaler.
func (v VersionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}
