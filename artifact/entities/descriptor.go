package entities

import "strings"

// DescriptorFileName is the base name of the metadata entry inside an artifact archive.
const DescriptorFileName = "metadata.yml"

// Descriptor is the parsed metadata embedded in an artifact archive.
// It is a transient read model: built fresh on every extraction and never
// persisted outside the archive itself. Every field is optional.
type Descriptor struct {
	Dependencies map[string]string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Internal     *bool             `yaml:"internal,omitempty" json:"internal,omitempty"`
	Name         string            `yaml:"name,omitempty" json:"name,omitempty"`
	Version      string            `yaml:"version,omitempty" json:"version,omitempty"`
	Environment  string            `yaml:"environment,omitempty" json:"environment,omitempty"`
	Author       string            `yaml:"author,omitempty" json:"author,omitempty"`
	License      string            `yaml:"license,omitempty" json:"license,omitempty"`
	ID           string            `yaml:"id,omitempty" json:"id,omitempty"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty"`
	Image        string            `yaml:"image,omitempty" json:"image,omitempty"`
	ImageURL     string            `yaml:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Parent       string            `yaml:"parent,omitempty" json:"parent,omitempty"`
	ExternalID   string            `yaml:"externalId,omitempty" json:"externalId,omitempty"`
}

// IsInternal reports whether the descriptor marks a nested sub-artifact.
func (d *Descriptor) IsInternal() bool {
	return d != nil && d.Internal != nil && *d.Internal
}

// DescriptorLocation is the directory prefix, possibly empty, of the entry
// the descriptor was read from.
type DescriptorLocation string

// LocationOf returns the directory part of an archive entry name.
func LocationOf(entryName string) DescriptorLocation {
	idx := strings.LastIndex(entryName, "/")
	if idx < 0 {
		return ""
	}
	return DescriptorLocation(entryName[:idx])
}

// IsRoot reports whether the descriptor sits at the archive root.
func (l DescriptorLocation) IsRoot() bool {
	return l == ""
}

// Resolve turns a descriptor-relative reference into a full entry name.
func (l DescriptorLocation) Resolve(rel string) string {
	rel = strings.TrimLeft(rel, "/")
	base := strings.TrimRight(string(l), "/")
	if base == "" {
		return rel
	}
	return base + "/" + rel
}

// String returns the raw prefix.
func (l DescriptorLocation) String() string {
	return string(l)
}
