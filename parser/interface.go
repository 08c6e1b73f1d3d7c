package parser

import "github.com/avrix-dev/avrix-sdk/artifact/entities"

// DescriptorParser parses raw descriptor bytes into a Descriptor.
type DescriptorParser interface {
	// Parse unmarshals descriptor bytes. Empty input yields an empty descriptor.
	Parse(data []byte) (*entities.Descriptor, error)
}

// ManifestParser parses raw manifest bytes into a Manifest.
type ManifestParser interface {
	Parse(data []byte) (*entities.Manifest, error)
}
