// Package parser decodes the documents exchanged with artifacts and remote
// catalogs: the descriptor embedded in archives and the version manifest.
package parser

import (
	"gopkg.in/yaml.v3"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
)

// YamlDescriptorParser implements DescriptorParser for YAML.
// Scalar fields keep their literal text, so "version: 1.0" stays "1.0".
type YamlDescriptorParser struct{}

// NewYamlDescriptorParser creates a new YamlDescriptorParser.
func NewYamlDescriptorParser() DescriptorParser {
	return &YamlDescriptorParser{}
}

// Parse unmarshals YAML bytes into a Descriptor struct.
func (p *YamlDescriptorParser) Parse(data []byte) (*entities.Descriptor, error) {
	var descriptor entities.Descriptor
	if err := yaml.Unmarshal(data, &descriptor); err != nil {
		return nil, err
	}
	return &descriptor, nil
}
