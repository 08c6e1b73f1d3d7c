package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

// JSONManifestParser decodes the version catalog and normalizes its
// entries: versions lose their "v" prefix, a missing tag becomes
// "v<version>" and URLs are trimmed.
type JSONManifestParser struct{}

// NewJSONManifestParser creates a new JSONManifestParser.
func NewJSONManifestParser() ManifestParser {
	return &JSONManifestParser{}
}

// Parse decodes data. An entry without a version, or whose core URL is not
// http(s), fails the whole manifest.
func (p *JSONManifestParser) Parse(data []byte) (*entities.Manifest, error) {
	var m entities.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	m.Latest = values.NormalizeTag(m.Latest)
	for i := range m.Versions {
		v := &m.Versions[i]
		v.Version = values.NormalizeTag(v.Version)
		if v.Version == "" {
			return nil, fmt.Errorf("manifest entry %d: missing version", i)
		}

		v.Tag = strings.TrimSpace(v.Tag)
		if v.Tag == "" {
			v.Tag = values.VersionPrefix + v.Version
		}

		v.CoreURL = strings.TrimSpace(v.CoreURL)
		if !netutil.IsHTTPURL(v.CoreURL) {
			return nil, fmt.Errorf("manifest entry %s: core url %q is not http(s)", v.Tag, netutil.StripCredentials(v.CoreURL))
		}
		v.JreURL = strings.TrimSpace(v.JreURL)
		if v.JreURL != "" && !netutil.IsHTTPURL(v.JreURL) {
			return nil, fmt.Errorf("manifest entry %s: runtime url %q is not http(s)", v.Tag, netutil.StripCredentials(v.JreURL))
		}
	}
	return &m, nil
}
