package values

import (
	"fmt"
	"strings"
)

// PluginExtension is the required suffix of plugin archives.
const PluginExtension = ".jar"

// PluginFileName is a validated file name inside the plugins directory.
type PluginFileName struct {
	value string
}

// NewPluginFileName accepts a bare file name only: no separators, no
// parent references.
func NewPluginFileName(name string) (PluginFileName, error) {
	if strings.TrimSpace(name) == "" {
		return PluginFileName{}, fmt.Errorf("plugin file name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return PluginFileName{}, fmt.Errorf("invalid name %q: path separators are not allowed", name)
	}
	if name == "." || name == ".." {
		return PluginFileName{}, fmt.Errorf("invalid name %q", name)
	}
	return PluginFileName{value: name}, nil
}

// HasPluginExtension reports whether name ends with .jar, ignoring case.
func HasPluginExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), PluginExtension)
}

// String returns the file name.
func (p PluginFileName) String() string {
	return p.value
}

// IsJar reports whether the name carries the plugin extension.
func (p PluginFileName) IsJar() bool {
	return HasPluginExtension(p.value)
}
