package entities

// PluginEntry is the listing view of an installed plugin.
type PluginEntry struct {
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Internal     *bool             `json:"internal,omitempty"`
	Name         string            `json:"name"`
	DisplayName  string            `json:"displayName,omitempty"`
	Version      string            `json:"version,omitempty"`
	Environment  string            `json:"environment,omitempty"`
	Author       string            `json:"author,omitempty"`
	License      string            `json:"license,omitempty"`
	ID           string            `json:"id,omitempty"`
	Description  string            `json:"description,omitempty"`
	Image        string            `json:"image,omitempty"`
	ImageURL     string            `json:"imageUrl,omitempty"`
	ParentID     string            `json:"parentId,omitempty"`
	SizeKB       int64             `json:"sizeKB"`
	Modified     int64             `json:"modified"`
}

// ApplyDescriptor copies the display fields of d onto the entry.
func (e *PluginEntry) ApplyDescriptor(d *Descriptor) {
	e.DisplayName = d.Name
	e.Version = d.Version
	e.Environment = d.Environment
	e.Author = d.Author
	e.License = d.License
	e.ID = d.ID
	e.Description = d.Description
	e.Dependencies = d.Dependencies
	e.Internal = d.Internal
	e.ParentID = d.Parent
}

// PluginsResult is the outcome of a plugin scan.
type PluginsResult struct {
	Dir     string        `json:"dir"`
	Plugins []PluginEntry `json:"plugins"`
}

// VersionEntry is a derived, disposable view over one version directory.
type VersionEntry struct {
	ID          string `json:"id"`
	Version     string `json:"version,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Dir         string `json:"dir"`
	Modified    int64  `json:"modified"`
	SizeKB      int64  `json:"sizeKB"`
	HasRuntime  bool   `json:"hasJre"`
}

// VersionsResult is the outcome of a version listing.
type VersionsResult struct {
	Root       string         `json:"root"`
	SelectedID string         `json:"selectedId,omitempty"`
	Versions   []VersionEntry `json:"versions"`
}

// ManifestVersion is one entry of the remote version catalog.
type ManifestVersion struct {
	Tag         string `json:"tag,omitempty" jsonschema:"nullable"`
	Version     string `json:"version" jsonschema:"minLength=1"`
	CoreURL     string `json:"coreUrl" jsonschema:"minLength=1"`
	JreURL      string `json:"jreUrl,omitempty" jsonschema:"nullable"`
	PublishedAt string `json:"publishedAt,omitempty" jsonschema:"nullable"`
}

// Manifest is the remote catalog of available versions.
type Manifest struct {
	Latest   string            `json:"latest,omitempty" jsonschema:"nullable"`
	Versions []ManifestVersion `json:"versions"`
}

// AvailableVersion is the listing view of a manifest entry.
type AvailableVersion struct {
	Tag         string `json:"tag"`
	Version     string `json:"version"`
	CoreURL     string `json:"coreUrl"`
	JreURL      string `json:"jreUrl,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// WorkshopScanResult lists workshop jars that carry a valid descriptor.
type WorkshopScanResult struct {
	Roots []string `json:"roots"`
	Found []string `json:"found"`
}

// VersionInstallResult describes a version directory created or repaired.
type VersionInstallResult struct {
	ID      string `json:"id"`
	Dir     string `json:"dir"`
	Version string `json:"version"`
	Message string `json:"message"`
}
