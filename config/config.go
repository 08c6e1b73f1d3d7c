// Package config loads the launcher configuration: an optional YAML file,
// environment overrides, and the paths derived from the working root.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/goccy/go-yaml"
)

// Environment variables read by Load.
const (
	EnvPluginsDir    = "AVRIX_PLUGINS_DIR"
	EnvVersionsDir   = "AVRIX_VERSIONS_DIR"
	EnvManifestURL   = "AVRIX_MANIFEST_URL"
	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvPZWorkshop    = "PZ_WORKSHOP_ROOT"
	EnvAvrixWorkshop = "AVRIX_WORKSHOP_ROOT"
	EnvSteamLibrary  = "STEAM_LIBRARY"
	EnvUserProfile   = "USERPROFILE"
)

// Defaults.
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultUserAgent   = "AvrixLauncher/1.0"

	CoreJarName      = "Avrix-Core.jar"
	SettingsFileName = "avrix-settings.yaml"

	workshopAppID = "108600"
)

// gameRootMarkers are the directories that identify a game installation.
var gameRootMarkers = []string{"zombie", "se", "fmod", "javax"}

// Config is the launcher configuration. WorkingRoot anchors every relative
// path; nothing else in the SDK consults the process working directory.
type Config struct {
	WorkingRoot   string   `yaml:"workingRoot"`
	PluginsDir    string   `yaml:"pluginsDir,omitempty"`
	VersionsDir   string   `yaml:"versionsDir,omitempty"`
	StagingDir    string   `yaml:"stagingDir,omitempty"`
	ManifestURL   string   `yaml:"manifestUrl,omitempty"`
	GitHubToken   string   `yaml:"githubToken,omitempty"`
	TokenHosts    []string `yaml:"tokenHosts,omitempty"`
	UserAgent     string   `yaml:"userAgent,omitempty"`
	HTTPTimeout   string   `yaml:"httpTimeout,omitempty"`
	RuntimeDir    string   `yaml:"runtimeDir,omitempty"`
	WorkshopRoots []string `yaml:"workshopRoots,omitempty"`
	SteamLibrary  string   `yaml:"steamLibrary,omitempty"`
	KeepStaging   bool     `yaml:"keepStaging,omitempty"`

	userProfile string
	goos        string
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	lookupEnv func(string) (string, bool)
	goos      string
}

// WithLookupEnv replaces os.LookupEnv, mainly for tests.
func WithLookupEnv(fn func(string) (string, bool)) LoadOption {
	return func(o *loadOptions) {
		if fn != nil {
			o.lookupEnv = fn
		}
	}
}

// WithGOOS overrides the operating system used for platform paths.
func WithGOOS(goos string) LoadOption {
	return func(o *loadOptions) { o.goos = goos }
}

// Load reads the YAML file at path (skipped when path is empty), expands
// ${VAR} references in it and applies environment overrides. workingRoot,
// when non-empty, takes precedence over the file.
func Load(path, workingRoot string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{lookupEnv: os.LookupEnv, goos: runtime.GOOS}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		expanded := os.Expand(string(data), func(key string) string {
			v, _ := o.lookupEnv(key)
			return v
		})
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if workingRoot != "" {
		cfg.WorkingRoot = workingRoot
	}
	cfg.goos = o.goos
	cfg.applyEnv(o.lookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPluginsDir); ok && filepath.IsAbs(v) {
		c.PluginsDir = v
	}
	if v, ok := lookup(EnvVersionsDir); ok && filepath.IsAbs(v) {
		c.VersionsDir = v
	}
	if v, ok := lookup(EnvManifestURL); ok && v != "" {
		c.ManifestURL = v
	}
	if v, ok := lookup(EnvGitHubToken); ok && v != "" {
		c.GitHubToken = v
	}
	for _, key := range []string{EnvPZWorkshop, EnvAvrixWorkshop} {
		if v, ok := lookup(key); ok && v != "" {
			c.WorkshopRoots = append(c.WorkshopRoots, v)
		}
	}
	if v, ok := lookup(EnvSteamLibrary); ok && v != "" {
		c.SteamLibrary = v
	}
	if v, ok := lookup(EnvUserProfile); ok {
		c.userProfile = v
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.WorkingRoot == "" {
		return errors.New("working root must be specified")
	}
	if !filepath.IsAbs(c.WorkingRoot) {
		return fmt.Errorf("working root must be absolute: %s", c.WorkingRoot)
	}
	if c.HTTPTimeout != "" {
		d, err := time.ParseDuration(c.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("invalid http timeout %q: %w", c.HTTPTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("http timeout must be positive: %s", c.HTTPTimeout)
		}
	}
	return nil
}

// RequestTimeout returns the HTTP timeout, DefaultHTTPTimeout when unset.
func (c *Config) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(c.HTTPTimeout); err == nil && d > 0 {
		return d
	}
	return DefaultHTTPTimeout
}

// Agent returns the User-Agent header value.
func (c *Config) Agent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

// TokenScope lists the hosts that may receive GitHubToken: TokenHosts when
// set, otherwise the host of manifestURL.
func (c *Config) TokenScope(manifestURL string) []string {
	if len(c.TokenHosts) > 0 {
		return append([]string(nil), c.TokenHosts...)
	}
	u, err := url.Parse(manifestURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

// GameRoot returns the game installation containing the working root.
func (c *Config) GameRoot() (string, bool) {
	return FindGameRoot(c.WorkingRoot)
}

// PluginsPath resolves the plugins directory: inside the game root when
// one is found, then an explicit absolute setting, then <root>/plugins.
func (c *Config) PluginsPath() string {
	if root, ok := c.GameRoot(); ok {
		return filepath.Join(root, "plugins")
	}
	if filepath.IsAbs(c.PluginsDir) {
		return c.PluginsDir
	}
	return filepath.Join(c.WorkingRoot, "plugins")
}

// VersionsPath resolves the version root the same way as PluginsPath.
func (c *Config) VersionsPath() string {
	if root, ok := c.GameRoot(); ok {
		return filepath.Join(root, "avrix", "versions")
	}
	if filepath.IsAbs(c.VersionsDir) {
		return c.VersionsDir
	}
	return filepath.Join(c.WorkingRoot, "versions")
}

// CoreJarPath is the core artifact next to the launcher.
func (c *Config) CoreJarPath() string {
	return filepath.Join(c.WorkingRoot, CoreJarName)
}

// SettingsPath is the settings file holding the selected version.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.WorkingRoot, SettingsFileName)
}

// StagingPath returns the staging directory, the system temp dir when unset.
func (c *Config) StagingPath() string {
	if c.StagingDir == "" {
		return os.TempDir()
	}
	if filepath.IsAbs(c.StagingDir) {
		return c.StagingDir
	}
	return filepath.Join(c.WorkingRoot, c.StagingDir)
}

// WorkshopSearchRoots lists the candidate workshop content directories in
// priority order. Duplicates are left to the scanner.
func (c *Config) WorkshopSearchRoots() []string {
	roots := append([]string(nil), c.WorkshopRoots...)

	if root, ok := c.GameRoot(); ok {
		steamapps := filepath.Dir(filepath.Dir(root))
		roots = append(roots, filepath.Join(steamapps, "workshop", "content", workshopAppID))
	}
	if c.userProfile != "" {
		roots = append(roots, filepath.Join(c.userProfile,
			"AppData", "Local", "Steam", "steamapps", "workshop", "content", workshopAppID))
	}
	if c.SteamLibrary != "" {
		lib := filepath.Clean(c.SteamLibrary)
		if filepath.Base(lib) != "steamapps" {
			lib = filepath.Join(lib, "steamapps")
		}
		roots = append(roots, filepath.Join(lib, "workshop", "content", workshopAppID))
	}
	if c.goos == "windows" {
		for drive := 'C'; drive <= 'Z'; drive++ {
			candidate := fmt.Sprintf(`%c:\Program Files\Steam\steamapps\workshop\content\%s`, drive, workshopAppID)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				roots = append(roots, candidate)
			}
		}
	}
	return roots
}

// FindGameRoot walks up from start, at most six levels, looking for a
// directory holding every game marker directory.
func FindGameRoot(start string) (string, bool) {
	if start == "" {
		return "", false
	}
	cur := filepath.Clean(start)
	for range 6 {
		if hasGameMarkers(cur) {
			return cur, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return "", false
}

func hasGameMarkers(dir string) bool {
	for _, m := range gameRootMarkers {
		info, err := os.Stat(filepath.Join(dir, m))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}
