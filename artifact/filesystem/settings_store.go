package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the default settings file name inside the working root.
const SettingsFileName = "avrix-settings.yaml"

type settingsStoreConfig struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultSettingsStoreConfig() settingsStoreConfig {
	return settingsStoreConfig{
		path:     SettingsFileName,
		dirPerm:  0o755,
		filePerm: 0o600,
	}
}

// SettingsStoreOption configures a SettingsStore instance.
type SettingsStoreOption func(*settingsStoreConfig)

// WithPath sets the path to the settings file.
func WithPath(path string) SettingsStoreOption {
	return func(c *settingsStoreConfig) {
		if path != "" {
			c.path = path
		}
	}
}

// WithFilePermissions sets the file permissions for the settings file.
func WithFilePermissions(perm os.FileMode) SettingsStoreOption {
	return func(c *settingsStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions used when creating the parent directory.
func WithDirPermissions(perm os.FileMode) SettingsStoreOption {
	return func(c *settingsStoreConfig) {
		c.dirPerm = perm
	}
}

// SettingsStore implements ports.KeyValueStore over a flat YAML map.
type SettingsStore struct {
	config settingsStoreConfig
	mu     sync.Mutex
}

// NewSettingsStore creates a new SettingsStore with the given options.
func NewSettingsStore(opts ...SettingsStoreOption) *SettingsStore {
	cfg := defaultSettingsStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SettingsStore{config: cfg}
}

// Get returns the value stored under key.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// ConfigPath returns the path to the backing file.
func (s *SettingsStore) ConfigPath() string {
	return s.config.path
}

func (s *SettingsStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.config.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (s *SettingsStore) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.config.path), s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := os.WriteFile(s.config.path, data, s.config.filePerm); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
