// Package config loads and validates nexus's TOML configuration,
// following the same search-path-then-merge-then-validate shape the
// rest of the ecosystem uses for project config files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full nexus configuration, matching the sections
// documented for the `nexus.config.toml` file.
type Config struct {
	Index   IndexConfig   `toml:"index"`
	Watch   WatchConfig   `toml:"watch"`
	Search  SearchConfig  `toml:"search"`
	GPU     GPUConfig     `toml:"gpu"`
	Storage StorageConfig `toml:"storage"`
}

// IndexConfig controls discovery and extraction scope.
type IndexConfig struct {
	Roots           []string `toml:"roots"`
	SkipExtensions  []string `toml:"skip_extensions"`
	SkipFiles       []string `toml:"skip_files"`
	SkipHidden      bool     `toml:"skip_hidden"`
	MaxFileMB       int      `toml:"max_file_mb"`
	MaxChunks       int      `toml:"max_chunks"`
}

// WatchConfig controls the filesystem watch loop.
type WatchConfig struct {
	DebounceSecs    int      `toml:"debounce_secs"`
	IgnorePatterns  []string `toml:"ignore_patterns"`
}

// SearchConfig controls default query behavior.
type SearchConfig struct {
	DefaultMode  string `toml:"default_mode"` // hybrid | semantic | lexical
	ResultsCount int    `toml:"results_count"`
}

// GPUConfig controls the embedding backend's GPU preference.
type GPUConfig struct {
	Enabled bool `toml:"enabled"`
}

// StorageConfig controls where index state lives on disk.
type StorageConfig struct {
	Path string `toml:"path"`
}

const configFileName = "nexus.config.toml"

// Default returns the built-in defaults, used when no config file is
// found and as the base that discovered files are merged onto.
func Default() *Config {
	home, _ := os.UserHomeDir()
	storagePath := filepath.Join(home, ".nexus", "data")
	if home == "" {
		storagePath = filepath.Join(os.TempDir(), "nexus", "data")
	}

	return &Config{
		Index: IndexConfig{
			Roots:          nil,
			SkipExtensions: []string{"exe", "dll", "so", "dylib", "bin", "iso"},
			SkipFiles:      []string{".git", "node_modules", ".DS_Store"},
			SkipHidden:     true,
			MaxFileMB:      100,
			MaxChunks:      5000,
		},
		Watch: WatchConfig{
			DebounceSecs:   2,
			IgnorePatterns: []string{"*.tmp", "*~", ".#*", "*.swp"},
		},
		Search: SearchConfig{
			DefaultMode:  "hybrid",
			ResultsCount: 10,
		},
		GPU: GPUConfig{Enabled: true},
		Storage: StorageConfig{
			Path: storagePath,
		},
	}
}

// FindConfigFile returns the first config file found, in order:
// ./nexus.config.toml, $XDG_CONFIG_HOME/nexus/nexus.config.toml,
// ~/.nexus/nexus.config.toml. Returns "" if none exist.
func FindConfigFile() string {
	candidates := []string{filepath.Join(".", configFileName)}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "nexus", configFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".nexus", configFileName))
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

// Load builds the effective configuration: defaults, overlaid with
// the first discovered config file (if any), overlaid with
// environment variable overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := FindConfigFile(); path != "" {
		if err := cfg.mergeFromFile(path); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads a specific config file path, bypassing the
// discovery search order.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFromFile(path); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFromFile(path string) error {
	// GPU.Enabled is seeded with the current value so a file without a
	// [gpu] section leaves it unchanged rather than decoding it as false.
	parsed := Config{GPU: c.GPU}
	if _, err := toml.DecodeFile(path, &parsed); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero-value fields from other onto c.
// GPU.Enabled is copied as is; mergeFromFile seeds it with c's value
// before decoding, so only an explicit [gpu] enabled key changes it.
func (c *Config) mergeWith(other *Config) {
	if len(other.Index.Roots) > 0 {
		c.Index.Roots = other.Index.Roots
	}
	if len(other.Index.SkipExtensions) > 0 {
		c.Index.SkipExtensions = other.Index.SkipExtensions
	}
	if len(other.Index.SkipFiles) > 0 {
		c.Index.SkipFiles = other.Index.SkipFiles
	}
	c.Index.SkipHidden = other.Index.SkipHidden || c.Index.SkipHidden
	if other.Index.MaxFileMB > 0 {
		c.Index.MaxFileMB = other.Index.MaxFileMB
	}
	if other.Index.MaxChunks > 0 {
		c.Index.MaxChunks = other.Index.MaxChunks
	}

	if other.Watch.DebounceSecs > 0 {
		c.Watch.DebounceSecs = other.Watch.DebounceSecs
	}
	if len(other.Watch.IgnorePatterns) > 0 {
		c.Watch.IgnorePatterns = other.Watch.IgnorePatterns
	}

	if other.Search.DefaultMode != "" {
		c.Search.DefaultMode = other.Search.DefaultMode
	}
	if other.Search.ResultsCount > 0 {
		c.Search.ResultsCount = other.Search.ResultsCount
	}

	c.GPU.Enabled = other.GPU.Enabled

	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
}

// applyEnvOverrides applies NEXUS_* environment variables, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NEXUS_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("NEXUS_SEARCH_DEFAULT_MODE"); v != "" {
		c.Search.DefaultMode = v
	}
	if v := strings.ToLower(os.Getenv("NEXUS_GPU_ENABLED")); v != "" {
		c.GPU.Enabled = v == "true" || v == "1"
	}
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Search.DefaultMode {
	case "hybrid", "semantic", "lexical":
	default:
		return fmt.Errorf("search.default_mode must be one of hybrid, semantic, lexical, got %q", c.Search.DefaultMode)
	}
	if c.Watch.DebounceSecs < 0 {
		return fmt.Errorf("watch.debounce_secs must be non-negative")
	}
	if c.Index.MaxFileMB <= 0 {
		return fmt.Errorf("index.max_file_mb must be positive")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	return nil
}

// WriteDefault writes a fully-commented default configuration file to
// path, for `nexus config init`.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create file: %w", err)
	}
	defer f.Close()

	_, err = f.WriteString(defaultConfigTemplate())
	if err != nil {
		return fmt.Errorf("config: write template: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	d := Default()
	return fmt.Sprintf(`# nexus configuration

[index]
# Paths to index recursively. Tildes are expanded to the home directory.
roots = []
skip_extensions = %s
skip_files = %s
skip_hidden = %t
max_file_mb = %d
max_chunks = %d

[watch]
debounce_secs = %d
ignore_patterns = %s

[search]
default_mode = %q
results_count = %d

[gpu]
enabled = %t

[storage]
path = %q
`,
		tomlStringList(d.Index.SkipExtensions),
		tomlStringList(d.Index.SkipFiles),
		d.Index.SkipHidden,
		d.Index.MaxFileMB,
		d.Index.MaxChunks,
		d.Watch.DebounceSecs,
		tomlStringList(d.Watch.IgnorePatterns),
		d.Search.DefaultMode,
		d.Search.ResultsCount,
		d.GPU.Enabled,
		d.Storage.Path,
	)
}

func tomlStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ExpandRoots resolves "~" prefixes in index.roots to the user's home
// directory.
func (c *Config) ExpandRoots() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	expanded := make([]string, len(c.Index.Roots))
	for i, root := range c.Index.Roots {
		if root == "~" {
			expanded[i] = home
		} else if strings.HasPrefix(root, "~/") && home != "" {
			expanded[i] = filepath.Join(home, root[2:])
		} else {
			expanded[i] = root
		}
	}
	return expanded, nil
}
