// Package config owns the user-facing configuration: instance settings
// in config.yaml and the tracked project list in projects.yaml, both
// under an XDG-style config directory. The sync core treats these as
// read-only input.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcpax/mcpax-cli/internal/modrinth"
)

const appName = "mcpax"

// DefaultMaxConcurrent is the download concurrency when unset.
const DefaultMaxConcurrent = 5

var minecraftVersionRE = regexp.MustCompile(`^\d+\.\d+(\.\d+)?(-\w+)?$`)

// Loader is the mod loader the instance runs.
type Loader string

const (
	LoaderFabric   Loader = "fabric"
	LoaderForge    Loader = "forge"
	LoaderNeoforge Loader = "neoforge"
	LoaderQuilt    Loader = "quilt"
)

// Valid reports whether the loader is a known one.
func (l Loader) Valid() bool {
	switch l {
	case LoaderFabric, LoaderForge, LoaderNeoforge, LoaderQuilt:
		return true
	}
	return false
}

// Config is the instance configuration from config.yaml.
type Config struct {
	MinecraftVersion string `yaml:"minecraft_version"`
	Loader           Loader `yaml:"loader"`
	MinecraftDir     string `yaml:"minecraft_dir"`

	// Optional per-kind directory overrides.
	ModsDir          string `yaml:"mods_dir,omitempty"`
	ShadersDir       string `yaml:"shaders_dir,omitempty"`
	ResourcepacksDir string `yaml:"resourcepacks_dir,omitempty"`

	MaxConcurrentDownloads int `yaml:"max_concurrent_downloads,omitempty"`

	// Channel is the default stability floor for projects that do not
	// set their own (release unless configured otherwise).
	Channel modrinth.Channel `yaml:"channel,omitempty"`
}

// Project is one tracked item from projects.yaml.
type Project struct {
	Slug string `yaml:"slug"`
	// Version pins an exact version id or number; empty tracks latest.
	Version string `yaml:"version,omitempty"`
	// Channel overrides the instance-wide stability floor.
	Channel modrinth.Channel `yaml:"channel,omitempty"`
}

// Projects is the tracked project list document.
type Projects struct {
	Projects []Project `yaml:"projects"`
}

// ValidationError aggregates field-level problems in a config document.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

// Dir returns the config directory: $MCPAX_CONFIG_DIR, else
// $XDG_CONFIG_HOME/mcpax, else ~/.config/mcpax.
func Dir() string {
	if v := strings.TrimSpace(os.Getenv("MCPAX_CONFIG_DIR")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); v != "" {
		return filepath.Join(v, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// ConfigPath is the default config.yaml location.
func ConfigPath() string { return filepath.Join(Dir(), "config.yaml") }

// ProjectsPath is the default projects.yaml location.
func ProjectsPath() string { return filepath.Join(Dir(), "projects.yaml") }

// CacheDir returns the API cache directory: $XDG_CACHE_HOME/mcpax or
// ~/.cache/mcpax.
func CacheDir() string {
	if v := strings.TrimSpace(os.Getenv("XDG_CACHE_HOME")); v != "" {
		return filepath.Join(v, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", appName)
}

// Load reads and validates config.yaml at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes config.yaml, creating the config directory if needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrentDownloads <= 0 {
		c.MaxConcurrentDownloads = DefaultMaxConcurrent
	}
	if c.Channel == "" {
		c.Channel = modrinth.ChannelRelease
	}
	c.MinecraftDir = expandPath(c.MinecraftDir)
	c.ModsDir = expandPath(c.ModsDir)
	c.ShadersDir = expandPath(c.ShadersDir)
	c.ResourcepacksDir = expandPath(c.ResourcepacksDir)
}

// Validate checks required fields and value domains.
func (c Config) Validate() error {
	var fields []string
	if c.MinecraftVersion == "" {
		fields = append(fields, "minecraft_version is required")
	} else if !minecraftVersionRE.MatchString(c.MinecraftVersion) {
		fields = append(fields, fmt.Sprintf("minecraft_version %q is not a valid version", c.MinecraftVersion))
	}
	if !c.Loader.Valid() {
		fields = append(fields, fmt.Sprintf("loader %q must be one of fabric, forge, neoforge, quilt", c.Loader))
	}
	if c.MinecraftDir == "" {
		fields = append(fields, "minecraft_dir is required")
	}
	if c.Channel.Rank() < 0 {
		fields = append(fields, fmt.Sprintf("channel %q must be one of release, beta, alpha", c.Channel))
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// TargetDir maps a project type to its installation directory.
func (c Config) TargetDir(t modrinth.ProjectType) string {
	switch t {
	case modrinth.TypeShader:
		if c.ShadersDir != "" {
			return c.ShadersDir
		}
		return filepath.Join(c.MinecraftDir, "shaderpacks")
	case modrinth.TypeResourcepack:
		if c.ResourcepacksDir != "" {
			return c.ResourcepacksDir
		}
		return filepath.Join(c.MinecraftDir, "resourcepacks")
	default:
		if c.ModsDir != "" {
			return c.ModsDir
		}
		return filepath.Join(c.MinecraftDir, "mods")
	}
}

// ChannelFor resolves the effective stability floor for a project.
func (c Config) ChannelFor(p Project) modrinth.Channel {
	if p.Channel != "" {
		return p.Channel
	}
	return c.Channel
}

func expandPath(p string) string {
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
