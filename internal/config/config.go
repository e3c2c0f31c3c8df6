// Package config holds the explicitly constructed pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

// DefaultFile is looked up in the project root when no config path is given.
const DefaultFile = "sitepipe.yaml"

// Config is the full pipeline configuration. Paths are relative to Root
// unless absolute.
type Config struct {
	Root      string         `yaml:"-"`
	SourceDir string         `yaml:"source"`
	OutputDir string         `yaml:"output"`
	Parallel  int            `yaml:"parallel"`
	Server    ServerConfig   `yaml:"server"`
	Watch     WatchConfig    `yaml:"watch"`
	Cache     CacheConfig    `yaml:"cache"`
	Less      LessConfig     `yaml:"less"`
	Images    ImageConfig    `yaml:"images"`
	IconFont  IconFontConfig `yaml:"iconfont"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	LiveReload bool   `yaml:"livereload"`
}

// WatchConfig configures the file-watch dispatcher.
type WatchConfig struct {
	// Images enables the image watch category, which is off by default.
	Images bool `yaml:"images"`
}

// CacheConfig selects the image cache backend. An empty Path or
// ":memory:" keeps the cache in process.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// LessConfig configures stylesheet compilation.
type LessConfig struct {
	Command []string `yaml:"command"`
	Entry   string   `yaml:"entry"`
	Output  string   `yaml:"output"`
}

// ImageConfig configures image compression.
type ImageConfig struct {
	JPEGQuality int `yaml:"jpeg_quality"`
}

// IconFontConfig configures icon-font synthesis.
type IconFontConfig struct {
	Name           string `yaml:"name"`
	StartCodepoint int    `yaml:"start_codepoint"`
	EmSize         int    `yaml:"em_size"`
}

// Default returns the stock project layout rooted at root.
func Default(root string) *Config {
	if root == "" {
		root = "."
	}
	return &Config{
		Root:      root,
		SourceDir: "src",
		OutputDir: "build",
		Server: ServerConfig{
			Host:       "localhost",
			Port:       8080,
			LiveReload: true,
		},
		Cache: CacheConfig{Path: filepath.Join(".sitepipe", "cache.db")},
		Less: LessConfig{
			Command: []string{"lessc"},
			Entry:   filepath.Join("styles", "main.less"),
			Output:  "main.css",
		},
		Images: ImageConfig{JPEGQuality: 80},
		IconFont: IconFontConfig{
			Name:           "american-made-icons",
			StartCodepoint: 0xE001,
			EmSize:         1000,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file and the
// environment. A .env file in root is loaded first without overriding
// variables that are already set. When configPath is empty, DefaultFile
// in root is used if present.
func Load(configPath, root string) (*Config, error) {
	cfg := Default(root)

	envFile := filepath.Join(cfg.Root, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, buildErrors.NewConfigLoadError(envFile, err)
		}
	}

	if configPath == "" {
		candidate := filepath.Join(cfg.Root, DefaultFile)
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, buildErrors.NewConfigLoadError(configPath, err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, buildErrors.NewConfigLoadError(configPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SITEPIPE_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SITEPIPE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return buildErrors.NewInvalidConfigError("SITEPIPE_PORT", v, "must be an integer")
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("SITEPIPE_CACHE"); ok {
		c.Cache.Path = v
	}
	return nil
}

// Validate checks field ranges and required values.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return buildErrors.NewInvalidConfigError("source", c.SourceDir, "source directory is required")
	}
	if c.OutputDir == "" {
		return buildErrors.NewInvalidConfigError("output", c.OutputDir, "output directory is required")
	}
	if filepath.Clean(c.SourceDir) == filepath.Clean(c.OutputDir) {
		return buildErrors.NewInvalidConfigError("output", c.OutputDir, "output directory must differ from the source directory")
	}
	if c.Parallel < 0 {
		return buildErrors.NewInvalidConfigError("parallel", strconv.Itoa(c.Parallel), "must be zero (one per CPU) or positive")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return buildErrors.NewInvalidConfigError("server.port", strconv.Itoa(c.Server.Port), "must be between 1 and 65535")
	}
	if len(c.Less.Command) == 0 || c.Less.Command[0] == "" {
		return buildErrors.NewInvalidConfigError("less.command", "", "a compiler command is required")
	}
	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		return buildErrors.NewInvalidConfigError("images.jpeg_quality", strconv.Itoa(c.Images.JPEGQuality), "must be between 1 and 100")
	}
	if c.IconFont.Name == "" {
		return buildErrors.NewInvalidConfigError("iconfont.name", "", "a font name is required")
	}
	if c.IconFont.StartCodepoint < 0xE000 || c.IconFont.StartCodepoint > 0xF8FF {
		return buildErrors.NewInvalidConfigError("iconfont.start_codepoint",
			fmt.Sprintf("%#x", c.IconFont.StartCodepoint), "must lie in the private use area U+E000 to U+F8FF")
	}
	if c.IconFont.EmSize <= 0 {
		return buildErrors.NewInvalidConfigError("iconfont.em_size", strconv.Itoa(c.IconFont.EmSize), "must be positive")
	}
	return nil
}

// Src joins parts onto the source directory.
func (c *Config) Src(parts ...string) string {
	return c.resolve(c.SourceDir, parts...)
}

// Out joins parts onto the output directory.
func (c *Config) Out(parts ...string) string {
	return c.resolve(c.OutputDir, parts...)
}

// CachePath returns the resolved cache location, or the in-memory marker.
func (c *Config) CachePath() string {
	if c.Cache.Path == "" || c.Cache.Path == ":memory:" {
		return c.Cache.Path
	}
	return c.resolve(c.Cache.Path)
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) resolve(base string, parts ...string) string {
	p := filepath.Join(append([]string{base}, parts...)...)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
