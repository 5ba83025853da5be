// Package config loads the service configuration from YAML and environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-md2pdf-live/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends.
const (
	StorageFS     = "fs"
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageGCS    = "gcs"
)

// Config holds all configuration for the conversion service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Limits    LimitsConfig    `yaml:"limits"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host                 string   `yaml:"host"`
	Port                 int      `yaml:"port"`
	Env                  string   `yaml:"env"` // "development" or "production"
	CORSOrigins          []string `yaml:"corsOrigins"`
	ShutdownGraceSeconds int      `yaml:"shutdownGraceSeconds"`
}

// LimitsConfig bounds request sizes in bytes.
type LimitsConfig struct {
	MaxUploadBytes  int `yaml:"maxUploadBytes"`
	MaxPreviewBytes int `yaml:"maxPreviewBytes"`
}

// RendererConfig controls browser processes.
type RendererConfig struct {
	Engine                string `yaml:"engine"` // "rod" or "chromedp"
	BrowserBin            string `yaml:"browserBin"`
	NoSandbox             bool   `yaml:"noSandbox"`
	MaxConcurrent         int    `yaml:"maxConcurrent"` // 0 = auto
	TimeoutSeconds        int    `yaml:"timeoutSeconds"`
	PreviewTimeoutSeconds int    `yaml:"previewTimeoutSeconds"`
}

// StorageConfig selects where uploads live.
type StorageConfig struct {
	Backend           string      `yaml:"backend"`
	Dir               string      `yaml:"dir"` // fs only; empty = temp dir
	PruneAfterMinutes int         `yaml:"pruneAfterMinutes"`
	Redis             RedisConfig `yaml:"redis"`
	GCS               GCSConfig   `yaml:"gcs"`
}

// RedisConfig is shared by the Redis store and the Redis limiter storage.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttlMinutes"`
}

// GCSConfig names the bucket holding uploads.
type GCSConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// RateLimitConfig defines per-client request limits.
type RateLimitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Max           int    `yaml:"max"`
	WindowSeconds int    `yaml:"windowSeconds"`
	Storage       string `yaml:"storage"` // "memory" or "redis"
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
	Pretty     bool   `yaml:"pretty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                 3001,
			Env:                  EnvDevelopment,
			CORSOrigins:          []string{"http://localhost:5173"},
			ShutdownGraceSeconds: 10,
		},
		Limits: LimitsConfig{
			MaxUploadBytes:  10 << 20,
			MaxPreviewBytes: 1 << 20,
		},
		Renderer: RendererConfig{
			Engine:                "rod",
			TimeoutSeconds:        30,
			PreviewTimeoutSeconds: 15,
		},
		Storage: StorageConfig{
			Backend:           StorageFS,
			PruneAfterMinutes: 60,
			Redis:             RedisConfig{TTLMinutes: 24 * 60},
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Max:           100,
			WindowSeconds: 15 * 60,
			Storage:       StorageMemory,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Timeout returns the materialize render timeout.
func (r RendererConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// PreviewTimeout returns the preview render timeout.
func (r RendererConfig) PreviewTimeout() time.Duration {
	return time.Duration(r.PreviewTimeoutSeconds) * time.Second
}

// Window returns the rate limit window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Validate checks ranges and enumerations.
// Called automatically by LoadConfig and ApplyEnv.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port", "must be between 0 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return invalid("server.env", "must be development or production, got %q", c.Server.Env)
	}
	if c.Server.ShutdownGraceSeconds < 0 {
		return invalid("server.shutdownGraceSeconds", "must not be negative")
	}

	if c.Limits.MaxUploadBytes <= 0 {
		return invalid("limits.maxUploadBytes", "must be positive")
	}
	if c.Limits.MaxPreviewBytes <= 0 {
		return invalid("limits.maxPreviewBytes", "must be positive")
	}

	switch c.Renderer.Engine {
	case "", "rod", "chromedp":
	default:
		return invalid("renderer.engine", "must be rod or chromedp, got %q", c.Renderer.Engine)
	}
	if c.Renderer.MaxConcurrent < 0 {
		return invalid("renderer.maxConcurrent", "must not be negative")
	}
	if c.Renderer.TimeoutSeconds <= 0 || c.Renderer.PreviewTimeoutSeconds <= 0 {
		return invalid("renderer", "timeouts must be positive")
	}

	switch c.Storage.Backend {
	case StorageFS, StorageMemory:
	case StorageRedis:
		if c.Storage.Redis.Addr == "" {
			return invalid("storage.redis.addr", "required for the redis backend")
		}
	case StorageGCS:
		if c.Storage.GCS.Bucket == "" {
			return invalid("storage.gcs.bucket", "required for the gcs backend")
		}
	default:
		return invalid("storage.backend", "must be fs, memory, redis or gcs, got %q", c.Storage.Backend)
	}
	if c.Storage.PruneAfterMinutes < 0 {
		return invalid("storage.pruneAfterMinutes", "must not be negative")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Max <= 0 || c.RateLimit.WindowSeconds <= 0 {
			return invalid("rateLimit", "max and windowSeconds must be positive")
		}
		switch c.RateLimit.Storage {
		case StorageMemory:
		case StorageRedis:
			if c.Storage.Redis.Addr == "" {
				return invalid("rateLimit.storage", "redis requires storage.redis.addr")
			}
		default:
			return invalid("rateLimit.storage", "must be memory or redis, got %q", c.RateLimit.Storage)
		}
	}

	return nil
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

// ApplyEnv overrides fields from environment variables read through getenv,
// then validates the result.
//
//	PORT              server.port
//	MD2PDF_ENV        server.env
//	ROD_BROWSER_BIN   renderer.browserBin (CHROME_BIN as fallback)
//	ROD_NO_SANDBOX    renderer.noSandbox
//	REDIS_ADDR        storage.redis.addr
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return invalid("PORT", "not a number: %q", v)
		}
		c.Server.Port = port
	}
	if v := getenv("MD2PDF_ENV"); v != "" {
		c.Server.Env = strings.ToLower(v)
	}
	if v := getenv("ROD_BROWSER_BIN"); v != "" {
		c.Renderer.BrowserBin = v
	} else if v := getenv("CHROME_BIN"); v != "" {
		c.Renderer.BrowserBin = v
	}
	if v := getenv("ROD_NO_SANDBOX"); v != "" {
		noSandbox, err := strconv.ParseBool(v)
		if err != nil {
			return invalid("ROD_NO_SANDBOX", "not a boolean: %q", v)
		}
		c.Renderer.NoSandbox = noSandbox
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	return c.Validate()
}

// LoadConfig loads configuration from a file path or config name on top of
// DefaultConfig. Keys absent from the file keep their defaults.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths lists the files LoadConfig tries for a config name, in order:
// .yaml then .yml, in the current directory then ~/.config/md2pdf-live/.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "md2pdf-live", name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing entry of SearchPaths.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
