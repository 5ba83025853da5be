package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "md2pdf.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	if cfg.Server.Port != 3001 {
		t.Errorf("Server.Port = %d, want 3001", cfg.Server.Port)
	}
	if cfg.IsProduction() {
		t.Error("default environment should be development")
	}
	if cfg.Limits.MaxUploadBytes != 10<<20 || cfg.Limits.MaxPreviewBytes != 1<<20 {
		t.Errorf("Limits = %+v", cfg.Limits)
	}
	if cfg.Renderer.Timeout() != 30*time.Second || cfg.Renderer.PreviewTimeout() != 15*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.Renderer.Timeout(), cfg.Renderer.PreviewTimeout())
	}
	if cfg.RateLimit.Max != 100 || cfg.RateLimit.Window() != 15*time.Minute {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Addr() != ":3001" {
		t.Errorf("Addr() = %q, want :3001", cfg.Addr())
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"unknown env", func(c *Config) { c.Server.Env = "staging" }, "server.env"},
		{"negative grace", func(c *Config) { c.Server.ShutdownGraceSeconds = -1 }, "shutdownGraceSeconds"},
		{"zero upload limit", func(c *Config) { c.Limits.MaxUploadBytes = 0 }, "limits.maxUploadBytes"},
		{"zero preview limit", func(c *Config) { c.Limits.MaxPreviewBytes = 0 }, "limits.maxPreviewBytes"},
		{"unknown engine", func(c *Config) { c.Renderer.Engine = "webkit" }, "renderer.engine"},
		{"negative concurrency", func(c *Config) { c.Renderer.MaxConcurrent = -2 }, "renderer.maxConcurrent"},
		{"zero timeout", func(c *Config) { c.Renderer.TimeoutSeconds = 0 }, "timeouts must be positive"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"redis without addr", func(c *Config) { c.Storage.Backend = StorageRedis }, "storage.redis.addr"},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = StorageGCS }, "storage.gcs.bucket"},
		{"negative prune", func(c *Config) { c.Storage.PruneAfterMinutes = -1 }, "pruneAfterMinutes"},
		{"zero rate max", func(c *Config) { c.RateLimit.Max = 0 }, "rateLimit"},
		{"redis limiter without addr", func(c *Config) { c.RateLimit.Storage = StorageRedis }, "rateLimit.storage"},
		{"unknown limiter storage", func(c *Config) { c.RateLimit.Storage = "disk" }, "rateLimit.storage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}

	t.Run("disabled rate limit skips its checks", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.RateLimit = RateLimitConfig{Enabled: false}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("redis backend with addr", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Storage.Backend = StorageRedis
		cfg.Storage.Redis.Addr = "localhost:6379"
		cfg.RateLimit.Storage = StorageRedis
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Parallel()

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		err := cfg.ApplyEnv(envMap(map[string]string{
			"PORT":            "8080",
			"MD2PDF_ENV":      "Production",
			"ROD_BROWSER_BIN": "/usr/bin/chromium",
			"CHROME_BIN":      "/opt/chrome",
			"ROD_NO_SANDBOX":  "true",
			"REDIS_ADDR":      "redis:6379",
		}))
		if err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.Server.Port != 8080 || !cfg.IsProduction() {
			t.Errorf("Server = %+v", cfg.Server)
		}
		if cfg.Renderer.BrowserBin != "/usr/bin/chromium" || !cfg.Renderer.NoSandbox {
			t.Errorf("Renderer = %+v", cfg.Renderer)
		}
		if cfg.Storage.Redis.Addr != "redis:6379" {
			t.Errorf("Redis.Addr = %q", cfg.Storage.Redis.Addr)
		}
	})

	t.Run("CHROME_BIN fallback", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		if err := cfg.ApplyEnv(envMap(map[string]string{"CHROME_BIN": "/opt/chrome"})); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.Renderer.BrowserBin != "/opt/chrome" {
			t.Errorf("BrowserBin = %q, want /opt/chrome", cfg.Renderer.BrowserBin)
		}
	})

	t.Run("empty environment keeps file values", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Server.Port = 9000
		if err := cfg.ApplyEnv(envMap(nil)); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.Server.Port != 9000 {
			t.Errorf("Port = %d, want 9000", cfg.Server.Port)
		}
	})

	for _, env := range []map[string]string{
		{"PORT": "http"},
		{"ROD_NO_SANDBOX": "maybe"},
		{"MD2PDF_ENV": "qa"},
	} {
		cfg := DefaultConfig()
		if err := cfg.ApplyEnv(envMap(env)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("ApplyEnv(%v) error = %v, want ErrInvalidConfig", env, err)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `server:
  port: 4000
  env: production
renderer:
  engine: chromedp
  maxConcurrent: 2
storage:
  backend: memory
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.Port != 4000 || !cfg.IsProduction() {
			t.Errorf("Server = %+v", cfg.Server)
		}
		if cfg.Renderer.Engine != "chromedp" || cfg.Renderer.MaxConcurrent != 2 {
			t.Errorf("Renderer = %+v", cfg.Renderer)
		}
		if cfg.Renderer.TimeoutSeconds != 30 {
			t.Errorf("TimeoutSeconds = %d, want default 30", cfg.Renderer.TimeoutSeconds)
		}
		if cfg.Storage.Backend != StorageMemory {
			t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
		}
		if cfg.RateLimit.Max != 100 {
			t.Errorf("RateLimit.Max = %d, want default 100", cfg.RateLimit.Max)
		}
	})

	t.Run("cors origins list", func(t *testing.T) {
		path := writeConfig(t, `server:
  corsOrigins:
    - https://a.example
    - https://b.example
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
			t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("unknown name returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig("definitely-not-a-config-name")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "tried") {
			t.Errorf("error %q should list tried paths", err)
		}
	})

	t.Run("invalid YAML returns ErrConfigParse", func(t *testing.T) {
		path := writeConfig(t, "server: [unclosed")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("unknown field returns ErrConfigParse in strict mode", func(t *testing.T) {
		path := writeConfig(t, "server:\n  prot: 3000\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		path := writeConfig(t, "renderer:\n  engine: webkit\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})
}

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := SearchPaths("work")
	if len(paths) < 2 {
		t.Fatalf("expected at least the local candidates, got %v", paths)
	}
	if paths[0] != "work.yaml" || paths[1] != "work.yml" {
		t.Errorf("local candidates = %v, want work.yaml then work.yml", paths[:2])
	}
	for _, p := range paths[2:] {
		if !strings.Contains(filepath.ToSlash(p), "md2pdf-live/work.") {
			t.Errorf("user candidate %q not under md2pdf-live", p)
		}
	}
}
