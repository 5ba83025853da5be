package md2pdf

import (
	"time"

	"github.com/rs/zerolog"
)

// Converter defaults.
const (
	defaultTimeout        = 30 * time.Second
	defaultPreviewTimeout = 15 * time.Second

	// DefaultMaxUploadSize is the ceiling for stored Markdown files.
	DefaultMaxUploadSize = 10 << 20
	// DefaultMaxPreviewSize is the ceiling for inline preview text.
	DefaultMaxPreviewSize = 1 << 20
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout        time.Duration
	previewTimeout time.Duration
	maxConcurrent  int
	engine         Engine
	browserBin     string
	noSandbox      bool
	maxUploadSize  int
	maxPreviewSize int
}

// WithTimeout sets the render timeout for Materialize.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("md2pdf: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithPreviewTimeout sets the render timeout for Preview.
// Panics if d <= 0.
func WithPreviewTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("md2pdf: WithPreviewTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.previewTimeout = d
	}
}

// WithMaxConcurrentRenders caps how many browser processes run at once.
// Zero or negative sizes the gate from GOMAXPROCS (see ResolvePoolSize).
func WithMaxConcurrentRenders(n int) Option {
	return func(c *Converter) {
		c.cfg.maxConcurrent = n
	}
}

// WithEngine selects the browser automation engine. Default: EngineRod.
func WithEngine(e Engine) Option {
	return func(c *Converter) {
		c.cfg.engine = e
	}
}

// WithBrowserBin uses a pre-installed browser binary instead of discovery.
func WithBrowserBin(path string) Option {
	return func(c *Converter) {
		c.cfg.browserBin = path
	}
}

// WithNoSandbox disables the Chrome sandbox, required in most containers.
func WithNoSandbox(noSandbox bool) Option {
	return func(c *Converter) {
		c.cfg.noSandbox = noSandbox
	}
}

// WithMaxUploadSize sets the ceiling for stored Markdown files, in bytes.
func WithMaxUploadSize(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.cfg.maxUploadSize = n
		}
	}
}

// WithMaxPreviewSize sets the ceiling for inline preview text, in bytes.
func WithMaxPreviewSize(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.cfg.maxPreviewSize = n
		}
	}
}

// WithStore sets the collaborator Materialize and RenderHTML read uploads from.
func WithStore(s Store) Option {
	return func(c *Converter) {
		c.store = s
	}
}

// WithLogger sets the logger used for render diagnostics.
// The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}
