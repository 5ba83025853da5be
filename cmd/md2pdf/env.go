package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/config"
	"github.com/alnah/go-md2pdf-live/internal/hints"
	"github.com/alnah/go-md2pdf-live/internal/logging"
)

// Converter is the slice of *md2pdf.Converter the convert and watch
// commands drive.
type Converter interface {
	Materialize(ctx context.Context, req md2pdf.MaterializeRequest) (*md2pdf.Artifact, error)
	Preview(ctx context.Context, req md2pdf.PreviewRequest) (*md2pdf.Artifact, error)
	Close() error
}

// Compile-time interface implementation check.
var _ Converter = (*md2pdf.Converter)(nil)

// ConverterFactory builds a Converter reading uploads from st.
type ConverterFactory func(cfg *config.Config, st md2pdf.Store) (Converter, error)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, environment lookup, and converter construction.
type Environment struct {
	Now          func() time.Time
	Stdout       io.Writer
	Stderr       io.Writer
	Getenv       func(string) string
	NewConverter ConverterFactory
}

// DefaultEnv returns the production environment with a browser-backed converter.
func DefaultEnv() *Environment {
	return &Environment{
		Now:          time.Now,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Getenv:       os.Getenv,
		NewConverter: newConverter,
	}
}

func newConverter(cfg *config.Config, st md2pdf.Store) (Converter, error) {
	conv, err := md2pdf.NewConverter(converterOptions(cfg, st)...)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// converterOptions maps the renderer and limits sections onto Converter options.
func converterOptions(cfg *config.Config, st md2pdf.Store) []md2pdf.Option {
	return []md2pdf.Option{
		md2pdf.WithStore(st),
		md2pdf.WithLogger(logging.Logger()),
		md2pdf.WithEngine(md2pdf.Engine(cfg.Renderer.Engine)),
		md2pdf.WithBrowserBin(cfg.Renderer.BrowserBin),
		md2pdf.WithNoSandbox(cfg.Renderer.NoSandbox),
		md2pdf.WithMaxConcurrentRenders(cfg.Renderer.MaxConcurrent),
		md2pdf.WithTimeout(cfg.Renderer.Timeout()),
		md2pdf.WithPreviewTimeout(cfg.Renderer.PreviewTimeout()),
		md2pdf.WithMaxUploadSize(cfg.Limits.MaxUploadBytes),
		md2pdf.WithMaxPreviewSize(cfg.Limits.MaxPreviewBytes),
	}
}

// loadConfig layers the optional config file and environment overrides on
// top of the defaults. An empty nameOrPath skips the file.
func loadConfig(nameOrPath string, getenv func(string) string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if nameOrPath != "" {
		loaded, err := config.LoadConfig(nameOrPath)
		if err != nil {
			err = fmt.Errorf("loading config: %w", err)
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, withHint(err, hints.ForConfigNotFound(config.SearchPaths(nameOrPath)))
			}
			return nil, err
		}
		cfg = loaded
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initCLILogger keeps one-shot commands quiet unless asked otherwise.
// Render diagnostics go to stderr as console output.
func initCLILogger(f commonFlags, cfg *config.Config) {
	level := "warn"
	switch {
	case f.verbose:
		level = "debug"
	case f.quiet:
		level = "error"
	}
	logging.InitLogger(logging.Config{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Level:      level,
		Pretty:     true,
	})
}
