package main

import (
	"errors"
	"os"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/client"
	"github.com/alnah/go-md2pdf-live/internal/config"
)

// Exit codes for md2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful command
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or input
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/rendering errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser/rendering errors (exit 4)
	if errors.Is(err, md2pdf.ErrRendererUnavailable) ||
		errors.Is(err, md2pdf.ErrRenderTimeout) ||
		errors.Is(err, md2pdf.ErrRenderProducedNoOutput) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, md2pdf.ErrNotFound) ||
		errors.Is(err, md2pdf.ErrStorageFailure) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, md2pdf.ErrInvalidInput) ||
		errors.Is(err, client.ErrInvalidBaseURL) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
