package main

// Notes:
// - exitCodeFor: we test the sentinel errors from md2pdf, config, client and
//   this package, plus wrapped errors to verify errors.Is() chain works correctly.
// - Exit code constants: we verify Unix conventions (0=success, 1=general, 2=usage)
//   and custom codes are below 126.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"fmt"
	"os"
	"testing"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/client"
	"github.com/alnah/go-md2pdf-live/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		// Success
		{"nil error", nil, ExitSuccess},

		// Browser/rendering errors (exit 4)
		{"browser launch", md2pdf.ErrBrowserLaunch, ExitBrowser},
		{"page load", md2pdf.ErrPageLoad, ExitBrowser},
		{"pdf generation", md2pdf.ErrPDFGeneration, ExitBrowser},
		{"render timeout", md2pdf.ErrRenderTimeout, ExitBrowser},
		{"no output", md2pdf.ErrRenderProducedNoOutput, ExitBrowser},
		{"remote unavailable", &client.APIError{Status: 503, Kind: md2pdf.KindRendererUnavailable}, ExitBrowser},
		{"wrapped browser launch", fmt.Errorf("converting: %w", md2pdf.ErrBrowserLaunch), ExitBrowser},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"read markdown", ErrReadMarkdown, ExitIO},
		{"write pdf", ErrWritePDF, ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"not found", md2pdf.ErrNotFound, ExitIO},
		{"storage failure", md2pdf.ErrStorageFailure, ExitIO},
		{"wrapped file not exist", fmt.Errorf("reading: %w", os.ErrNotExist), ExitIO},

		// Usage/config/validation errors (exit 2)
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"empty config name", config.ErrEmptyConfigName, ExitUsage},
		{"invalid config", config.ErrInvalidConfig, ExitUsage},
		{"empty content", md2pdf.ErrEmptyContent, ExitUsage},
		{"content too large", md2pdf.ErrContentTooLarge, ExitUsage},
		{"invalid page format", md2pdf.ErrInvalidPageFormat, ExitUsage},
		{"invalid margin", md2pdf.ErrInvalidMargin, ExitUsage},
		{"invalid server URL", client.ErrInvalidBaseURL, ExitUsage},
		{"invalid extension", ErrInvalidExtension, ExitUsage},
		{"usage", ErrUsage, ExitUsage},
		{"hinted usage", withHint(config.ErrConfigNotFound, "hint"), ExitUsage},

		// General errors (exit 1)
		{"unknown error", errors.New("unknown"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Unix conventions
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 {
		t.Errorf("ExitSuccess = %d, want 0", ExitSuccess)
	}
	if ExitGeneral != 1 {
		t.Errorf("ExitGeneral = %d, want 1", ExitGeneral)
	}
	if ExitUsage != 2 {
		t.Errorf("ExitUsage = %d, want 2", ExitUsage)
	}
	for _, code := range []int{ExitIO, ExitBrowser} {
		if code <= ExitUsage || code >= 126 {
			t.Errorf("custom exit code %d outside (2, 126)", code)
		}
	}
}
