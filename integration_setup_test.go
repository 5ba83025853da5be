//go:build integration

package md2pdf

// Notes:
// - Integration tests start real browsers. Rod downloads Chromium on first
//   run when ROD_BROWSER_BIN is unset.
// - Concurrency is capped at 2 so CI runners are not exhausted.
// - Both engines run the same cases through newIntegrationConverter.

import (
	"bytes"
	"os"
	"testing"
	"time"
)

// testTimeout is the standard timeout for integration test operations.
const testTimeout = 60 * time.Second

var engines = []Engine{EngineRod, EngineChromedp}

func newIntegrationConverter(t *testing.T, engine Engine, opts ...Option) *Converter {
	t.Helper()

	base := []Option{
		WithEngine(engine),
		WithMaxConcurrentRenders(2),
		WithTimeout(testTimeout),
		WithPreviewTimeout(testTimeout),
		WithNoSandbox(os.Getenv("ROD_NO_SANDBOX") == "true"),
	}
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		base = append(base, WithBrowserBin(bin))
	}

	conv, err := NewConverter(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = conv.Close() })
	return conv
}

func assertValidPDF(t *testing.T, data []byte) {
	t.Helper()

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("data does not have PDF magic bytes, got prefix: %q", data[:min(10, len(data))])
	}

	if len(data) < 100 {
		t.Errorf("PDF data suspiciously small: %d bytes", len(data))
	}
}
