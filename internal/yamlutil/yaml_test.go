package yamlutil_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/alnah/go-md2pdf-live/internal/yamlutil"
)

type rendererBlock struct {
	Engine        string   `yaml:"engine"`
	MaxConcurrent int      `yaml:"maxConcurrent"`
	Flags         []string `yaml:"flags"`
}

type testConfig struct {
	Env      string        `yaml:"env"`
	Port     int           `yaml:"port"`
	Renderer rendererBlock `yaml:"renderer"`
}

func defaults() testConfig {
	return testConfig{Env: "development", Port: 3001, Renderer: rendererBlock{Engine: "rod", MaxConcurrent: 2}}
}

// ---------------------------------------------------------------------------
// TestDecode - Overlaying a config document onto defaults
// ---------------------------------------------------------------------------

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
		wantMsg string
	}{
		{name: "known keys", data: "env: production\nport: 8080\n"},
		{name: "comment only", data: "# nothing to change\n"},
		{name: "misspelled key", data: "renderer:\n  maxConcurent: 4\n", wantErr: yamlutil.ErrInvalidDocument, wantMsg: "maxConcurent"},
		{name: "syntax error quotes the line", data: "port: 3001\nrenderer: [unclosed\n", wantErr: yamlutil.ErrInvalidDocument, wantMsg: "2"},
		{name: "empty", data: "", wantErr: yamlutil.ErrEmptyDocument},
		{name: "whitespace only", data: " \n\t\n", wantErr: yamlutil.ErrEmptyDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaults()
			err := yamlutil.Decode([]byte(tt.data), &cfg)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Decode() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Decode() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestDecode_NilDestination(t *testing.T) {
	t.Parallel()

	if err := yamlutil.Decode([]byte("port: 1"), nil); !errors.Is(err, yamlutil.ErrInvalidDocument) {
		t.Errorf("Decode(nil) error = %v, want ErrInvalidDocument", err)
	}
}

func TestDecode_KeepsUnlistedDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaults()
	if err := yamlutil.Decode([]byte("renderer:\n  maxConcurrent: 6\n"), &cfg); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if cfg.Renderer.MaxConcurrent != 6 {
		t.Errorf("MaxConcurrent = %d, want 6", cfg.Renderer.MaxConcurrent)
	}
	if cfg.Env != "development" || cfg.Port != 3001 || cfg.Renderer.Engine != "rod" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

// NOTE: modifies the package-level MaxDocumentSize; not parallel.
func TestDecode_SizeLimit(t *testing.T) {
	orig := yamlutil.MaxDocumentSize
	t.Cleanup(func() { yamlutil.MaxDocumentSize = orig })
	yamlutil.MaxDocumentSize = 16

	cfg := defaults()
	err := yamlutil.Decode([]byte("env: "+strings.Repeat("x", 32)), &cfg)
	if !errors.Is(err, yamlutil.ErrDocumentTooLarge) {
		t.Errorf("Decode() error = %v, want ErrDocumentTooLarge", err)
	}
}

// ---------------------------------------------------------------------------
// TestEncode - Printing the effective config
// ---------------------------------------------------------------------------

func TestEncode(t *testing.T) {
	t.Parallel()

	cfg := defaults()
	cfg.Renderer.Flags = []string{"alpha", "beta"}

	out, err := yamlutil.Encode(cfg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	s := string(out)
	for _, want := range []string{"env: development", "port: 3001", "engine: rod", "- alpha", "- beta"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q, got:\n%s", want, s)
		}
	}

	var back testConfig
	if err := yamlutil.Decode(out, &back); err != nil {
		t.Fatalf("Decode(Encode()) error = %v", err)
	}
	if back.Env != cfg.Env || back.Port != cfg.Port || !slices.Equal(back.Renderer.Flags, cfg.Renderer.Flags) {
		t.Errorf("round trip = %+v, want %+v", back, cfg)
	}
}

// Scalars YAML 1.1 reads as booleans must survive a round trip as strings.
func TestEncode_BooleanLikeStrings(t *testing.T) {
	t.Parallel()

	cfg := defaults()
	cfg.Renderer.Flags = []string{"x", "y"}

	out, err := yamlutil.Encode(cfg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var back testConfig
	if err := yamlutil.Decode(out, &back); err != nil {
		t.Fatalf("Decode(Encode()) error = %v", err)
	}
	if !slices.Equal(back.Renderer.Flags, cfg.Renderer.Flags) {
		t.Errorf("Flags = %q, want %q\n%s", back.Renderer.Flags, cfg.Renderer.Flags, out)
	}
}
