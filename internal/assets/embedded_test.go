package assets

import (
	"errors"
	"strings"
	"testing"
)

// Notes:
// - The embedded set holds one style and one template, both named "document".
// - The stylesheet must not reference remote resources: the browser renders
//   from a file:// URL and must never hit the network.

func TestEmbeddedLoader_Names(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	tests := []struct {
		name    string
		load    func(string) (string, error)
		input   string
		wantErr error
	}{
		{"style", loader.LoadStyle, DefaultStyleName, nil},
		{"template", loader.LoadTemplate, DefaultTemplateName, nil},
		{"unknown style", loader.LoadStyle, "sepia", ErrStyleNotFound},
		{"unknown template", loader.LoadTemplate, "cover", ErrTemplateNotFound},
		{"empty", loader.LoadStyle, "", ErrInvalidAssetName},
		{"extension", loader.LoadStyle, "document.css", ErrInvalidAssetName},
		{"traversal", loader.LoadTemplate, "../../etc/passwd", ErrInvalidAssetName},
		{"windows traversal", loader.LoadStyle, `..\secret`, ErrInvalidAssetName},
		{"hidden file", loader.LoadStyle, ".hidden", ErrInvalidAssetName},
		{"absolute", loader.LoadTemplate, "/etc/passwd", ErrInvalidAssetName},
		{"space", loader.LoadStyle, "my style", ErrInvalidAssetName},
		{"null byte", loader.LoadStyle, "doc\x00ument", ErrInvalidAssetName},
		{"non-ascii", loader.LoadStyle, "défaut", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("load(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil || got == "" {
				t.Fatalf("load(%q) = %d bytes, %v", tt.input, len(got), err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	doc, err := Load(NewEmbeddedLoader())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	for _, want := range []string{"<!DOCTYPE html>", `<meta charset="utf-8">`, "{{.Title}}", "{{.CSS}}", "{{.Body}}"} {
		if !strings.Contains(doc.Template, want) {
			t.Errorf("template should contain %q", want)
		}
	}
	for _, want := range []string{"font-family", "@media print"} {
		if !strings.Contains(doc.Style, want) {
			t.Errorf("style should contain %q", want)
		}
	}
	for _, forbidden := range []string{"http://", "https://", "@import", "url("} {
		if strings.Contains(doc.Style, forbidden) {
			t.Errorf("document style contains %q", forbidden)
		}
	}
}

type failingLoader struct{ styleErr, tmplErr error }

func (f failingLoader) LoadStyle(string) (string, error)    { return "body{}", f.styleErr }
func (f failingLoader) LoadTemplate(string) (string, error) { return "{{.Body}}", f.tmplErr }

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Load(failingLoader{tmplErr: ErrTemplateNotFound}); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Load() error = %v, want ErrTemplateNotFound", err)
	}
	if _, err := Load(failingLoader{styleErr: ErrStyleNotFound}); !errors.Is(err, ErrStyleNotFound) {
		t.Errorf("Load() error = %v, want ErrStyleNotFound", err)
	}
}
