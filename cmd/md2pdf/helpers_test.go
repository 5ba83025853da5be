package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/config"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Mock converter and environment
// ---------------------------------------------------------------------------

// mockConverter is a test double for the Converter interface. Artifacts are
// "%PDF-" followed by the Markdown source.
type mockConverter struct {
	mu           sync.Mutex
	store        md2pdf.Store
	cfg          *config.Config
	materialized []md2pdf.MaterializeRequest
	previews     []md2pdf.PreviewRequest
	err          error
	closed       bool
}

func (m *mockConverter) Materialize(ctx context.Context, req md2pdf.MaterializeRequest) (*md2pdf.Artifact, error) {
	m.mu.Lock()
	m.materialized = append(m.materialized, req)
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	file, err := m.store.Get(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	name := req.Title
	if name == "" {
		name = file.Stem()
	}
	return &md2pdf.Artifact{
		PDF:         append([]byte("%PDF-"), file.Data...),
		Filename:    md2pdf.SanitizeFilename(name) + ".pdf",
		MIMEType:    md2pdf.MIMETypePDF,
		Disposition: md2pdf.DispositionAttachment,
		Pages:       2,
	}, nil
}

func (m *mockConverter) Preview(_ context.Context, req md2pdf.PreviewRequest) (*md2pdf.Artifact, error) {
	m.mu.Lock()
	m.previews = append(m.previews, req)
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &md2pdf.Artifact{
		PDF:         []byte("%PDF-" + req.Text),
		Filename:    "preview.pdf",
		MIMEType:    md2pdf.MIMETypePDF,
		Disposition: md2pdf.DispositionInline,
		Pages:       1,
	}, nil
}

func (m *mockConverter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConverter) previewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.previews)
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of watch.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testEnv bundles an Environment with its captured output.
type testEnv struct {
	*Environment
	stdout *syncBuffer
	stderr *syncBuffer
	conv   *mockConverter
}

// newTestEnv returns an Environment with an empty process environment, so
// PORT or ROD_* on the test machine cannot leak in.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		conv:   &mockConverter{},
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC) },
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(string) string { return "" },
		NewConverter: func(cfg *config.Config, st md2pdf.Store) (Converter, error) {
			te.conv.mu.Lock()
			defer te.conv.mu.Unlock()
			te.conv.store = st
			te.conv.cfg = cfg
			return te.conv, nil
		},
	}
	return te
}

// writeFile creates name under dir with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

// readFile returns the file content, or "" when it does not exist.
func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path) // #nosec G304 -- test path
	if err != nil {
		return ""
	}
	return string(data)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// RenderHTML and Stats let mockConverter back a real server in watch tests.
func (m *mockConverter) RenderHTML(context.Context, string, string) (string, error) {
	return "<html></html>", nil
}

func (m *mockConverter) Stats() md2pdf.Stats {
	return md2pdf.Stats{}
}
