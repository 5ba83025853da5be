package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/fileutil"
	"github.com/alnah/go-md2pdf-live/internal/hints"
	"github.com/alnah/go-md2pdf-live/internal/store"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage            = errors.New("invalid usage")
	ErrNoInput          = errors.New("no input specified")
	ErrReadMarkdown     = errors.New("failed to read markdown file")
	ErrWritePDF         = errors.New("failed to write PDF file")
	ErrInvalidExtension = errors.New("file must have .md, .markdown or .txt extension")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// markdownExtensions lists the input extensions convert and watch accept.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// runConvert materializes one file through an in-memory store, the same
// path an upload takes through the service.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	input, err := singleInput(positional)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env.Getenv)
	if err != nil {
		return err
	}
	if flags.timeout > 0 {
		cfg.Renderer.TimeoutSeconds = int(math.Ceil(flags.timeout.Seconds()))
	}

	opts := flags.page.options()
	if err := opts.Validate(); err != nil {
		return err
	}

	data, err := readMarkdown(input)
	if err != nil {
		return err
	}

	initCLILogger(flags.common, cfg)

	st := store.NewMemory()
	id, err := st.Put(ctx, data, filepath.Base(input))
	if err != nil {
		return err
	}

	conv, err := env.NewConverter(cfg, st)
	if err != nil {
		return fmt.Errorf("creating converter: %w", err)
	}
	defer func() { _ = conv.Close() }()

	start := env.Now()
	art, err := conv.Materialize(ctx, md2pdf.MaterializeRequest{
		SourceID: id,
		Title:    flags.title,
		Options:  opts,
	})
	if err != nil {
		return fmt.Errorf("converting %s: %w", input, err)
	}

	outPath := resolveOutputPath(flags.output, input, art.Filename)
	if err := writePDF(outPath, art.PDF); err != nil {
		return err
	}

	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "%s -> %s\n", input, outPath)
	}
	if flags.common.verbose {
		fmt.Fprintf(env.Stdout, "  %d bytes, %s, %v\n", art.Len(), pagesLabel(art.Pages), env.Now().Sub(start).Round(time.Millisecond))
	}
	return nil
}

// singleInput checks that exactly one input file was given.
func singleInput(positional []string) (string, error) {
	switch len(positional) {
	case 0:
		return "", ErrNoInput
	case 1:
		return positional[0], nil
	}
	return "", fmt.Errorf("%w: expected one input file, got %d", ErrUsage, len(positional))
}

// readMarkdown reads an input file after checking its extension.
func readMarkdown(path string) ([]byte, error) {
	if !markdownExtensions[strings.ToLower(filepath.Ext(path))] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExtension, path)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided input path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadMarkdown, err)
	}
	return data, nil
}

// resolveOutputPath picks the PDF path. An empty output replaces the input
// extension; an existing directory or a trailing separator receives the
// artifact's own file name.
func resolveOutputPath(output, input, artifactName string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".pdf"
	}
	if strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(filepath.Separator)) {
		return filepath.Join(output, artifactName)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, artifactName)
	}
	return output
}

// writePDF creates the parent directory and replaces path atomically.
func writePDF(path string, pdf []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return withHint(fmt.Errorf("%w: %v", ErrWritePDF, err), hints.ForOutputDirectory())
	}
	if err := fileutil.WriteFileAtomic(path, pdf, filePermissions); err != nil {
		return withHint(fmt.Errorf("%w: %v", ErrWritePDF, err), hints.ForOutputDirectory())
	}
	return nil
}

func pagesLabel(n int) string {
	switch n {
	case 0:
		return "unknown pages"
	case 1:
		return "1 page"
	}
	return fmt.Sprintf("%d pages", n)
}
