package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/client"
	"github.com/alnah/go-md2pdf-live/internal/config"
	"github.com/alnah/go-md2pdf-live/internal/hints"
	"github.com/alnah/go-md2pdf-live/internal/logging"
	"github.com/alnah/go-md2pdf-live/internal/store"
	"github.com/alnah/go-md2pdf-live/preview"
)

// runWatch re-renders input into a PDF each time the file settles after an
// edit, until ctx is canceled.
func runWatch(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseWatchFlags(args, env.Stderr)
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
	opts := flags.page.options()
	if err := opts.Validate(); err != nil {
		return err
	}

	initial, err := readMarkdown(input)
	if err != nil {
		return err
	}

	initCLILogger(flags.common, cfg)

	render, closeRender, err := newPreviewRenderer(ctx, flags, cfg, opts, env)
	if err != nil {
		return err
	}
	defer func() { _ = closeRender() }()

	outPath := flags.output
	if outPath == "" {
		outPath = resolveOutputPath("", input, "")
	}
	sink := &fileSink{
		path:   outPath,
		stdout: env.Stdout,
		stderr: env.Stderr,
		quiet:  flags.common.quiet,
		now:    env.Now,
	}

	ctrl := preview.NewController(render, sink,
		preview.WithQuietPeriod(flags.debounce),
		preview.WithLogger(logging.Logger()),
	)
	defer func() { _ = ctrl.Close() }()

	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Watching %s -> %s (Ctrl+C to stop)\n", input, outPath)
	}

	// First render skips the quiet period.
	ctrl.Update(string(initial))
	ctrl.Refresh()

	pollFile(ctx, input, flags.interval, initial, ctrl.Update)
	return nil
}

// newPreviewRenderer renders locally, or through the service when --server
// is set. The returned close func releases the local browser resources.
func newPreviewRenderer(ctx context.Context, flags *watchFlags, cfg *config.Config, opts md2pdf.Options, env *Environment) (preview.RenderFunc, func() error, error) {
	request := func(text string) md2pdf.PreviewRequest {
		return md2pdf.PreviewRequest{Text: text, Title: flags.title, Options: opts}
	}

	if flags.server != "" {
		c, err := client.New(flags.server)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Health(ctx); err != nil {
			return nil, nil, withHint(fmt.Errorf("checking server: %w", err), hints.ForServerUnreachable(flags.server))
		}
		render := func(ctx context.Context, text string) (*md2pdf.Artifact, error) {
			return c.Preview(ctx, request(text))
		}
		return render, func() error { return nil }, nil
	}

	conv, err := env.NewConverter(cfg, store.NewMemory())
	if err != nil {
		return nil, nil, fmt.Errorf("creating converter: %w", err)
	}
	render := func(ctx context.Context, text string) (*md2pdf.Artifact, error) {
		return conv.Preview(ctx, request(text))
	}
	return render, conv.Close, nil
}

// pollFile reports content changes of path to onChange until ctx is done.
// Read failures are logged and retried, since editors often replace a file
// by removing and recreating it.
func pollFile(ctx context.Context, path string, interval time.Duration, last []byte, onChange func(string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		lastMod  time.Time
		lastSize int64 = -1
		failing  bool
	)
	if info, err := os.Stat(path); err == nil {
		lastMod, lastSize = info.ModTime(), info.Size()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err == nil && info.ModTime().Equal(lastMod) && info.Size() == lastSize {
			continue
		}
		var data []byte
		if err == nil {
			data, err = os.ReadFile(path) // #nosec G304 -- user-provided input path
		}
		if err != nil {
			if !failing {
				logging.Warn("Cannot read watched file, retrying", "path", path, "error", err)
				failing = true
			}
			continue
		}
		failing = false
		lastMod, lastSize = info.ModTime(), info.Size()

		if bytes.Equal(data, last) {
			continue
		}
		last = data
		onChange(string(data))
	}
}

// fileSink shows previews by replacing the output PDF. Its methods run under
// the controller's lock, so they never overlap.
type fileSink struct {
	path   string
	stdout io.Writer
	stderr io.Writer
	quiet  bool
	now    func() time.Time
	wrote  bool
}

var _ preview.Sink = (*fileSink)(nil)

func (s *fileSink) stamp() string {
	return s.now().Format("15:04:05")
}

func (s *fileSink) Show(h *preview.Handle) {
	art := h.Artifact()
	if err := writePDF(s.path, art.PDF); err != nil {
		fmt.Fprintf(s.stderr, "[%s] Error: %v%s\n", s.stamp(), err, hints.ForOutputDirectory())
		return
	}
	s.wrote = true
	if !s.quiet {
		fmt.Fprintf(s.stdout, "[%s] Updated %s (%s)\n", s.stamp(), s.path, pagesLabel(art.Pages))
	}
}

// Clear removes the PDF only if this session wrote it.
func (s *fileSink) Clear() {
	if s.wrote {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(s.stderr, "[%s] Error: removing %s: %v\n", s.stamp(), s.path, err)
		}
		s.wrote = false
	}
	if !s.quiet {
		fmt.Fprintf(s.stdout, "[%s] Document is empty, preview cleared\n", s.stamp())
	}
}

func (s *fileSink) Error(err error) {
	fmt.Fprintf(s.stderr, "[%s] Render failed: %v%s\n", s.stamp(), err, hints.For(err))
}
