package md2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/alnah/go-md2pdf-live/internal/fileutil"
	"github.com/alnah/go-md2pdf-live/internal/process"
)

// Engine selects the browser automation library used to print PDFs.
type Engine string

const (
	EngineRod      Engine = "rod"
	EngineChromedp Engine = "chromedp"
)

// ParseEngine validates an engine name. Empty means EngineRod.
func ParseEngine(name string) (Engine, error) {
	switch Engine(name) {
	case "", EngineRod:
		return EngineRod, nil
	case EngineChromedp:
		return EngineChromedp, nil
	}
	return "", fmt.Errorf("%w: %q (must be rod or chromedp)", ErrInvalidEngine, name)
}

// closeTimeout bounds graceful browser shutdown before the process is killed.
const closeTimeout = 5 * time.Second

// pdfRenderer prints a complete HTML document to PDF.
type pdfRenderer interface {
	Render(ctx context.Context, htmlContent string, opts printOptions) ([]byte, error)
	LiveProcesses() int
}

// browserLauncher starts one isolated headless browser.
type browserLauncher interface {
	Launch(ctx context.Context) (browserSession, error)
}

// browserSession is a single browser process with one page.
// Close must release every resource, including the temp profile, and be safe
// to call after a failed Load or PrintPDF.
type browserSession interface {
	Load(ctx context.Context, path string) error
	PrintPDF(ctx context.Context, opts printOptions) ([]byte, error)
	Close() error
}

// Compile-time interface checks
var (
	_ pdfRenderer     = (*scopedRenderer)(nil)
	_ browserLauncher = (*rodLauncher)(nil)
	_ browserSession  = (*rodSession)(nil)
)

// scopedRenderer launches a fresh browser per document and tears it down
// before Render returns. Browsers are never pooled.
type scopedRenderer struct {
	launcher browserLauncher
	log      zerolog.Logger
	live     atomic.Int64
}

func newScopedRenderer(l browserLauncher, log zerolog.Logger) *scopedRenderer {
	return &scopedRenderer{launcher: l, log: log}
}

// LiveProcesses returns the number of browser sessions currently open.
func (r *scopedRenderer) LiveProcesses() int {
	return int(r.live.Load())
}

// Render writes htmlContent to a temp file, loads it in a new browser and
// prints it. The browser and temp file are removed on every exit path.
func (r *scopedRenderer) Render(ctx context.Context, htmlContent string, opts printOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyRenderErr(ctx, ErrPageLoad, err)
	}

	path, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
	}
	defer cleanup()

	session, err := r.launcher.Launch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, classifyRenderErr(ctx, ErrBrowserLaunch, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}
	r.live.Add(1)
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.log.Debug().Err(cerr).Msg("browser close reported an error")
		}
		r.live.Add(-1)
	}()

	if err := session.Load(ctx, path); err != nil {
		return nil, classifyRenderErr(ctx, ErrPageLoad, err)
	}

	pdf, err := session.PrintPDF(ctx, opts)
	if err != nil {
		return nil, classifyRenderErr(ctx, ErrPDFGeneration, err)
	}
	if len(pdf) == 0 {
		return nil, ErrRenderProducedNoOutput
	}
	return pdf, nil
}

// classifyRenderErr maps a browser error to a kind. Deadline expiry becomes
// ErrRenderTimeout; caller cancellation is returned as is.
func classifyRenderErr(ctx context.Context, sentinel, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRenderTimeout, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// ---------------------------------------------------------------------------
// go-rod engine
// ---------------------------------------------------------------------------

// rodLauncher starts Chrome with the go-rod launcher.
// Rod downloads Chromium on first run if no browser is found.
type rodLauncher struct {
	bin       string
	noSandbox bool
}

func (l *rodLauncher) Launch(ctx context.Context) (browserSession, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(l.noSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if l.bin != "" {
		ln = ln.Bin(l.bin)
	}

	u, err := ln.Launch()
	if err != nil {
		// Cleanup waits for the process to exit, which may never have started.
		ln.Kill()
		_ = os.RemoveAll(ln.Get(flags.UserDataDir))
		return nil, err
	}

	s := &rodSession{ln: ln}
	s.browser = rod.New().ControlURL(u)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		_ = s.Close()
		return nil, err
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.page = page
	return s, nil
}

// rodSession owns one launched browser and its page.
type rodSession struct {
	ln      *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
}

// Load navigates to the file and waits for network idle and the load event.
func (s *rodSession) Load(ctx context.Context, path string) error {
	page := s.page.Context(ctx)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := page.Navigate("file://" + path); err != nil {
		return err
	}
	wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (s *rodSession) PrintPDF(ctx context.Context, o printOptions) ([]byte, error) {
	reader, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		Landscape:         o.Landscape,
		PrintBackground:   o.PrintBackground,
		PreferCSSPageSize: o.PreferCSSPageSize,
		PaperWidth:        floatPtr(o.PaperWidth),
		PaperHeight:       floatPtr(o.PaperHeight),
		MarginTop:         floatPtr(o.MarginTop),
		MarginRight:       floatPtr(o.MarginRight),
		MarginBottom:      floatPtr(o.MarginBottom),
		MarginLeft:        floatPtr(o.MarginLeft),
	})
	if err != nil {
		return nil, err
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return pdf, nil
}

// Close shuts the browser down, kills its process group and removes the
// temp profile. The caller's context may already be expired, so shutdown
// runs on its own timeout.
func (s *rodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Context(context.Background()).Timeout(closeTimeout).Close()
	}
	pid := s.ln.PID()
	s.ln.Kill()
	if pid > 0 {
		_ = process.KillProcessGroup(pid)
	}
	s.ln.Cleanup()
	return err
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
