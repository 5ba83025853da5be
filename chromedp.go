package md2pdf

import (
	"context"
	"fmt"
	"os"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/alnah/go-md2pdf-live/internal/process"
)

// Compile-time interface checks
var (
	_ browserLauncher = (*chromedpLauncher)(nil)
	_ browserSession  = (*chromedpSession)(nil)
)

// chromedpLauncher starts Chrome through a chromedp exec allocator with a
// throwaway profile directory.
type chromedpLauncher struct {
	bin       string
	noSandbox bool
}

func (l *chromedpLauncher) Launch(ctx context.Context) (browserSession, error) {
	profile, err := os.MkdirTemp("", "md2pdf-chrome-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp profile dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profile),
		// Software rendering avoids GPU issues in minimal containers.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.bin != "" {
		opts = append(opts, chromedp.ExecPath(l.bin))
	}
	if l.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		ctx:     browserCtx,
		profile: profile,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}

	// The first Run allocates the browser. It must run on the session context
	// itself: a derived context with a deadline would bound the browser's
	// lifetime to that first call.
	if err := s.run(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// chromedpSession owns one browser process and its first tab.
type chromedpSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	profile string
}

// run executes actions on the session, aborting the whole browser when ctx
// is done.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	if err := chromedp.Run(s.ctx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ctxErr, err)
		}
		return err
	}
	return nil
}

func (s *chromedpSession) Load(ctx context.Context, path string) error {
	return s.run(ctx,
		chromedp.Navigate("file://"+path),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *chromedpSession) PrintPDF(ctx context.Context, o printOptions) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithLandscape(o.Landscape).
			WithPrintBackground(o.PrintBackground).
			WithPreferCSSPageSize(o.PreferCSSPageSize).
			WithPaperWidth(o.PaperWidth).
			WithPaperHeight(o.PaperHeight).
			WithMarginTop(o.MarginTop).
			WithMarginRight(o.MarginRight).
			WithMarginBottom(o.MarginBottom).
			WithMarginLeft(o.MarginLeft).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close cancels the browser and allocator contexts, which kills the process
// and waits for it, then reaps stray helpers and removes the profile directory.
func (s *chromedpSession) Close() error {
	pid := 0
	if c := chromedp.FromContext(s.ctx); c != nil && c.Browser != nil {
		if p := c.Browser.Process(); p != nil {
			pid = p.Pid
		}
	}
	s.cancel()
	if pid > 0 {
		_ = process.KillProcessGroup(pid)
	}
	return os.RemoveAll(s.profile)
}
