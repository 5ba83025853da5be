// Package preview drives a live PDF preview from a stream of edits.
//
// A Controller waits for a quiet period after the last edit, renders the
// latest text and shows the result. Every dispatched render gets a new,
// strictly increasing token; a result whose token is no longer current is
// released without being shown, so a slow early render can never replace a
// newer one. Superseded renders are canceled through their context.
package preview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

// DefaultQuietPeriod is the debounce delay between the last edit and a render.
const DefaultQuietPeriod = 500 * time.Millisecond

// RenderFunc renders Markdown text to a PDF artifact. It should return soon
// after ctx is canceled.
type RenderFunc func(ctx context.Context, content string) (*md2pdf.Artifact, error)

// Sink displays preview state. Methods are called with the controller's lock
// held, one at a time and in order; they must not call back into the
// Controller.
type Sink interface {
	// Show displays h. The previously shown handle has already been released.
	Show(h *Handle)
	// Clear removes whatever is displayed.
	Clear()
	// Error reports a failed render of the current content.
	Error(err error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithQuietPeriod sets the debounce delay. Non-positive values are ignored.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.quiet = d
		}
	}
}

// WithReleaseHook is called once for every artifact the controller lets go,
// whether it was displayed or arrived stale. The hook runs with the
// controller's lock held and must not call back into the Controller.
func WithReleaseHook(fn func(*md2pdf.Artifact)) Option {
	return func(c *Controller) {
		c.hook = fn
	}
}

// WithLogger sets the logger for render lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// flight is a dispatched render.
type flight struct {
	token   uint64
	content string
	cancel  context.CancelFunc
}

// Controller debounces edits and keeps at most one artifact displayed.
// All methods are safe for concurrent use.
type Controller struct {
	render RenderFunc
	sink   Sink
	quiet  time.Duration
	hook   func(*md2pdf.Artifact)
	log    zerolog.Logger

	mu        sync.Mutex
	latest    string
	token     uint64
	timer     *time.Timer
	timerGen  uint64
	inflight  *flight
	displayed *Handle
	closed    bool

	wg sync.WaitGroup
}

// NewController returns a Controller that renders with render and reports to
// sink.
func NewController(render RenderFunc, sink Sink, opts ...Option) *Controller {
	c := &Controller{
		render: render,
		sink:   sink,
		quiet:  DefaultQuietPeriod,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update records new editor content. Empty or whitespace-only content clears
// the preview at once; anything else (re)starts the quiet period.
func (c *Controller) Update(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.latest = content
	if isBlank(content) {
		c.stopTimer()
		c.supersede()
		c.releaseDisplayed()
		c.sink.Clear()
		return
	}

	c.stopTimer()
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.quiet, func() { c.fire(gen) })
}

// Refresh renders the latest content now, even if it is already displayed.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopTimer()
	c.dispatch(true)
}

// Displayed returns the handle currently shown, or nil.
func (c *Controller) Displayed() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayed
}

// Token returns the current request token.
func (c *Controller) Token() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Close stops the timer, cancels the in-flight render, waits for it to return
// and releases the displayed artifact. Later calls are no-ops.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopTimer()
	c.supersede()
	c.releaseDisplayed()
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.timerGen {
		return
	}
	c.timer = nil
	c.dispatch(false)
}

// dispatch starts a render of the latest content. Unless forced, it skips
// content that is already displayed or being rendered. Callers hold mu.
func (c *Controller) dispatch(force bool) {
	content := c.latest
	if isBlank(content) {
		return
	}

	if !force {
		if c.inflight != nil && c.inflight.content == content {
			return
		}
		if c.displayed != nil && c.displayed.content == content {
			// Edits were reverted while another render was running.
			if c.inflight != nil {
				c.supersede()
			}
			return
		}
	}

	c.supersede()

	ctx, cancel := context.WithCancel(context.Background())
	f := &flight{token: c.token, content: content, cancel: cancel}
	c.inflight = f

	c.log.Debug().Uint64("token", f.token).Int("bytes", len(content)).Msg("preview render dispatched")

	c.wg.Add(1)
	go c.run(ctx, f)
}

func (c *Controller) run(ctx context.Context, f *flight) {
	defer c.wg.Done()

	art, err := c.render(ctx, f.content)

	c.mu.Lock()
	defer c.mu.Unlock()
	f.cancel()
	if c.inflight == f {
		c.inflight = nil
	}

	if f.token != c.token || c.closed {
		if art != nil {
			newHandle(art, f.content, f.token, c.hook).Release()
		}
		c.log.Debug().Uint64("token", f.token).Uint64("current", c.token).Msg("stale preview result discarded")
		return
	}

	if err != nil {
		if art != nil {
			newHandle(art, f.content, f.token, c.hook).Release()
		}
		c.log.Debug().Err(err).Uint64("token", f.token).Msg("preview render failed")
		c.sink.Error(err)
		return
	}
	if art == nil {
		return
	}

	h := newHandle(art, f.content, f.token, c.hook)
	c.releaseDisplayed()
	c.displayed = h
	c.sink.Show(h)
}

// supersede rotates the token and cancels the in-flight render, whose result
// will then be discarded. Callers hold mu.
func (c *Controller) supersede() {
	c.token++
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
}

func (c *Controller) releaseDisplayed() {
	if c.displayed != nil {
		c.displayed.Release()
		c.displayed = nil
	}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
