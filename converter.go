package md2pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/alnah/go-md2pdf-live/internal/pipeline"
)

// Default document titles per entry point.
const (
	DefaultMaterializeTitle = "Markdown Document"
	DefaultPreviewTitle     = "Live Preview"
	DefaultHTMLPreviewTitle = "Preview"
)

// documentTemplater wraps a fragment in a complete HTML document.
type documentTemplater interface {
	Apply(ctx context.Context, title, fragment string) (string, error)
}

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownRenderer = (*pipeline.GoldmarkRenderer)(nil)
	_ documentTemplater         = (*pipeline.Templater)(nil)
)

// Converter orchestrates Markdown to PDF conversion:
//
//	Received -> ContentResolved -> Rendered -> Templated -> PDFGenerated -> Delivered
//
// Each PDF is printed by a dedicated browser process that is torn down before
// the call returns. A Converter is safe for concurrent use.
type Converter struct {
	cfg       converterConfig
	store     Store
	log       zerolog.Logger
	markdown  pipeline.MarkdownRenderer
	templater documentTemplater
	renderer  pdfRenderer
	gate      *renderGate
	pages     pageCounter
}

// NewConverter creates a Converter with default configuration.
// Use options to customize behavior (e.g., WithStore, WithTimeout, WithEngine).
// Returns error if the engine is unknown or the embedded template fails to load.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			timeout:        defaultTimeout,
			previewTimeout: defaultPreviewTimeout,
			maxUploadSize:  DefaultMaxUploadSize,
			maxPreviewSize: DefaultMaxPreviewSize,
		},
		log:      zerolog.Nop(),
		markdown: pipeline.NewGoldmarkRenderer(),
		pages:    countPages,
	}

	for _, opt := range opts {
		opt(c)
	}

	engine, err := ParseEngine(string(c.cfg.engine))
	if err != nil {
		return nil, err
	}
	c.cfg.engine = engine

	if c.templater == nil {
		t, err := pipeline.NewTemplater()
		if err != nil {
			return nil, fmt.Errorf("initializing templater: %w", err)
		}
		c.templater = t
	}

	// Create renderer if not injected (e.g., by tests)
	if c.renderer == nil {
		c.renderer = newScopedRenderer(c.newLauncher(), c.log)
	}

	c.gate = newRenderGate(ResolvePoolSize(c.cfg.maxConcurrent))
	return c, nil
}

func (c *Converter) newLauncher() browserLauncher {
	if c.cfg.engine == EngineChromedp {
		return &chromedpLauncher{bin: c.cfg.browserBin, noSandbox: c.cfg.noSandbox}
	}
	return &rodLauncher{bin: c.cfg.browserBin, noSandbox: c.cfg.noSandbox}
}

// conversion is one run of the state machine.
type conversion struct {
	source       Source
	title        string
	options      Options
	defaultTitle string
	timeout      time.Duration
	disposition  Disposition
}

// Materialize converts a stored upload into a PDF meant for download.
func (c *Converter) Materialize(ctx context.Context, req MaterializeRequest) (*Artifact, error) {
	return c.convert(ctx, conversion{
		source:       Source{Kind: SourceUploaded, ID: req.SourceID},
		title:        req.Title,
		options:      req.Options,
		defaultTitle: DefaultMaterializeTitle,
		timeout:      c.cfg.timeout,
		disposition:  DispositionAttachment,
	})
}

// Preview converts inline text into a PDF meant for inline display.
// It uses the shorter preview timeout and the preview size ceiling.
func (c *Converter) Preview(ctx context.Context, req PreviewRequest) (*Artifact, error) {
	return c.convert(ctx, conversion{
		source:       Source{Kind: SourceInline, Text: req.Text},
		title:        req.Title,
		options:      req.Options,
		defaultTitle: DefaultPreviewTitle,
		timeout:      c.cfg.previewTimeout,
		disposition:  DispositionInline,
	})
}

// RenderHTML returns the templated HTML document of a stored upload without
// printing it. An empty title uses the file stem, then DefaultHTMLPreviewTitle.
func (c *Converter) RenderHTML(ctx context.Context, id, title string) (doc string, err error) {
	stage := StageReceived
	defer func() {
		if r := recover(); r != nil {
			err = &ConversionError{Stage: stage, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	stage = StageContentResolved
	text, stem, err := c.resolveContent(ctx, Source{Kind: SourceUploaded, ID: id})
	if err != nil {
		return "", failAt(stage, err)
	}

	stage = StageRendered
	fragment, err := c.markdown.Render(ctx, text)
	if err != nil {
		return "", failAt(stage, err)
	}

	stage = StageTemplated
	docTitle := resolveTitle(title, stem)
	if docTitle == "" {
		docTitle = DefaultHTMLPreviewTitle
	}
	doc, err = c.templater.Apply(ctx, docTitle, fragment)
	if err != nil {
		return "", failAt(stage, err)
	}
	return doc, nil
}

// convert runs the state machine. Recovers from internal panics to prevent
// crashes from propagating to callers.
func (c *Converter) convert(ctx context.Context, job conversion) (art *Artifact, err error) {
	start := time.Now()
	stage := StageReceived
	defer func() {
		if r := recover(); r != nil {
			err = &ConversionError{Stage: stage, Err: fmt.Errorf("internal error: %v", r)}
		}
		if err != nil {
			c.log.Debug().Err(err).Str("kind", KindOf(err).String()).Msg("conversion failed")
		}
	}()

	popts, err := job.options.resolve()
	if err != nil {
		return nil, failAt(stage, err)
	}

	stage = StageContentResolved
	text, stem, err := c.resolveContent(ctx, job.source)
	if err != nil {
		return nil, failAt(stage, err)
	}

	stage = StageRendered
	fragment, err := c.markdown.Render(ctx, text)
	if err != nil {
		return nil, failAt(stage, err)
	}

	stage = StageTemplated
	title := resolveTitle(job.title, stem)
	docTitle := title
	if docTitle == "" {
		docTitle = job.defaultTitle
	}
	document, err := c.templater.Apply(ctx, docTitle, fragment)
	if err != nil {
		return nil, failAt(stage, err)
	}

	stage = StagePDFGenerated
	pdf, err := c.renderPDF(ctx, document, popts, job.timeout)
	if err != nil {
		return nil, failAt(stage, err)
	}

	stage = StageDelivered
	art = &Artifact{
		PDF:         pdf,
		Filename:    filenameFor(job.source, title),
		MIMEType:    MIMETypePDF,
		Disposition: job.disposition,
	}
	if n, perr := c.pages(pdf); perr != nil {
		c.log.Warn().Err(perr).Msg("could not read PDF page count")
	} else {
		art.Pages = n
	}

	c.log.Debug().
		Str("filename", art.Filename).
		Str("disposition", string(art.Disposition)).
		Int("bytes", art.Len()).
		Int("pages", art.Pages).
		Dur("elapsed", time.Since(start)).
		Msg("conversion delivered")
	return art, nil
}

// resolveContent returns the Markdown text and, for uploads, the file stem.
func (c *Converter) resolveContent(ctx context.Context, src Source) (text, stem string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	switch src.Kind {
	case SourceInline:
		if err := validateText(src.Text, c.cfg.maxPreviewSize, " for live preview"); err != nil {
			return "", "", err
		}
		return src.Text, "", nil

	case SourceUploaded:
		if strings.TrimSpace(src.ID) == "" {
			return "", "", ErrMissingSourceID
		}
		if c.store == nil {
			return "", "", fmt.Errorf("%w: no store configured", ErrStorageFailure)
		}
		f, err := c.store.Get(ctx, src.ID)
		if err != nil {
			return "", "", classifyStoreErr(ctx, err)
		}
		text := string(f.Data)
		if err := validateText(text, c.cfg.maxUploadSize, ""); err != nil {
			return "", "", err
		}
		return text, f.Stem(), nil
	}

	return "", "", fmt.Errorf("%w: unknown source kind %d", ErrInvalidInput, src.Kind)
}

// validateText enforces non-empty, size-bounded, valid UTF-8 content.
func validateText(text string, limit int, scope string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyContent
	}
	if len(text) > limit {
		return fmt.Errorf("%w%s (%d bytes, max %d)", ErrContentTooLarge, scope, len(text), limit)
	}
	if !utf8.ValidString(text) {
		return ErrInvalidEncoding
	}
	return nil
}

// classifyStoreErr keeps NotFound and InvalidInput and maps anything else to
// StorageFailure.
func classifyStoreErr(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: please upload the file first", err)
	case errors.Is(err, ErrInvalidInput):
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

// resolveTitle picks the explicit title, then the file stem. Returns "" when
// neither is usable.
func resolveTitle(explicit, stem string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	return strings.TrimSpace(stem)
}

// renderPDF waits for a gate slot, then prints with the entry point's timeout.
// The timeout covers rendering only, not time spent waiting for a slot.
func (c *Converter) renderPDF(ctx context.Context, document string, opts printOptions, timeout time.Duration) ([]byte, error) {
	release, err := c.gate.acquire(ctx)
	if err != nil {
		return nil, classifyRenderErr(ctx, ErrRendererUnavailable, err)
	}
	defer release()

	renderCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.renderer.Render(renderCtx, document, opts)
}

// Stats is a snapshot of renderer load.
type Stats struct {
	Engine        Engine `json:"engine"`
	Capacity      int    `json:"capacity"`
	InFlight      int    `json:"inFlight"`
	Waiting       int    `json:"waiting"`
	LiveProcesses int    `json:"liveProcesses"`
}

// Stats reports gate capacity, renders in flight and open browser processes.
func (c *Converter) Stats() Stats {
	return Stats{
		Engine:        c.cfg.engine,
		Capacity:      c.gate.size,
		InFlight:      int(c.gate.inFlight.Load()),
		Waiting:       int(c.gate.waiting.Load()),
		LiveProcesses: c.renderer.LiveProcesses(),
	}
}

// Close releases converter resources. Browsers live only for the duration of
// a single render, so there is nothing persistent to shut down.
func (c *Converter) Close() error {
	return nil
}
