// Package server exposes the converter and upload store over HTTP with fiber.
package server

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/logging"
)

// Converter is the part of *md2pdf.Converter the HTTP surface needs.
type Converter interface {
	Materialize(ctx context.Context, req md2pdf.MaterializeRequest) (*md2pdf.Artifact, error)
	Preview(ctx context.Context, req md2pdf.PreviewRequest) (*md2pdf.Artifact, error)
	RenderHTML(ctx context.Context, id, title string) (string, error)
	Stats() md2pdf.Stats
}

// Compile-time interface implementation check.
var _ Converter = (*md2pdf.Converter)(nil)

// Default request limits.
const (
	DefaultMaxUploadBytes  = md2pdf.DefaultMaxUploadSize
	DefaultMaxPreviewBytes = md2pdf.DefaultMaxPreviewSize

	// bodyOverhead is added to the largest content ceiling for multipart
	// framing and JSON escaping.
	bodyOverhead = 1 << 20
)

// RateLimit configures the per-client limiter. A zero Max disables it.
type RateLimit struct {
	Max     int
	Window  time.Duration
	Storage fiber.Storage // nil means in-memory
}

// Options configures the HTTP surface.
type Options struct {
	Production      bool
	CORSOrigins     []string
	MaxUploadBytes  int
	MaxPreviewBytes int
	RateLimit       RateLimit
	Version         string
	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready func() bool
}

// Server wires the converter and store into a fiber app.
type Server struct {
	app     *fiber.App
	conv    Converter
	store   md2pdf.Store
	opts    Options
	started time.Time
}

// New builds the fiber app with middleware and routes registered.
func New(conv Converter, store md2pdf.Store, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.MaxPreviewBytes <= 0 {
		opts.MaxPreviewBytes = DefaultMaxPreviewBytes
	}

	s := &Server{
		conv:    conv,
		store:   store,
		opts:    opts,
		started: time.Now(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "md2pdf-live",
		BodyLimit:             max(opts.MaxUploadBytes, opts.MaxPreviewBytes) + bodyOverhead,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.registerMiddleware()
	s.registerRoutes()

	// Return JSON instead of fiber's plain-text 404 for unknown routes.
	s.app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Route "+c.OriginalURL()+" not found")
	})
	return s
}

// App returns the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api")

	upload := api.Group("/upload")
	upload.Post("/", s.handleUpload)
	upload.Get("/status/:fileId", s.handleUploadStatus)
	upload.Delete("/:fileId", s.handleDelete)

	convert := api.Group("/convert")
	// Static segments first so "preview" and "status" are not taken as ids.
	convert.Post("/preview", s.handlePreview)
	convert.Get("/preview/:fileId", s.handleHTMLPreview)
	convert.Get("/status/:fileId", s.handleConvertStatus)
	convert.Post("/:fileId", s.handleMaterialize)

	api.Get("/renderer/stats", s.handleStats)
}

// Run serves on addr until ctx is done, then shuts down, giving in-flight
// requests up to grace to finish.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, grace)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, grace time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("Server listening", "addr", ln.Addr().String())
		return s.app.Listener(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Warn("Shutdown signal received, closing server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		err := s.app.ShutdownWithContext(shutdownCtx)
		// Unblocks Listener when shutdown won the race against startup.
		_ = ln.Close()
		if err != nil {
			logging.Error("Server forced to shutdown", "error", err)
			return err
		}
		logging.Info("Server stopped cleanly")
		return nil
	})

	return g.Wait()
}
