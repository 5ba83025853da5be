package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/config"
	"github.com/alnah/go-md2pdf-live/internal/logging"
	"github.com/alnah/go-md2pdf-live/internal/server"
	"github.com/alnah/go-md2pdf-live/internal/store"
	"github.com/alnah/go-md2pdf-live/internal/yamlutil"
)

// readyTimeout bounds the backend ping behind /readyz.
const readyTimeout = 2 * time.Second

// backend is the upload store selected by storage.backend, with its
// readiness probe and teardown.
type backend struct {
	store md2pdf.Store
	ready func() bool
	close func() error
}

// runServe runs the HTTP service until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env.Getenv)
	if err != nil {
		return err
	}
	if flags.host != "" {
		cfg.Server.Host = flags.host
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if flags.printConfig {
		out, err := yamlutil.Encode(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		_, err = env.Stdout.Write(out)
		return err
	}

	initServerLogger(flags.common, cfg)
	defer func() { _ = logging.Close() }()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			logging.Warn("Closing upload store failed", "error", err)
		}
	}()

	conv, err := md2pdf.NewConverter(converterOptions(cfg, b.store)...)
	if err != nil {
		return fmt.Errorf("creating converter: %w", err)
	}
	defer func() { _ = conv.Close() }()

	opts := server.Options{
		Production:      cfg.IsProduction(),
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxUploadBytes:  cfg.Limits.MaxUploadBytes,
		MaxPreviewBytes: cfg.Limits.MaxPreviewBytes,
		Version:         Version,
		Ready:           b.ready,
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimit = server.RateLimit{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window(),
			Storage: server.NewLimiterStorage(cfg.RateLimit.Storage,
				cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB),
		}
	}
	srv := server.New(conv, b.store, opts)

	logging.Info("Starting md2pdf-live",
		"version", Version,
		"env", cfg.Server.Env,
		"storage", cfg.Storage.Backend,
		"engine", cfg.Renderer.Engine,
		"max_concurrent", md2pdf.ResolvePoolSize(cfg.Renderer.MaxConcurrent),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr(), time.Duration(cfg.Server.ShutdownGraceSeconds)*time.Second)
	})
	if fs, ok := b.store.(*store.FS); ok && cfg.Storage.PruneAfterMinutes > 0 {
		maxAge := time.Duration(cfg.Storage.PruneAfterMinutes) * time.Minute
		g.Go(func() error {
			pruneLoop(gctx, fs, maxAge)
			return nil
		})
	}
	return g.Wait()
}

// initServerLogger applies the logging section; --verbose forces debug.
func initServerLogger(f commonFlags, cfg *config.Config) {
	level := cfg.Logging.Level
	switch {
	case f.verbose:
		level = "debug"
	case f.quiet:
		level = "error"
	}
	logging.InitLogger(logging.Config{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Level:      level,
		Pretty:     cfg.Logging.Pretty || !cfg.IsProduction(),
	})
}

// openBackend builds the upload store named by storage.backend.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	always := func() bool { return true }
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return &backend{store: store.NewMemory(), ready: always, close: noop}, nil

	case config.StorageRedis:
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		rs := store.NewRedis(rc, time.Duration(cfg.Storage.Redis.TTLMinutes)*time.Minute)
		if err := rs.Ping(ctx); err != nil {
			logging.Warn("Redis upload store not reachable yet", "addr", cfg.Storage.Redis.Addr, "error", err)
		}
		return &backend{
			store: rs,
			ready: func() bool {
				pctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
				defer cancel()
				return rs.Ping(pctx) == nil
			},
			close: rc.Close,
		}, nil

	case config.StorageGCS:
		gc, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: creating GCS client: %v", md2pdf.ErrStorageFailure, err)
		}
		return &backend{
			store: store.NewGCS(gc, cfg.Storage.GCS.Bucket, cfg.Storage.GCS.Prefix),
			ready: always,
			close: gc.Close,
		}, nil
	}

	fs, err := store.NewFS(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	logging.Info("Storing uploads on disk", "dir", fs.Dir())
	closeFS := noop
	if cfg.Storage.Dir == "" {
		// The directory was created for this process.
		closeFS = func() error { return os.RemoveAll(fs.Dir()) }
	}
	return &backend{store: fs, ready: always, close: closeFS}, nil
}

// pruneLoop deletes uploads older than maxAge until ctx is done.
func pruneLoop(ctx context.Context, fs *store.FS, maxAge time.Duration) {
	ticker := time.NewTicker(max(maxAge/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := fs.Prune(ctx, maxAge)
			if err != nil {
				logging.Warn("Pruning uploads failed", "error", err)
				continue
			}
			if n > 0 {
				logging.Info("Pruned stale uploads", "count", n)
			}
		}
	}
}
