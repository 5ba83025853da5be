package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"github.com/alnah/go-md2pdf-live/internal/logging"
)

const requestIDKey = "requestid"

// exposedHeaders are readable by browser clients on cross-origin responses.
var exposedHeaders = []string{
	fiber.HeaderContentDisposition,
	fiber.HeaderXRequestID,
	HeaderPDFPages,
}

// NewLimiterStorage returns Redis-backed limiter storage when backend is
// "redis" and the server answers, in-memory storage otherwise.
func NewLimiterStorage(backend, addr, password string, db int) fiber.Storage {
	if backend == "redis" {
		var st fiber.Storage
		func() {
			// The redis storage constructor panics when the ping fails.
			defer func() {
				if r := recover(); r != nil {
					logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
				}
			}()
			st = redisStorage.New(redisStorage.Config{
				Addrs:    []string{addr},
				Password: password,
				Database: db,
			})
			logging.Info("Using Redis for rate limiting", "addr", addr, "db", db)
		}()
		if st != nil {
			return st
		}
	}
	return memoryStorage.New()
}

func (s *Server) registerMiddleware() {
	s.app.Use(requestid.New(requestid.Config{
		ContextKey: requestIDKey,
		Generator: func() string {
			return xid.New().String()
		},
	}))

	s.app.Use(requestLogger)

	s.app.Use(recoverer.New())

	s.app.Use(helmet.New(helmet.Config{
		// PDFs and previews are embedded by a frontend on another origin.
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	}))

	origins := strings.Join(s.opts.CORSOrigins, ",")
	if origins == "" {
		origins = "*"
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders:    strings.Join(exposedHeaders, ","),
		AllowCredentials: origins != "*",
	}))

	s.app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	s.app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(*fiber.Ctx) bool {
			return s.opts.Ready == nil || s.opts.Ready()
		},
	}))

	if rl := s.opts.RateLimit; rl.Max > 0 {
		storage := rl.Storage
		if storage == nil {
			storage = memoryStorage.New()
		}
		s.app.Use(limiter.New(limiter.Config{
			Next: func(c *fiber.Ctx) bool {
				return !strings.HasPrefix(c.Path(), "/api/")
			},
			Max:               rl.Max,
			Expiration:        rl.Window,
			LimiterMiddleware: limiter.SlidingWindow{},
			Storage:           storage,
			LimitReached:      rateLimited,
		}))
	}
}

// requestLogger logs every request once the error handler has produced the
// final status.
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	logging.Info("Incoming request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID(c),
	)
	return nil
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
