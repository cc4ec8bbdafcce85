package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"loanbook/internal/config"
	"loanbook/internal/pkg/metrics"
	"loanbook/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// Options carries the shared collaborators of the middleware stack
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Storage backs the rate limiters; nil keeps counters in memory
	Storage fiber.Storage
}

// Setup configures the common middleware stack of every service
func Setup(app *fiber.App, cfg *config.Config, opts Options) {
	// Recover middleware - catches panics
	app.Use(recover.New())

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Security Headers middleware (Helmet)
	app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "SAMEORIGIN",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		PermissionPolicy:          "geolocation=(), microphone=(), camera=()",
	}))

	// General API limit per IP for anonymous requests. Bearer requests are
	// counted per user by CallerRateLimiter once the token is verified.
	app.Use(limiter.New(limiter.Config{
		Next:       hasBearer,
		Max:        cfg.RateLimit.Max,
		Expiration: cfg.RateLimit.Window,
		Storage:    opts.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return cfg.Service + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "Too many requests")
		},
	}))

	app.Use(RequestLogger(opts.Logger, opts.Metrics))

	// Bearer tokens only, so credentials are never allowed cross-origin
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.GetAllowedOrigins(),
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
}

// RequestLogger logs one structured line per request and records request
// metrics when m is not nil.
func RequestLogger(logger *slog.Logger, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// let the error handler write the response before we read the status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		status := c.Response().StatusCode()
		latency := time.Since(start)
		route := c.Route().Path

		if m != nil {
			labels := []string{c.Method(), route, strconv.Itoa(status)}
			m.RequestCount.WithLabelValues(labels...).Inc()
			m.RequestDuration.WithLabelValues(labels...).Observe(latency.Seconds())
		}

		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.UserContext(), level, "request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("ip", c.IP()),
			slog.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		)
		return err
	}
}

// AuthRateLimiter creates a stricter rate limiter for credential endpoints:
// 5 requests per minute per IP.
func AuthRateLimiter(storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "-auth"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "Too many login attempts, wait a minute")
		},
	})
}

// CallerRateLimiter limits authenticated requests per user and service. It
// must run after RequireAuth.
func CallerRateLimiter(cfg *config.Config, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.RateLimit.CallerMax,
		Expiration: cfg.RateLimit.Window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			auth, _ := Auth(c)
			return cfg.Service + ":user:" + strconv.FormatUint(uint64(auth.UserID), 10)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "Too many requests")
		},
	})
}

func hasBearer(c *fiber.Ctx) bool {
	return bearerToken(c) != ""
}

// CustomErrorHandler renders errors that escaped a handler
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Code, e.Message)
	}
	return response.FromError(c, err)
}
