// Package httpapi exposes the waste entry service over HTTP using fiber.
//
// Routes:
//
//	POST   /api/waste-entries              create
//	GET    /api/waste-entries              list all
//	GET    /api/waste-entries/verified     list verified
//	GET    /api/waste-entries/stats        totals
//	GET    /api/waste-entries/:id          get
//	PUT    /api/waste-entries/:id          update
//	DELETE /api/waste-entries/:id          delete
//	POST   /api/waste-entries/:id/verify   verify
//	POST   /api/waste-entries/:id/recycle  recycle {"recycledQuantity": n}
//	GET    /healthz
//	GET    /metrics
//
// Errors are returned as {"error": {"code": KIND, "message": ...}}.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/roach88/wastelog/internal/identity"
	"github.com/roach88/wastelog/internal/metrics"
	"github.com/roach88/wastelog/internal/service"
	"github.com/roach88/wastelog/internal/waste"
)

// Options configures a Server.
type Options struct {
	// Issuer verifies bearer tokens. When nil, every request runs as
	// DefaultIdentity and no Authorization header is required.
	Issuer *identity.Issuer

	// DefaultIdentity is the caller identity when auth is disabled.
	DefaultIdentity waste.Identity

	// Metrics is served on /metrics when set.
	Metrics *metrics.Recorder

	// Logger receives one line per request. Default: slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP front end. The service it wraps must resolve the
// caller with identity.ContextProvider so the authenticated identity
// reaches Create.
type Server struct {
	app    *fiber.App
	svc    *service.Service
	opts   Options
	logger *slog.Logger
}

// New builds the fiber app and registers every route.
func New(svc *service.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultIdentity == "" {
		opts.DefaultIdentity = identity.Anonymous
	}

	s := &Server{
		svc:    svc,
		opts:   opts,
		logger: opts.Logger,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "wastelog",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if opts.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	api := s.app.Group("/api", s.authenticate)
	entries := api.Group("/waste-entries")
	entries.Post("/", s.createEntry)
	entries.Get("/", s.listEntries)
	entries.Get("/verified", s.listVerified)
	entries.Get("/stats", s.stats)
	entries.Get("/:id", s.getEntry)
	entries.Put("/:id", s.updateEntry)
	entries.Delete("/:id", s.deleteEntry)
	entries.Post("/:id/verify", s.verifyEntry)
	entries.Post("/:id/recycle", s.recycleEntry)

	return s
}

// App returns the underlying fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Render now so the logged status is the one the client sees.
		if herr := s.handleError(c, err); herr != nil {
			c.Status(fiber.StatusInternalServerError)
		}
		err = nil
	}
	s.logger.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}
