// Package rest exposes the account service over HTTP with fiber. It is the
// only layer that turns errors into status codes.
package rest

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/dmitrijs2005/usermanager/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	shutdownTimeout = 10 * time.Second
	bodyLimit       = 10 << 20
)

// Options configures the HTTP server.
type Options struct {
	Address         string
	Production      bool
	FrontendURL     string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

type Server struct {
	address    string
	production bool
	users      *services.UserService
	gate       *auth.Gate
	logger     logging.Logger
	started    time.Time
	app        *fiber.App
}

func NewServer(opts Options, l logging.Logger, us *services.UserService, gate *auth.Gate) *Server {
	s := &Server{
		address:    opts.Address,
		production: opts.Production,
		users:      us,
		gate:       gate,
		logger:     l.With("module", "http_server"),
		started:    time.Now(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "usermanager",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		Immutable:             true,
	})

	s.app.Use(s.requestLogger)
	s.app.Use(recover.New())
	s.app.Use(helmet.New())
	if opts.FrontendURL != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:     opts.FrontendURL,
			AllowHeaders:     "Content-Type, Accept, Authorization",
			AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
			AllowCredentials: opts.FrontendURL != "*",
		}))
	}
	if opts.RateLimitMax > 0 {
		s.app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimitMax,
			Expiration: opts.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(envelope{Message: "too many requests, try again later"})
			},
		}))
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.optionalAuth, s.health)

	api := s.app.Group("/api")

	a := api.Group("/auth")
	a.Post("/register", s.register)
	a.Post("/login", s.login)
	a.Post("/change-password", s.requireAuth, s.changePassword)
	a.Get("/me", s.requireAuth, s.me)
	a.Post("/logout", s.requireAuth, s.logout)
	a.Post("/refresh", s.requireAuth, s.refresh)

	u := api.Group("/users", s.requireAuth)
	u.Get("/", s.listUsers)
	u.Get("/stats/overview", s.stats)
	u.Get("/:id", s.ownerOrAdmin, s.getUser)
	u.Put("/:id", s.ownerOrAdmin, s.updateUser)
	u.Delete("/:id", s.ownerOrAdmin, s.deleteUser)
	u.Put("/:id/activate", s.activateUser)
	u.Put("/:id/deactivate", s.deactivateUser)
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	return s.app.Listener(listen)
}
