package rest

import (
	"time"

	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/gofiber/fiber/v2"
)

// requestLogger writes one line per request. Errors are rendered here so
// that the logged status is the one the client sees.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Info(c.UserContext(), "request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start).String(),
	)
	return nil
}

// requireAuth rejects the request unless it carries a valid token for a
// live, active account.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	id, err := s.gate.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
	return c.Next()
}

// optionalAuth attaches an identity when one can be resolved and lets the
// request through either way.
func (s *Server) optionalAuth(c *fiber.Ctx) error {
	if id := s.gate.AuthenticateOptional(c.UserContext(), c.Get(fiber.HeaderAuthorization)); id != nil {
		c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
	}
	return c.Next()
}

func (s *Server) ownerOrAdmin(c *fiber.Ctx) error {
	if err := auth.AuthorizeOwnerOrAdmin(identity(c), c.Params("id")); err != nil {
		return err
	}
	return c.Next()
}

func identity(c *fiber.Ctx) *auth.Identity {
	id, _ := auth.IdentityFromContext(c.UserContext())
	return id
}
