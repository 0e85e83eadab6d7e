package rest

import (
	"time"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "OK",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"uptime":        time.Since(s.started).Seconds(),
		"authenticated": identity(c) != nil,
	})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := s.users.Register(c.UserContext(), req.fields())
	if err != nil {
		return err
	}

	u := res.User.Redacted()
	return respond(c, fiber.StatusCreated, "user registered", authData{User: &u, Token: res.Token})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := s.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	u := res.User.Redacted()
	return respond(c, fiber.StatusOK, "login successful", authData{User: &u, Token: res.Token})
}

func (s *Server) changePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := s.users.ChangePassword(c.UserContext(), identity(c).ID, req.Current, req.New); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "password changed", nil)
}

func (s *Server) me(c *fiber.Ctx) error {
	u, err := s.users.Me(c.UserContext(), identity(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", userData{User: u.Redacted()})
}

// logout only acknowledges; tokens stay valid until they expire.
func (s *Server) logout(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, "logout successful", nil)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	res, err := s.users.RefreshToken(c.UserContext(), identity(c).ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "token refreshed", authData{Token: res.Token})
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	f, err := listFilter(c)
	if err != nil {
		return err
	}

	page, err := s.users.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", listData{Users: models.RedactAll(page.Users), Pagination: page.Pagination})
}

func (s *Server) stats(c *fiber.Ctx) error {
	st, err := s.users.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", statsData{Stats: st})
}

func (s *Server) getUser(c *fiber.Ctx) error {
	u, err := s.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", userData{User: u.Redacted()})
}

func (s *Server) updateUser(c *fiber.Ctx) error {
	var req updateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	u, err := s.users.Update(c.UserContext(), identity(c).ID, c.Params("id"), req.patch())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user updated", userData{User: u.Redacted()})
}

func (s *Server) deleteUser(c *fiber.Ctx) error {
	if err := s.users.SoftDelete(c.UserContext(), identity(c), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user deleted", nil)
}

func (s *Server) activateUser(c *fiber.Ctx) error {
	if err := s.users.Activate(c.UserContext(), identity(c), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user activated", nil)
}

func (s *Server) deactivateUser(c *fiber.Ctx) error {
	if err := s.users.Deactivate(c.UserContext(), identity(c), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "user deactivated", nil)
}
