package rest

import (
	"errors"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

var errBadBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrSelfAction):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrorUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every error returned by a handler or middleware.
// Internal details are replaced by a generic message in production.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	body := envelope{Message: err.Error()}

	var fieldErrs models.FieldErrors
	var conflict *common.ConflictError
	var fe *fiber.Error

	switch {
	case errors.As(err, &fieldErrs):
		body.Message = "invalid data"
		body.Errors = fieldErrs
	case errors.Is(err, common.ErrNothingToUpdate):
		body.Message = common.ErrNothingToUpdate.Error()
	case errors.As(err, &conflict):
		body.Field = conflict.Field
	case errors.Is(err, common.ErrorNotFound):
		body.Message = "user not found"
	case errors.As(err, &fe) && fe.Code == fiber.StatusNotFound:
		body.Message = "route not found"
	case status >= fiber.StatusInternalServerError:
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err.Error())
		if s.production {
			body.Message = "internal server error"
		}
	}

	return c.Status(status).JSON(body)
}
