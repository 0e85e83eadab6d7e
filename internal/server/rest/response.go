package rest

import (
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []models.FieldError `json:"errors,omitempty"`
	Field   string              `json:"field,omitempty"`
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Message: message, Data: data})
}

type userData struct {
	User models.PublicUser `json:"user"`
}

type authData struct {
	User  *models.PublicUser `json:"user,omitempty"`
	Token string             `json:"token"`
}

type listData struct {
	Users      []models.PublicUser `json:"users"`
	Pagination models.Pagination   `json:"pagination"`
}

type statsData struct {
	Stats *models.Stats `json:"stats"`
}
