package rest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

// Date accepts either a calendar date or a full RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

type registerRequest struct {
	Name      string  `json:"nome"`
	Pronoun   *string `json:"pronome"`
	Password  string  `json:"senha"`
	Email     string  `json:"email"`
	Phone     *string `json:"tel"`
	BirthDate *Date   `json:"data_nascimento"`
	CPF       *string `json:"cpf"`
}

func (r registerRequest) fields() models.UserFields {
	return models.UserFields{
		Name:      r.Name,
		Pronoun:   r.Pronoun,
		Password:  r.Password,
		Email:     r.Email,
		Phone:     r.Phone,
		BirthDate: r.BirthDate.ptr(),
		CPF:       r.CPF,
	}
}

// updateRequest has no password field; unknown keys such as "senha" are
// dropped by the decoder.
type updateRequest struct {
	Name      *string `json:"nome"`
	Pronoun   *string `json:"pronome"`
	Email     *string `json:"email"`
	Phone     *string `json:"tel"`
	BirthDate *Date   `json:"data_nascimento"`
	CPF       *string `json:"cpf"`
	Active    *bool   `json:"active"`
}

func (r updateRequest) patch() models.UserPatch {
	return models.UserPatch{
		Name:      r.Name,
		Pronoun:   r.Pronoun,
		Email:     r.Email,
		Phone:     r.Phone,
		BirthDate: r.BirthDate.ptr(),
		CPF:       r.CPF,
		Active:    r.Active,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type changePasswordRequest struct {
	Current string `json:"senha_atual"`
	New     string `json:"nova_senha"`
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return errBadBody
	}
	return nil
}

// listFilter reads page, limit, search and active from the query string.
func listFilter(c *fiber.Ctx) (models.ListFilter, error) {
	var f models.ListFilter
	var errs models.FieldErrors

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, models.FieldError{Field: "page", Message: "page must be an integer greater than or equal to 1"})
		}
		f.Page = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > models.MaxLimit {
			errs = append(errs, models.FieldError{Field: "limit", Message: "limit must be an integer between 1 and 100"})
		}
		f.Limit = n
	}
	if v := c.Query("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "active", Message: "active must be true or false"})
		}
		f.Active = &b
	}
	f.Search = c.Query("search")

	return f, errs.Err()
}
