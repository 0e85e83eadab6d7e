package models

import (
	"strings"

	"github.com/dmitrijs2005/usermanager/internal/common"
)

// FieldError is one user-correctable problem with one input field.
// Field uses the wire name of the field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors aggregates every problem found in one input. It matches
// common.ErrValidation with errors.Is.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Message
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func (fe FieldErrors) Is(target error) bool {
	return target == common.ErrValidation
}

// Err returns nil when fe is empty so callers can write
// `if err := in.Validate(now).Err(); err != nil`.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func (fe *FieldErrors) add(field, msg string) {
	*fe = append(*fe, FieldError{Field: field, Message: msg})
}
