// Package models defines the identity record and its validation rules.
package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/usermanager/internal/server/cpf"
	"github.com/google/uuid"
)

// Wire names of user fields, shared by validation messages and the REST layer.
const (
	FieldName      = "nome"
	FieldPronoun   = "pronome"
	FieldPassword  = "senha"
	FieldEmail     = "email"
	FieldPhone     = "tel"
	FieldBirthDate = "data_nascimento"
	FieldCPF       = "cpf"
	FieldActive    = "active"

	FieldCurrentPassword = "senha_atual"
	FieldNewPassword     = "nova_senha"
)

const (
	NameMinLen     = 2
	NameMaxLen     = 255
	PasswordMinLen = 6
	PasswordMaxLen = 255
	EmailMaxLen    = 255
	PronounMaxLen  = 50
	PhoneMaxLen    = 20
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is one account row of public.usuario.
//
// PasswordHash is a bcrypt digest and is excluded from JSON; use Redacted
// for anything that leaves the process. DeletedAt marks a soft-deleted
// record, DeletedBy names the actor who deleted it.
type User struct {
	ID           string
	Name         string
	Pronoun      *string
	PasswordHash string `json:"-"`
	Email        string
	Phone        *string
	BirthDate    *time.Time
	CPF          *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
	DeletedBy    *string
}

// IsDeleted reports whether the record was soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// PublicUser is the transport projection of User. It has no password field
// of any kind.
type PublicUser struct {
	ID        string     `json:"id"`
	Name      string     `json:"nome"`
	Pronoun   *string    `json:"pronome,omitempty"`
	Email     string     `json:"email"`
	Phone     *string    `json:"tel,omitempty"`
	BirthDate *time.Time `json:"data_nascimento,omitempty"`
	CPF       *string    `json:"cpf,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `json:"deleted_by,omitempty"`
}

// Redacted returns the transport-safe view of u.
func (u *User) Redacted() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Pronoun:   u.Pronoun,
		Email:     u.Email,
		Phone:     u.Phone,
		BirthDate: u.BirthDate,
		CPF:       u.CPF,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		DeletedAt: u.DeletedAt,
		DeletedBy: u.DeletedBy,
	}
}

// RedactAll maps Redacted over users.
func RedactAll(users []*User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Redacted())
	}
	return out
}

// UserFields is the input of a registration. Password is plaintext and is
// hashed by the caller before the record is stored.
type UserFields struct {
	ID        string
	Name      string
	Pronoun   *string
	Password  string
	Email     string
	Phone     *string
	BirthDate *time.Time
	CPF       *string
	Active    *bool
}

// Validate returns every problem with f. now bounds the birth date.
func (f UserFields) Validate(now time.Time) FieldErrors {
	var errs FieldErrors

	validateName(&errs, f.Name)
	validateEmail(&errs, f.Email)
	validatePassword(&errs, FieldPassword, f.Password)
	validateOptional(&errs, f.Pronoun, f.Phone, f.BirthDate, f.CPF, now)

	return errs
}

// NewUser builds a record from validated fields. A missing ID is generated
// with newID (uuid.NewString when nil). Active defaults to true. The password
// digest is left empty for the caller to fill.
func NewUser(f UserFields, newID func() string) *User {
	if newID == nil {
		newID = uuid.NewString
	}

	u := &User{
		ID:        f.ID,
		Name:      strings.TrimSpace(f.Name),
		Pronoun:   f.Pronoun,
		Email:     strings.TrimSpace(f.Email),
		Phone:     f.Phone,
		BirthDate: f.BirthDate,
		CPF:       normalizeCPF(f.CPF),
		Active:    true,
	}
	if u.ID == "" {
		u.ID = newID()
	}
	if f.Active != nil {
		u.Active = *f.Active
	}
	return u
}

// UserPatch is a partial update: nil fields are left unchanged.
// PasswordHash is set only by password changes, never from client input.
type UserPatch struct {
	Name         *string
	Pronoun      *string
	Email        *string
	Phone        *string
	BirthDate    *time.Time
	CPF          *string
	Active       *bool
	PasswordHash *string
}

// IsEmpty reports whether p changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Pronoun == nil && p.Email == nil && p.Phone == nil &&
		p.BirthDate == nil && p.CPF == nil && p.Active == nil && p.PasswordHash == nil
}

// Validate returns every problem with the supplied fields of p.
func (p UserPatch) Validate(now time.Time) FieldErrors {
	var errs FieldErrors

	if p.Name != nil {
		validateName(&errs, *p.Name)
	}
	if p.Email != nil {
		validateEmail(&errs, *p.Email)
	}
	validateOptional(&errs, p.Pronoun, p.Phone, p.BirthDate, p.CPF, now)

	return errs
}

// Normalized returns p with names and emails trimmed and the CPF reduced
// to digits.
func (p UserPatch) Normalized() UserPatch {
	if p.Name != nil {
		p.Name = ptr(strings.TrimSpace(*p.Name))
	}
	if p.Email != nil {
		p.Email = ptr(strings.TrimSpace(*p.Email))
	}
	p.CPF = normalizeCPF(p.CPF)
	return p
}

// ValidatePassword checks a plaintext password about to be set.
func ValidatePassword(field, password string) FieldErrors {
	var errs FieldErrors
	validatePassword(&errs, field, password)
	return errs
}

// ValidateLogin checks the shape of login input. It never looks at stored
// data, so its result reveals nothing about existing accounts.
func ValidateLogin(email, password string) FieldErrors {
	var errs FieldErrors
	validateEmail(&errs, email)
	if password == "" {
		errs.add(FieldPassword, "password is required")
	}
	return errs
}

// ValidatePasswordChange checks a change-password request: the current
// password must be present and the new one must satisfy the length rules.
func ValidatePasswordChange(current, next string) FieldErrors {
	var errs FieldErrors
	if current == "" {
		errs.add(FieldCurrentPassword, "current password is required")
	}
	validatePassword(&errs, FieldNewPassword, next)
	return errs
}

func validateName(errs *FieldErrors, name string) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n < NameMinLen:
		errs.add(FieldName, "name must have at least 2 characters")
	case n > NameMaxLen:
		errs.add(FieldName, "name must have at most 255 characters")
	}
}

func validateEmail(errs *FieldErrors, email string) {
	email = strings.TrimSpace(email)
	switch {
	case !emailPattern.MatchString(email):
		errs.add(FieldEmail, "email must have a valid format")
	case len(email) > EmailMaxLen:
		errs.add(FieldEmail, "email must have at most 255 characters")
	}
}

func validatePassword(errs *FieldErrors, field, password string) {
	n := utf8.RuneCountInString(password)
	switch {
	case n < PasswordMinLen:
		errs.add(field, "password must have at least 6 characters")
	case n > PasswordMaxLen:
		errs.add(field, "password must have at most 255 characters")
	}
}

func validateOptional(errs *FieldErrors, pronoun, phone *string, birth *time.Time, taxID *string, now time.Time) {
	if pronoun != nil && utf8.RuneCountInString(*pronoun) > PronounMaxLen {
		errs.add(FieldPronoun, "pronoun must have at most 50 characters")
	}
	if phone != nil && utf8.RuneCountInString(*phone) > PhoneMaxLen {
		errs.add(FieldPhone, "phone must have at most 20 characters")
	}
	if birth != nil && birth.After(now) {
		errs.add(FieldBirthDate, "birth date cannot be in the future")
	}
	if taxID != nil {
		digits := cpf.Normalize(*taxID)
		switch {
		case len(digits) != cpf.Length:
			errs.add(FieldCPF, "CPF must have exactly 11 digits")
		case !cpf.Valid(digits):
			errs.add(FieldCPF, "invalid CPF")
		}
	}
}

func normalizeCPF(s *string) *string {
	if s == nil {
		return nil
	}
	return ptr(cpf.Normalize(*s))
}

func ptr[T any](v T) *T {
	return &v
}
