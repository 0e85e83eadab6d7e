package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenValidity is the lifetime of an issued token.
const DefaultTokenValidity = 7 * 24 * time.Hour

// Claims carries the identity of the token holder next to the standard
// registered claims (expiry, issued-at).
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"nome"`
}

// TokenService issues and verifies HS256-signed identity tokens. It keeps
// no state besides the key: a token stays valid until it expires.
type TokenService struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenService creates a TokenService. A non-positive validity means
// DefaultTokenValidity; a nil clock means time.Now.
func NewTokenService(secret []byte, validity time.Duration, now func() time.Time) *TokenService {
	if validity <= 0 {
		validity = DefaultTokenValidity
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: secret, validity: validity, now: now}
}

// Issue signs a token for u.
func (s *TokenService) Issue(u *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
	})

	return token.SignedString(s.secret)
}

// Verify checks signature and expiry of tokenString and returns its claims.
//
// It returns common.ErrTokenExpired for a well-signed token past its expiry
// and common.ErrInvalidToken for anything else that fails: wrong key,
// unexpected algorithm, malformed input, missing expiry or subject.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
