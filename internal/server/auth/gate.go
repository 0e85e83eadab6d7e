package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

// IdentityLookup loads a live (not soft-deleted) user by id. It returns
// common.ErrorNotFound when there is none.
type IdentityLookup interface {
	FindActiveByID(ctx context.Context, id string) (*models.User, error)
}

// Gate authenticates requests. Each call verifies the token, then re-reads
// the account so that deactivation and deletion take effect immediately
// even though tokens themselves cannot be revoked.
type Gate struct {
	tokens *TokenService
	users  IdentityLookup
	roles  RoleResolver
	logger logging.Logger
}

// NewGate wires a Gate. roles may be nil, in which case nobody is admin.
func NewGate(tokens *TokenService, users IdentityLookup, roles RoleResolver, logger logging.Logger) *Gate {
	if roles == nil {
		roles = NewStaticRoles(nil)
	}
	return &Gate{
		tokens: tokens,
		users:  users,
		roles:  roles,
		logger: logger.With("module", "auth_gate"),
	}
}

// Authenticate resolves the identity behind an Authorization header value.
//
// Failures:
//   - no bearer token: common.ErrTokenRequired
//   - expired token: common.ErrTokenExpired
//   - bad signature or malformed token: common.ErrInvalidToken
//   - account deleted or missing: common.ErrUserNotFound
//   - account deactivated: common.ErrUserInactive
//
// Store and role lookup failures are wrapped in common.ErrorInternal.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	raw := BearerToken(authorization)
	if raw == "" {
		return nil, common.ErrTokenRequired
	}

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		g.logger.Debug(ctx, "token rejected", "reason", err.Error())
		return nil, err
	}

	user, err := g.users.FindActiveByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		g.logger.Error(ctx, "identity lookup failed", "user_id", claims.UserID, "error", err.Error())
		return nil, fmt.Errorf("%w: identity lookup: %v", common.ErrorInternal, err)
	}

	if !user.Active {
		return nil, common.ErrUserInactive
	}

	isAdmin, err := g.roles.IsAdmin(ctx, user.ID)
	if err != nil {
		g.logger.Error(ctx, "role lookup failed", "user_id", user.ID, "error", err.Error())
		return nil, fmt.Errorf("%w: role lookup: %v", common.ErrorInternal, err)
	}

	return &Identity{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Active:  user.Active,
		IsAdmin: isAdmin,
	}, nil
}

// AuthenticateOptional is Authenticate for endpoints open to anonymous
// callers: every failure yields nil instead of an error.
func (g *Gate) AuthenticateOptional(ctx context.Context, authorization string) *Identity {
	if BearerToken(authorization) == "" {
		return nil
	}
	id, err := g.Authenticate(ctx, authorization)
	if err != nil {
		return nil
	}
	return id
}
