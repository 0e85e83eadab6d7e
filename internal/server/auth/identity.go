package auth

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/usermanager/internal/common"
)

// Identity is the authenticated actor attached to a request.
type Identity struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"nome"`
	Active  bool   `json:"active"`
	IsAdmin bool   `json:"-"`
}

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// BearerToken extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched case-insensitively. Anything
// else yields "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthorizeOwnerOrAdmin permits acting on the resource of targetID only to
// its owner or to an administrator.
func AuthorizeOwnerOrAdmin(id *Identity, targetID string) error {
	if id == nil {
		return common.ErrTokenRequired
	}
	if id.IsAdmin || id.ID == targetID {
		return nil
	}
	return common.ErrNotOwner
}

// RequireNotSelf rejects lifecycle actions (delete, deactivate) that an
// actor aims at their own account.
func RequireNotSelf(id *Identity, targetID string) error {
	if id == nil {
		return common.ErrTokenRequired
	}
	if id.ID == targetID {
		return common.ErrSelfAction
	}
	return nil
}
