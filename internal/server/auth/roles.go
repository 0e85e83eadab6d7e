package auth

import "context"

// RoleResolver decides whether a user holds the administrator role. The
// account table has no role column, so the answer comes from outside.
type RoleResolver interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// StaticRoles grants the administrator role to a fixed set of user ids.
type StaticRoles struct {
	admins map[string]struct{}
}

// NewStaticRoles returns a resolver for the given admin ids. Empty ids are
// ignored.
func NewStaticRoles(adminIDs []string) *StaticRoles {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != "" {
			admins[id] = struct{}{}
		}
	}
	return &StaticRoles{admins: admins}
}

func (r *StaticRoles) IsAdmin(_ context.Context, userID string) (bool, error) {
	_, ok := r.admins[userID]
	return ok, nil
}
