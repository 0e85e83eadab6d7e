// Package users stores identity records. Every read and every conflict
// check considers live rows only: a soft-deleted user is invisible.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

type Repository interface {
	// Insert stores u and fills its timestamps. A live duplicate email or
	// CPF yields *common.ConflictError.
	Insert(ctx context.Context, u *models.User) (*models.User, error)

	FindActiveByID(ctx context.Context, id string) (*models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)

	// ExistsActiveByEmail and ExistsActiveByCPF ignore the row with id
	// excludeID; an empty excludeID ignores nothing.
	ExistsActiveByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ExistsActiveByCPF(ctx context.Context, cpf, excludeID string) (bool, error)

	// Update applies p to the live row id and returns the new state.
	Update(ctx context.Context, id string, p models.UserPatch) (*models.User, error)
	SoftDelete(ctx context.Context, id, deletedBy string) error
	TouchUpdatedAt(ctx context.Context, id string) error

	// List returns one page of live users, newest first, and the total
	// number of matches. f must be normalized.
	List(ctx context.Context, f models.ListFilter) ([]*models.User, int, error)
	Stats(ctx context.Context, now time.Time) (*models.Stats, error)
}
