// Package services holds the account use cases: registration, login,
// password changes and the profile lifecycle. It speaks the error taxonomy
// of package common and leaves status mapping to the transport.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/dmitrijs2005/usermanager/internal/server/events"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/repomanager"
)

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(u *models.User) (string, error)
}

// AuthResult is what registration, login and token refresh hand back.
type AuthResult struct {
	User  *models.User
	Token string
}

type UserService struct {
	db          dbx.DBTX
	tx          dbx.TxRunner
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	hasher      auth.PasswordHasher
	events      events.Publisher
	logger      logging.Logger
	now         func() time.Time

	dummyDigest string
}

// NewUserService wires the service. db serves plain reads; writes that
// must be atomic go through tx. A nil publisher drops events.
func NewUserService(
	db dbx.DBTX,
	tx dbx.TxRunner,
	m repomanager.RepositoryManager,
	tokens TokenIssuer,
	hasher auth.PasswordHasher,
	publisher events.Publisher,
	logger logging.Logger,
) *UserService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	// compared against when the email is unknown, so both login failures
	// cost one bcrypt comparison
	dummy, _ := hasher.Hash("not-a-real-password")

	return &UserService{
		db:          db,
		tx:          tx,
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
		events:      publisher,
		logger:      logger.With("module", "user_service"),
		now:         time.Now,
		dummyDigest: dummy,
	}
}

// Register validates f, checks that email and CPF are free among live
// accounts, stores the new account with a hashed password and returns it
// with a fresh token.
func (s *UserService) Register(ctx context.Context, f models.UserFields) (*AuthResult, error) {
	if err := f.Validate(s.now()).Err(); err != nil {
		return nil, err
	}

	user := models.NewUser(f, nil)

	var token string
	err := s.tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if err := s.checkUnique(ctx, tx, user.Email, user.CPF, ""); err != nil {
			return err
		}

		digest, err := s.hasher.Hash(f.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = digest

		if user, err = repo.Insert(ctx, user); err != nil {
			return err
		}

		// signed before commit so a signing failure rolls the insert back
		if token, err = s.tokens.Issue(user); err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.internalErr(ctx, "register", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	s.publish(ctx, events.UserRegistered, user.ID, "")

	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates by email and password. An unknown email and a wrong
// password fail identically with common.ErrInvalidCredentials. A correct
// password on a deactivated account yields common.ErrUserInactive.
// Success touches the account's update timestamp.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if err := models.ValidateLogin(email, password).Err(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyDigest)
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internalErr(ctx, "login lookup", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	if !user.Active {
		return nil, common.ErrUserInactive
	}

	if err := repo.TouchUpdatedAt(ctx, user.ID); err != nil {
		return nil, s.internalErr(ctx, "touch updated_at", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, s.internalErr(ctx, "issue token", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)

	return &AuthResult{User: user, Token: token}, nil
}

// ChangePassword replaces the password of account id after checking the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	if err := models.ValidatePasswordChange(current, next).Err(); err != nil {
		return err
	}

	err := s.tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindActiveByID(ctx, id)
		if err != nil {
			return err
		}

		if !s.hasher.Verify(current, user.PasswordHash) {
			return common.ErrInvalidCredentials
		}

		digest, err := s.hasher.Hash(next)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		_, err = repo.Update(ctx, id, models.UserPatch{PasswordHash: &digest})
		return err
	})
	if err != nil {
		return s.internalErr(ctx, "change password", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", id)
	s.publish(ctx, events.UserPasswordChanged, id, id)

	return nil
}

// Get returns the live account id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindActiveByID(ctx, id)
	if err != nil {
		return nil, s.internalErr(ctx, "get user", err)
	}
	return user, nil
}

// Me returns the account of the authenticated identity.
func (s *UserService) Me(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	if identity == nil {
		return nil, common.ErrTokenRequired
	}
	return s.Get(ctx, identity.ID)
}

// RefreshToken issues a new token for a still live and active account.
func (s *UserService) RefreshToken(ctx context.Context, id string) (*AuthResult, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, common.ErrUserInactive
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, s.internalErr(ctx, "issue token", err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Update applies a partial update to account id on behalf of actorID.
// Email and CPF stay unique among live accounts other than id itself.
func (s *UserService) Update(ctx context.Context, actorID, id string, p models.UserPatch) (*models.User, error) {
	// passwords change only through ChangePassword
	p.PasswordHash = nil
	if p.IsEmpty() {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, common.ErrNothingToUpdate)
	}
	if err := p.Validate(s.now()).Err(); err != nil {
		return nil, err
	}
	if p.Active != nil && !*p.Active && actorID == id {
		return nil, common.ErrSelfAction
	}
	p = p.Normalized()

	var updated *models.User
	err := s.tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.FindActiveByID(ctx, id); err != nil {
			return err
		}

		var email string
		if p.Email != nil {
			email = *p.Email
		}
		if err := s.checkUnique(ctx, tx, email, p.CPF, id); err != nil {
			return err
		}

		var err error
		updated, err = repo.Update(ctx, id, p)
		return err
	})
	if err != nil {
		return nil, s.internalErr(ctx, "update user", err)
	}

	s.logger.Info(ctx, "user updated", "user_id", id, "actor_id", actorID)
	s.publish(ctx, events.UserUpdated, id, actorID)

	return updated, nil
}

// SoftDelete marks account id deleted by actor. The account must exist and
// must not be the actor's own.
func (s *UserService) SoftDelete(ctx context.Context, actor *auth.Identity, id string) error {
	err := s.tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.FindActiveByID(ctx, id); err != nil {
			return err
		}
		if err := auth.RequireNotSelf(actor, id); err != nil {
			return err
		}

		return repo.SoftDelete(ctx, id, actor.ID)
	})
	if err != nil {
		return s.internalErr(ctx, "delete user", err)
	}

	s.logger.Info(ctx, "user deleted", "user_id", id, "actor_id", actor.ID)
	s.publish(ctx, events.UserDeleted, id, actor.ID)

	return nil
}

// Activate re-enables account id.
func (s *UserService) Activate(ctx context.Context, actor *auth.Identity, id string) error {
	if actor == nil {
		return common.ErrTokenRequired
	}
	if err := s.setActive(ctx, id, true); err != nil {
		return err
	}

	s.logger.Info(ctx, "user activated", "user_id", id, "actor_id", actor.ID)
	s.publish(ctx, events.UserActivated, id, actor.ID)
	return nil
}

// Deactivate disables account id. Actors cannot deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, actor *auth.Identity, id string) error {
	if err := auth.RequireNotSelf(actor, id); err != nil {
		return err
	}
	if err := s.setActive(ctx, id, false); err != nil {
		return err
	}

	s.logger.Info(ctx, "user deactivated", "user_id", id, "actor_id", actor.ID)
	s.publish(ctx, events.UserDeactivated, id, actor.ID)
	return nil
}

func (s *UserService) setActive(ctx context.Context, id string, active bool) error {
	_, err := s.repomanager.Users(s.db).Update(ctx, id, models.UserPatch{Active: &active})
	if err != nil {
		return s.internalErr(ctx, "set active", err)
	}
	return nil
}

// List returns one page of live accounts.
func (s *UserService) List(ctx context.Context, f models.ListFilter) (*models.UserPage, error) {
	f, err := f.Normalized()
	if err != nil {
		return nil, err
	}

	users, total, err := s.repomanager.Users(s.db).List(ctx, f)
	if err != nil {
		return nil, s.internalErr(ctx, "list users", err)
	}

	return &models.UserPage{Users: users, Pagination: models.NewPagination(f, total)}, nil
}

// Stats summarises live accounts.
func (s *UserService) Stats(ctx context.Context) (*models.Stats, error) {
	st, err := s.repomanager.Users(s.db).Stats(ctx, s.now())
	if err != nil {
		return nil, s.internalErr(ctx, "user stats", err)
	}
	return st, nil
}

// checkUnique fails with *common.ConflictError when email or cpf is held by
// a live account other than excludeID. Empty values are not checked.
func (s *UserService) checkUnique(ctx context.Context, db dbx.DBTX, email string, cpf *string, excludeID string) error {
	repo := s.repomanager.Users(db)

	if email != "" {
		taken, err := repo.ExistsActiveByEmail(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return &common.ConflictError{Field: models.FieldEmail}
		}
	}

	if cpf != nil && *cpf != "" {
		taken, err := repo.ExistsActiveByCPF(ctx, *cpf, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return &common.ConflictError{Field: models.FieldCPF}
		}
	}

	return nil
}

func (s *UserService) publish(ctx context.Context, t events.Type, userID, actorID string) {
	e := events.Event{Type: t, UserID: userID, ActorID: actorID, At: s.now().UTC()}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn(ctx, "event publish failed", "type", string(t), "user_id", userID, "error", err.Error())
	}
}

// internalErr passes errors of the common taxonomy through unchanged and
// wraps anything else in common.ErrorInternal.
func (s *UserService) internalErr(ctx context.Context, op string, err error) error {
	for _, class := range []error{
		common.ErrValidation,
		common.ErrConflict,
		common.ErrorNotFound,
		common.ErrInvalidCredentials,
		common.ErrorUnauthorized,
		common.ErrorForbidden,
		common.ErrSelfAction,
		common.ErrorInternal,
	} {
		if errors.Is(err, class) {
			return err
		}
	}

	s.logger.Error(ctx, op+" failed", "error", err.Error())
	return fmt.Errorf("%w: %s: %v", common.ErrorInternal, op, err)
}
