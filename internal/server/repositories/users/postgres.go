package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02"

	userColumns = `id, nome, pronome, senha, email, tel, data_nascimento, cpf, active, created_at, updated_at, deleted_at, deleted_by`
	liveOnly    = `deleted_at IS NULL`

	newUsersLongWindow  = 30 * 24 * time.Hour
	newUsersShortWindow = 7 * 24 * time.Hour
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.Name, &u.Pronoun, &u.PasswordHash, &u.Email, &u.Phone,
		&u.BirthDate, &u.CPF, &u.Active, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt, &u.DeletedBy)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// translate maps driver errors onto the common taxonomy.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch {
			case strings.Contains(pgErr.ConstraintName, "email"):
				return &common.ConflictError{Field: models.FieldEmail}
			case strings.Contains(pgErr.ConstraintName, "cpf"):
				return &common.ConflictError{Field: models.FieldCPF}
			}
			return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
		case pgInvalidTextRepr:
			// malformed uuid can never match a row
			return common.ErrorNotFound
		}
	}

	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Insert(ctx context.Context, u *models.User) (*models.User, error) {
	query :=
		`INSERT INTO public.usuario (id, nome, pronome, senha, email, tel, data_nascimento, cpf, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.Name, u.Pronoun, u.PasswordHash, u.Email, u.Phone, u.BirthDate, u.CPF, u.Active,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	return u, nil
}

func (r *PostgresRepository) FindActiveByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM public.usuario WHERE id = $1 AND ` + liveOnly

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (r *PostgresRepository) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM public.usuario WHERE email = $1 AND ` + liveOnly

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (r *PostgresRepository) ExistsActiveByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "email", email, excludeID)
}

func (r *PostgresRepository) ExistsActiveByCPF(ctx context.Context, cpf, excludeID string) (bool, error) {
	return r.exists(ctx, "cpf", cpf, excludeID)
}

// exists checks for a live row with column = value. column is one of a
// fixed set of names, never caller input.
func (r *PostgresRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM public.usuario WHERE ` + column + ` = $1 AND ` + liveOnly
	args := []any{value}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`

	var found bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, p models.UserPatch) (*models.User, error) {
	if p.IsEmpty() {
		return nil, common.ErrNothingToUpdate
	}

	var sets []string
	var args []any
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Name != nil {
		set("nome", *p.Name)
	}
	if p.Pronoun != nil {
		set("pronome", *p.Pronoun)
	}
	if p.Email != nil {
		set("email", *p.Email)
	}
	if p.Phone != nil {
		set("tel", *p.Phone)
	}
	if p.BirthDate != nil {
		set("data_nascimento", *p.BirthDate)
	}
	if p.CPF != nil {
		set("cpf", *p.CPF)
	}
	if p.Active != nil {
		set("active", *p.Active)
	}
	if p.PasswordHash != nil {
		set("senha", *p.PasswordHash)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE public.usuario SET %s, updated_at = NOW() WHERE id = $%d AND %s RETURNING %s`,
		strings.Join(sets, ", "), len(args), liveOnly, userColumns)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id, deletedBy string) error {
	query :=
		`UPDATE public.usuario SET deleted_at = NOW(), deleted_by = $2
		 WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, query, id, deletedBy)
}

func (r *PostgresRepository) TouchUpdatedAt(ctx context.Context, id string) error {
	query := `UPDATE public.usuario SET updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, query, id)
}

// execOne runs a single-row statement; no affected row means not found.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.ListFilter) ([]*models.User, int, error) {
	where := []string{liveOnly}
	var args []any

	if f.Active != nil {
		args = append(args, *f.Active)
		where = append(where, fmt.Sprintf("active = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		where = append(where, fmt.Sprintf("(nome ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM public.usuario WHERE ` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	pageArgs := append(append([]any{}, args...), f.Limit, f.Offset())
	query := fmt.Sprintf(`SELECT %s FROM public.usuario WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, clause, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, f.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return users, total, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	query :=
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE active = true),
		        COUNT(*) FILTER (WHERE active = false),
		        COUNT(*) FILTER (WHERE created_at >= $1),
		        COUNT(*) FILTER (WHERE created_at >= $2)
		 FROM public.usuario
		 WHERE deleted_at IS NULL`

	s := &models.Stats{}
	err := r.db.QueryRowContext(ctx, query, now.Add(-newUsersLongWindow), now.Add(-newUsersShortWindow)).
		Scan(&s.TotalUsers, &s.ActiveUsers, &s.InactiveUsers, &s.NewUsersLast30Days, &s.NewUsersLast7Days)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
