package users

import (
	"context"
	"database/sql"
	"errors"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"
)

var (
	ErrNotFound   = apperrors.NotFound("user")
	ErrEmailTaken = apperrors.Conflict("email already registered")
)

// Repository is the persistence contract for users.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	CountByRole(ctx context.Context, role string) (int, error)
	Count(ctx context.Context) (int, error)
}

// SQLRepo is the Postgres Repository.
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const userColumns = `id, email, hashed_password, first_name, last_name, role, is_active, created_at, updated_at`

func (r *SQLRepo) Create(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		u.ID,
		u.Email,
		u.HashedPassword,
		u.FirstName,
		u.LastName,
		u.Role,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if utils.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (User, error) {
	if !utils.IsUUID(id) {
		return User{}, ErrNotFound
	}
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

func (r *SQLRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, NormalizeEmail(email)))
}

func (r *SQLRepo) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n)
	return n, err
}

func (r *SQLRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
