package apiconfig

import (
	"context"
	"database/sql"
	"errors"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"
)

var (
	ErrNotFound      = apperrors.NotFound("api configuration")
	ErrAlreadyExists = apperrors.Conflict("api configuration already exists")
)

type Repository interface {
	Create(ctx context.Context, c Config) error
	// GetLatest returns the most recently updated config, active or not.
	GetLatest(ctx context.Context, businessID string) (Config, error)
	GetActive(ctx context.Context, businessID string) (Config, error)
	Update(ctx context.Context, c Config) error
}

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const configColumns = `id, business_id, api_key, instructions, voice, model, is_active, created_at, updated_at`

func (r *SQLRepo) Create(ctx context.Context, c Config) error {
	const q = `INSERT INTO api_configurations (` + configColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		c.ID, c.BusinessID, c.APIKey, c.Instructions, c.Voice, c.Model, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *SQLRepo) GetLatest(ctx context.Context, businessID string) (Config, error) {
	const q = `SELECT ` + configColumns + ` FROM api_configurations WHERE business_id = $1 ORDER BY is_active DESC, updated_at DESC LIMIT 1`
	return scanConfig(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, businessID))
}

func (r *SQLRepo) GetActive(ctx context.Context, businessID string) (Config, error) {
	const q = `SELECT ` + configColumns + ` FROM api_configurations WHERE business_id = $1 AND is_active`
	return scanConfig(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, businessID))
}

func (r *SQLRepo) Update(ctx context.Context, c Config) error {
	const q = `
UPDATE api_configurations
SET api_key = $2, instructions = $3, voice = $4, model = $5, is_active = $6, updated_at = $7
WHERE id = $1
`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		c.ID, c.APIKey, c.Instructions, c.Voice, c.Model, c.IsActive, c.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanConfig(row interface{ Scan(...any) error }) (Config, error) {
	var c Config
	err := row.Scan(&c.ID, &c.BusinessID, &c.APIKey, &c.Instructions, &c.Voice, &c.Model, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Config{}, ErrNotFound
	}
	return c, err
}
