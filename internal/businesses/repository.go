package businesses

import (
	"context"
	"database/sql"
	"errors"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"
)

var (
	ErrNotFound      = apperrors.NotFound("business")
	ErrAlreadyExists = apperrors.Conflict("user already has a business")
	ErrUnknownOwner  = apperrors.Validation("owner_id does not reference a user")
)

// Repository is the persistence contract for businesses.
type Repository interface {
	Create(ctx context.Context, b Business) error
	GetByID(ctx context.Context, id string) (Business, error)
	GetByOwner(ctx context.Context, ownerID string) (Business, error)
	List(ctx context.Context) ([]Business, error)
	Update(ctx context.Context, b Business) error
	Stats(ctx context.Context) (Stats, error)
}

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const businessColumns = `id, owner_id, business_name, owner_phone, industry, description, address, website, is_active, created_at, updated_at`

func (r *SQLRepo) Create(ctx context.Context, b Business) error {
	const q = `
INSERT INTO businesses (` + businessColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		b.ID,
		b.OwnerID,
		b.BusinessName,
		b.OwnerPhone,
		b.Industry,
		b.Description,
		b.Address,
		b.Website,
		b.IsActive,
		b.CreatedAt,
		b.UpdatedAt,
	)
	switch {
	case utils.IsUniqueViolation(err):
		return ErrAlreadyExists
	case utils.IsForeignKeyViolation(err):
		return ErrUnknownOwner
	}
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (Business, error) {
	if !utils.IsUUID(id) {
		return Business{}, ErrNotFound
	}
	const q = `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	return scanBusiness(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

func (r *SQLRepo) GetByOwner(ctx context.Context, ownerID string) (Business, error) {
	const q = `SELECT ` + businessColumns + ` FROM businesses WHERE owner_id = $1`
	return scanBusiness(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, ownerID))
}

func (r *SQLRepo) List(ctx context.Context) ([]Business, error) {
	const q = `SELECT ` + businessColumns + ` FROM businesses ORDER BY created_at DESC`
	rows, err := utils.Conn(ctx, r.db).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Update(ctx context.Context, b Business) error {
	const q = `
UPDATE businesses
SET business_name = $2, owner_phone = $3, industry = $4, description = $5,
    address = $6, website = $7, is_active = $8, updated_at = $9
WHERE id = $1
`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		b.ID,
		b.BusinessName,
		b.OwnerPhone,
		b.Industry,
		b.Description,
		b.Address,
		b.Website,
		b.IsActive,
		b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) Stats(ctx context.Context) (Stats, error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM businesses`
	var s Stats
	if err := utils.Conn(ctx, r.db).QueryRowContext(ctx, q).Scan(&s.Total, &s.Active); err != nil {
		return Stats{}, err
	}
	s.Inactive = s.Total - s.Active
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (Business, error) {
	var b Business
	if err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.BusinessName,
		&b.OwnerPhone,
		&b.Industry,
		&b.Description,
		&b.Address,
		&b.Website,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Business{}, ErrNotFound
		}
		return Business{}, err
	}
	return b, nil
}
