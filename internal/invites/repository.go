package invites

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"
)

var (
	ErrNotFound      = apperrors.NotFound("invite")
	ErrInvalidInvite = apperrors.Validation("invalid or expired invitation token")
	ErrEmailMismatch = apperrors.Validation("registration email must match invitation email")
	ErrNotPending    = apperrors.Conflict("only pending invites can be changed")
)

// Repository is the persistence contract for invites.
type Repository interface {
	Create(ctx context.Context, inv Invite) error
	GetByID(ctx context.Context, id string) (Invite, error)
	GetByToken(ctx context.Context, token string) (Invite, error)
	List(ctx context.Context) ([]Invite, error)
	HasPending(ctx context.Context, email string, now time.Time) (bool, error)
	CountPending(ctx context.Context, now time.Time) (int, error)
	// Accept atomically moves a redeemable invite for email to accepted.
	// It returns ErrInvalidInvite when no such invite exists.
	Accept(ctx context.Context, token, email string, now time.Time) (Invite, error)
	// Transition moves id from one status to another; false when id was not in from.
	Transition(ctx context.Context, id string, from, to Status) (bool, error)
	// ExpireStale marks every pending invite past its expiry as expired.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// SQLRepo is the Postgres Repository.
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const inviteColumns = `id, email, role, token, invited_by, status, expires_at, used_at, created_at`

func (r *SQLRepo) Create(ctx context.Context, inv Invite) error {
	const q = `
INSERT INTO invites (` + inviteColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		inv.ID,
		inv.Email,
		inv.Role,
		inv.Token,
		utils.NullString(inv.InvitedBy),
		string(inv.Status),
		inv.ExpiresAt,
		inv.UsedAt,
		inv.CreatedAt,
	)
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (Invite, error) {
	if !utils.IsUUID(id) {
		return Invite{}, ErrNotFound
	}
	const q = `SELECT ` + inviteColumns + ` FROM invites WHERE id = $1`
	return scanInvite(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

func (r *SQLRepo) GetByToken(ctx context.Context, token string) (Invite, error) {
	const q = `SELECT ` + inviteColumns + ` FROM invites WHERE token = $1`
	return scanInvite(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, token))
}

func (r *SQLRepo) List(ctx context.Context) ([]Invite, error) {
	const q = `SELECT ` + inviteColumns + ` FROM invites ORDER BY created_at DESC`
	rows, err := utils.Conn(ctx, r.db).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLRepo) HasPending(ctx context.Context, email string, now time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM invites WHERE email = $1 AND status = 'pending' AND expires_at > $2
)
`
	var ok bool
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx, q, email, now).Scan(&ok)
	return ok, err
}

func (r *SQLRepo) CountPending(ctx context.Context, now time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM invites WHERE status = 'pending' AND expires_at > $1`
	var n int
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx, q, now).Scan(&n)
	return n, err
}

func (r *SQLRepo) Accept(ctx context.Context, token, email string, now time.Time) (Invite, error) {
	const q = `
UPDATE invites
SET status = 'accepted', used_at = $3
WHERE token = $1 AND email = $2 AND status = 'pending' AND expires_at > $3
RETURNING ` + inviteColumns
	inv, err := scanInvite(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, token, email, now))
	if errors.Is(err, ErrNotFound) {
		return Invite{}, ErrInvalidInvite
	}
	return inv, err
}

func (r *SQLRepo) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	if !utils.IsUUID(id) {
		return false, nil
	}
	const q = `UPDATE invites SET status = $3 WHERE id = $1 AND status = $2`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *SQLRepo) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	const q = `UPDATE invites SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (Invite, error) {
	var (
		inv       Invite
		status    string
		invitedBy sql.NullString
		usedAt    sql.NullTime
	)
	if err := row.Scan(
		&inv.ID,
		&inv.Email,
		&inv.Role,
		&inv.Token,
		&invitedBy,
		&status,
		&inv.ExpiresAt,
		&usedAt,
		&inv.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invite{}, ErrNotFound
		}
		return Invite{}, err
	}
	inv.Status = Status(status)
	inv.InvitedBy = invitedBy.String
	if usedAt.Valid {
		t := usedAt.Time
		inv.UsedAt = &t
	}
	return inv, nil
}
