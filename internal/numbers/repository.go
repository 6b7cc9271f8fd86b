package numbers

import (
	"context"
	"database/sql"
	"errors"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"
)

var (
	ErrNotFound      = apperrors.NotFound("phone number")
	ErrNumberTaken   = apperrors.Conflict("phone number already registered")
	ErrAlreadyActive = apperrors.Conflict("business already has an active phone number")
)

type Repository interface {
	Create(ctx context.Context, n PhoneNumber) error
	GetByID(ctx context.Context, id string) (PhoneNumber, error)
	// GetActiveByNumber resolves an inbound dialed number.
	GetActiveByNumber(ctx context.Context, e164 string) (PhoneNumber, error)
	ListByBusiness(ctx context.Context, businessID string) ([]PhoneNumber, error)
	CountActive(ctx context.Context, businessID string) (int, error)
	UpdateStatus(ctx context.Context, n PhoneNumber) error
}

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const numberColumns = `id, business_id, twilio_sid, phone_number, friendly_name, area_code, country, status, monthly_cost, purchased_at, updated_at`

func (r *SQLRepo) Create(ctx context.Context, n PhoneNumber) error {
	const q = `INSERT INTO phone_numbers (` + numberColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		n.ID, n.BusinessID, n.TwilioSID, n.PhoneNumber, n.FriendlyName, n.AreaCode,
		n.Country, string(n.Status), n.MonthlyCost, n.PurchasedAt, n.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrNumberTaken
	}
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (PhoneNumber, error) {
	if !utils.IsUUID(id) {
		return PhoneNumber{}, ErrNotFound
	}
	const q = `SELECT ` + numberColumns + ` FROM phone_numbers WHERE id = $1`
	return scanNumber(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

func (r *SQLRepo) GetActiveByNumber(ctx context.Context, e164 string) (PhoneNumber, error) {
	const q = `SELECT ` + numberColumns + ` FROM phone_numbers WHERE phone_number = $1 AND status = 'active'`
	return scanNumber(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, e164))
}

func (r *SQLRepo) ListByBusiness(ctx context.Context, businessID string) ([]PhoneNumber, error) {
	const q = `SELECT ` + numberColumns + ` FROM phone_numbers WHERE business_id = $1 ORDER BY purchased_at DESC`
	rows, err := utils.Conn(ctx, r.db).QueryContext(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PhoneNumber{}
	for rows.Next() {
		n, err := scanNumber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLRepo) CountActive(ctx context.Context, businessID string) (int, error) {
	const q = `SELECT COUNT(*) FROM phone_numbers WHERE business_id = $1 AND status = 'active'`
	var n int
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx, q, businessID).Scan(&n)
	return n, err
}

func (r *SQLRepo) UpdateStatus(ctx context.Context, n PhoneNumber) error {
	const q = `UPDATE phone_numbers SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q, n.ID, string(n.Status), n.UpdatedAt)
	if err != nil {
		return err
	}
	if c, err := res.RowsAffected(); err == nil && c == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNumber(row interface{ Scan(...any) error }) (PhoneNumber, error) {
	var (
		n      PhoneNumber
		status string
	)
	err := row.Scan(&n.ID, &n.BusinessID, &n.TwilioSID, &n.PhoneNumber, &n.FriendlyName, &n.AreaCode,
		&n.Country, &status, &n.MonthlyCost, &n.PurchasedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	if err != nil {
		return PhoneNumber{}, err
	}
	n.Status = Status(status)
	return n, nil
}
