package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"
)

var (
	ErrNotFound     = apperrors.NotFound("call")
	ErrDuplicateSID = apperrors.Conflict("call sid already recorded")
)

// Repository persists calls. GetBySIDForUpdate locks the row for the
// remainder of the surrounding transaction.
type Repository interface {
	Create(ctx context.Context, c Call) error
	GetByID(ctx context.Context, id string) (Call, error)
	GetBySIDForUpdate(ctx context.Context, sid string) (Call, error)
	Update(ctx context.Context, c Call) error
	ListByBusiness(ctx context.Context, businessID string, f ListFilter) ([]Call, error)
}

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const callColumns = `id, business_id, phone_number_id, twilio_call_sid, caller_number, call_type, status,
start_time, answer_time, end_time, duration_seconds, cost, recording_url, recording_sid, call_summary,
created_at, updated_at`

func (r *SQLRepo) Create(ctx context.Context, c Call) error {
	const q = `INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		c.ID, c.BusinessID, utils.NullString(c.PhoneNumberID), c.TwilioCallSID, c.CallerNumber,
		string(c.Type), string(c.Status), c.StartTime, c.AnswerTime, c.EndTime,
		c.DurationSeconds, c.Cost, c.RecordingURL, c.RecordingSID, c.CallSummary,
		c.CreatedAt, c.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrDuplicateSID
	}
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (Call, error) {
	if !utils.IsUUID(id) {
		return Call{}, ErrNotFound
	}
	const q = `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return scanCall(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// GetBySIDForUpdate only locks when ctx carries a transaction.
func (r *SQLRepo) GetBySIDForUpdate(ctx context.Context, sid string) (Call, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE twilio_call_sid = $1`
	if _, ok := utils.TxFrom(ctx); ok {
		q += ` FOR UPDATE`
	}
	return scanCall(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, sid))
}

func (r *SQLRepo) Update(ctx context.Context, c Call) error {
	const q = `
UPDATE calls SET
  call_type = $2, status = $3, answer_time = $4, end_time = $5, duration_seconds = $6,
  cost = $7, recording_url = $8, recording_sid = $9, call_summary = $10, updated_at = $11
WHERE id = $1
`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		c.ID, string(c.Type), string(c.Status), c.AnswerTime, c.EndTime, c.DurationSeconds,
		c.Cost, c.RecordingURL, c.RecordingSID, c.CallSummary, c.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) ListByBusiness(ctx context.Context, businessID string, f ListFilter) ([]Call, error) {
	var (
		where = []string{"business_id = $1"}
		args  = []any{businessID}
	)
	if !f.From.IsZero() {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("start_time < $%d", len(args)))
	}
	q := `SELECT ` + callColumns + ` FROM calls WHERE ` + strings.Join(where, " AND ") + ` ORDER BY start_time DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := utils.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCall(row interface{ Scan(...any) error }) (Call, error) {
	var (
		c          Call
		phoneID    sql.NullString
		callType   string
		status     string
		answerTime sql.NullTime
		endTime    sql.NullTime
		duration   sql.NullInt64
		cost       sql.NullFloat64
	)
	err := row.Scan(&c.ID, &c.BusinessID, &phoneID, &c.TwilioCallSID, &c.CallerNumber, &callType, &status,
		&c.StartTime, &answerTime, &endTime, &duration, &cost, &c.RecordingURL, &c.RecordingSID, &c.CallSummary,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	c.PhoneNumberID = phoneID.String
	c.Type = CallType(callType)
	c.Status = CallStatus(status)
	c.AnswerTime = timePtr(answerTime)
	c.EndTime = timePtr(endTime)
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	if cost.Valid {
		v := cost.Float64
		c.Cost = &v
	}
	return c, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
