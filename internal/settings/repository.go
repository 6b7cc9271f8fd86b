package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"
)

var (
	ErrNotFound      = apperrors.NotFound("settings")
	ErrAlreadyExists = apperrors.Conflict("settings already exist for this business")
)

type Repository interface {
	Create(ctx context.Context, s Settings) error
	GetByBusiness(ctx context.Context, businessID string) (Settings, error)
	Update(ctx context.Context, s Settings) error
}

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const settingsColumns = `id, business_id, dashboard_layout, theme, dashboard_refresh_interval,
call_recording_enabled, call_forwarding_timeout, ai_takeover_delay,
email_notifications, sms_notifications, notification_email, notification_phone,
business_hours, timezone, custom_greeting, holiday_message, after_hours_message,
webhook_url, webhook_secret, is_active, created_at, updated_at`

func (r *SQLRepo) Create(ctx context.Context, s Settings) error {
	hours, err := encodeHours(s.BusinessHours)
	if err != nil {
		return err
	}
	const q = `INSERT INTO settings (` + settingsColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`
	_, err = utils.Conn(ctx, r.db).ExecContext(ctx, q,
		s.ID, s.BusinessID, s.DashboardLayout, s.Theme, s.DashboardRefreshInterval,
		s.CallRecordingEnabled, s.CallForwardingTimeout, s.AITakeoverDelay,
		s.EmailNotifications, s.SMSNotifications, s.NotificationEmail, s.NotificationPhone,
		hours, s.Timezone, s.CustomGreeting, s.HolidayMessage, s.AfterHoursMessage,
		s.WebhookURL, s.WebhookSecret, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	if utils.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *SQLRepo) GetByBusiness(ctx context.Context, businessID string) (Settings, error) {
	const q = `SELECT ` + settingsColumns + ` FROM settings WHERE business_id = $1`
	var (
		s     Settings
		hours []byte
	)
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx, q, businessID).Scan(
		&s.ID, &s.BusinessID, &s.DashboardLayout, &s.Theme, &s.DashboardRefreshInterval,
		&s.CallRecordingEnabled, &s.CallForwardingTimeout, &s.AITakeoverDelay,
		&s.EmailNotifications, &s.SMSNotifications, &s.NotificationEmail, &s.NotificationPhone,
		&hours, &s.Timezone, &s.CustomGreeting, &s.HolidayMessage, &s.AfterHoursMessage,
		&s.WebhookURL, &s.WebhookSecret, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &s.BusinessHours); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

func (r *SQLRepo) Update(ctx context.Context, s Settings) error {
	hours, err := encodeHours(s.BusinessHours)
	if err != nil {
		return err
	}
	const q = `
UPDATE settings SET
  dashboard_layout = $2, theme = $3, dashboard_refresh_interval = $4,
  call_recording_enabled = $5, call_forwarding_timeout = $6, ai_takeover_delay = $7,
  email_notifications = $8, sms_notifications = $9, notification_email = $10, notification_phone = $11,
  business_hours = $12, timezone = $13, custom_greeting = $14, holiday_message = $15, after_hours_message = $16,
  webhook_url = $17, webhook_secret = $18, is_active = $19, updated_at = $20
WHERE business_id = $1
`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		s.BusinessID, s.DashboardLayout, s.Theme, s.DashboardRefreshInterval,
		s.CallRecordingEnabled, s.CallForwardingTimeout, s.AITakeoverDelay,
		s.EmailNotifications, s.SMSNotifications, s.NotificationEmail, s.NotificationPhone,
		hours, s.Timezone, s.CustomGreeting, s.HolidayMessage, s.AfterHoursMessage,
		s.WebhookURL, s.WebhookSecret, s.IsActive, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// encodeHours stores an empty Hours as NULL.
func encodeHours(h Hours) (any, error) {
	if len(h) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(map[string]DayHours(h))
	if err != nil {
		return nil, err
	}
	return b, nil
}
