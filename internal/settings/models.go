package settings

import "time"

// Defaults for a business with no stored settings.
const (
	DefaultLayout                = "grid"
	DefaultTheme                 = "light"
	DefaultRefreshInterval       = 30
	DefaultCallForwardingTimeout = 30
	DefaultAITakeoverDelay       = 10
	DefaultTimezone              = "UTC"

	maskedSecret = "***hidden***"
)

type Settings struct {
	ID                       string    `json:"id"`
	BusinessID               string    `json:"business_id"`
	DashboardLayout          string    `json:"dashboard_layout"`
	Theme                    string    `json:"theme"`
	DashboardRefreshInterval int       `json:"dashboard_refresh_interval"`
	CallRecordingEnabled     bool      `json:"call_recording_enabled"`
	CallForwardingTimeout    int       `json:"call_forwarding_timeout"`
	AITakeoverDelay          int       `json:"ai_takeover_delay"`
	EmailNotifications       bool      `json:"email_notifications"`
	SMSNotifications         bool      `json:"sms_notifications"`
	NotificationEmail        string    `json:"notification_email"`
	NotificationPhone        string    `json:"notification_phone"`
	BusinessHours            Hours     `json:"business_hours"`
	Timezone                 string    `json:"timezone"`
	CustomGreeting           string    `json:"custom_greeting"`
	HolidayMessage           string    `json:"holiday_message"`
	AfterHoursMessage        string    `json:"after_hours_message"`
	WebhookURL               string    `json:"webhook_url"`
	WebhookSecret            string    `json:"webhook_secret"`
	IsActive                 bool      `json:"is_active"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// Defaults returns the settings a business starts with.
func Defaults(businessID string) Settings {
	return Settings{
		BusinessID:               businessID,
		DashboardLayout:          DefaultLayout,
		Theme:                    DefaultTheme,
		DashboardRefreshInterval: DefaultRefreshInterval,
		CallRecordingEnabled:     true,
		CallForwardingTimeout:    DefaultCallForwardingTimeout,
		AITakeoverDelay:          DefaultAITakeoverDelay,
		EmailNotifications:       true,
		Timezone:                 DefaultTimezone,
		IsActive:                 true,
	}
}

// Location resolves Timezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Open reports whether the business is inside its opening hours at t.
func (s Settings) Open(t time.Time) bool {
	return s.BusinessHours.IsOpen(t, s.Location())
}

// Masked hides the webhook signing secret.
func (s Settings) Masked() Settings {
	if s.WebhookSecret != "" {
		s.WebhookSecret = maskedSecret
	}
	return s
}

// Input is shared by POST and PUT; nil fields are left unchanged.
type Input struct {
	DashboardLayout          *string `json:"dashboard_layout,omitempty" validate:"omitempty,oneof=grid list compact"`
	Theme                    *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark auto"`
	DashboardRefreshInterval *int    `json:"dashboard_refresh_interval,omitempty" validate:"omitempty,gte=5,lte=3600"`
	CallRecordingEnabled     *bool   `json:"call_recording_enabled,omitempty"`
	CallForwardingTimeout    *int    `json:"call_forwarding_timeout,omitempty" validate:"omitempty,gte=5,lte=120"`
	AITakeoverDelay          *int    `json:"ai_takeover_delay,omitempty" validate:"omitempty,gte=0,lte=120"`
	EmailNotifications       *bool   `json:"email_notifications,omitempty"`
	SMSNotifications         *bool   `json:"sms_notifications,omitempty"`
	NotificationEmail        *string `json:"notification_email,omitempty" validate:"omitempty,email"`
	NotificationPhone        *string `json:"notification_phone,omitempty" validate:"omitempty,max=20"`
	BusinessHours            *Hours  `json:"business_hours,omitempty"`
	Timezone                 *string `json:"timezone,omitempty" validate:"omitempty,max=50"`
	CustomGreeting           *string `json:"custom_greeting,omitempty" validate:"omitempty,max=1000"`
	HolidayMessage           *string `json:"holiday_message,omitempty" validate:"omitempty,max=1000"`
	AfterHoursMessage        *string `json:"after_hours_message,omitempty" validate:"omitempty,max=1000"`
	WebhookURL               *string `json:"webhook_url,omitempty" validate:"omitempty,url,max=500"`
	WebhookSecret            *string `json:"webhook_secret,omitempty" validate:"omitempty,max=255"`
	IsActive                 *bool   `json:"is_active,omitempty"`
}
