package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/validator"
	"call-assistant/pkg/logger"
	"call-assistant/pkg/utils"

	"github.com/google/uuid"
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Get returns the stored settings, creating the defaults on first read.
func (s *Service) Get(ctx context.Context, businessID string) (Settings, error) {
	st, err := s.repo.GetByBusiness(ctx, businessID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Settings{}, err
	}

	st = s.newSettings(businessID)
	if err := s.repo.Create(ctx, st); err != nil {
		// Lost a race with a concurrent first read.
		if errors.Is(err, ErrAlreadyExists) {
			return s.repo.GetByBusiness(ctx, businessID)
		}
		return Settings{}, err
	}
	logger.From(ctx).Info("default settings created", "business_id", businessID)
	return st, nil
}

// Effective is Get for webhook handlers: failures degrade to the defaults.
func (s *Service) Effective(ctx context.Context, businessID string) Settings {
	st, err := s.repo.GetByBusiness(ctx, businessID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.From(ctx).Warn("settings lookup failed, using defaults", "business_id", businessID, "err", err)
		}
		return Defaults(businessID)
	}
	return st
}

func (s *Service) Create(ctx context.Context, businessID string, in Input) (Settings, error) {
	if _, err := s.repo.GetByBusiness(ctx, businessID); err == nil {
		return Settings{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Settings{}, err
	}
	st := s.newSettings(businessID)
	if err := apply(&st, in); err != nil {
		return Settings{}, err
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return Settings{}, err
	}
	return st, nil
}

func (s *Service) Update(ctx context.Context, businessID string, in Input) (Settings, error) {
	st, err := s.repo.GetByBusiness(ctx, businessID)
	if err != nil {
		return Settings{}, err
	}
	if err := apply(&st, in); err != nil {
		return Settings{}, err
	}
	st.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, st); err != nil {
		return Settings{}, err
	}
	logger.From(ctx).Info("settings updated", "business_id", businessID)
	return st, nil
}

func (s *Service) newSettings(businessID string) Settings {
	now := s.clock().UTC()
	st := Defaults(businessID)
	st.ID = uuid.NewString()
	st.CreatedAt = now
	st.UpdatedAt = now
	return st
}

func apply(st *Settings, in Input) error {
	if err := validator.Struct(in); err != nil {
		return err
	}
	if in.DashboardLayout != nil {
		st.DashboardLayout = *in.DashboardLayout
	}
	if in.Theme != nil {
		st.Theme = *in.Theme
	}
	if in.DashboardRefreshInterval != nil {
		st.DashboardRefreshInterval = *in.DashboardRefreshInterval
	}
	if in.CallRecordingEnabled != nil {
		st.CallRecordingEnabled = *in.CallRecordingEnabled
	}
	if in.CallForwardingTimeout != nil {
		st.CallForwardingTimeout = *in.CallForwardingTimeout
	}
	if in.AITakeoverDelay != nil {
		st.AITakeoverDelay = *in.AITakeoverDelay
	}
	if in.EmailNotifications != nil {
		st.EmailNotifications = *in.EmailNotifications
	}
	if in.SMSNotifications != nil {
		st.SMSNotifications = *in.SMSNotifications
	}
	if in.NotificationEmail != nil {
		st.NotificationEmail = strings.TrimSpace(*in.NotificationEmail)
	}
	if in.NotificationPhone != nil {
		phone := strings.TrimSpace(*in.NotificationPhone)
		if phone != "" {
			n, err := utils.NormalizeE164(phone)
			if err != nil {
				return apperrors.Validation("notification_phone: %v", err)
			}
			phone = n
		}
		st.NotificationPhone = phone
	}
	if in.BusinessHours != nil {
		if err := in.BusinessHours.Validate(); err != nil {
			return apperrors.Validation("%v", err)
		}
		st.BusinessHours = *in.BusinessHours
	}
	if in.Timezone != nil {
		tz := strings.TrimSpace(*in.Timezone)
		if tz == "" {
			tz = DefaultTimezone
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return apperrors.Validation("timezone: unknown zone %q", tz)
		}
		st.Timezone = tz
	}
	if in.CustomGreeting != nil {
		st.CustomGreeting = strings.TrimSpace(*in.CustomGreeting)
	}
	if in.HolidayMessage != nil {
		st.HolidayMessage = strings.TrimSpace(*in.HolidayMessage)
	}
	if in.AfterHoursMessage != nil {
		st.AfterHoursMessage = strings.TrimSpace(*in.AfterHoursMessage)
	}
	if in.WebhookURL != nil {
		st.WebhookURL = strings.TrimSpace(*in.WebhookURL)
	}
	if in.WebhookSecret != nil && *in.WebhookSecret != maskedSecret {
		st.WebhookSecret = *in.WebhookSecret
	}
	if in.IsActive != nil {
		st.IsActive = *in.IsActive
	}
	return nil
}
