package apiconfig

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-assistant/internal/validator"
	"call-assistant/pkg/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo         Repository
	defaultVoice string
	defaultModel string
	clock        func() time.Time
}

// NewService falls back to DefaultVoice/DefaultModel when the configured
// defaults are empty.
func NewService(repo Repository, defaultVoice, defaultModel string) *Service {
	if defaultVoice == "" {
		defaultVoice = DefaultVoice
	}
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	return &Service{repo: repo, defaultVoice: defaultVoice, defaultModel: defaultModel, clock: time.Now}
}

// Get returns the business's config for display (masked by the handler).
func (s *Service) Get(ctx context.Context, businessID string) (Config, error) {
	return s.repo.GetLatest(ctx, businessID)
}

// Active returns the config used for AI takeover.
func (s *Service) Active(ctx context.Context, businessID string) (Config, error) {
	return s.repo.GetActive(ctx, businessID)
}

func (s *Service) Create(ctx context.Context, businessID string, in CreateInput) (Config, error) {
	in.APIKey = strings.TrimSpace(in.APIKey)
	if err := validator.Struct(in); err != nil {
		return Config{}, err
	}
	if _, err := s.repo.GetActive(ctx, businessID); err == nil {
		return Config{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Config{}, err
	}

	now := s.clock().UTC()
	c := Config{
		ID:           uuid.NewString(),
		BusinessID:   businessID,
		APIKey:       in.APIKey,
		Instructions: strings.TrimSpace(in.Instructions),
		Voice:        firstNonEmpty(in.Voice, s.defaultVoice),
		Model:        firstNonEmpty(in.Model, s.defaultModel),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Config{}, err
	}
	logger.From(ctx).Info("api configuration created", "business_id", businessID, "config_id", c.ID)
	return c, nil
}

func (s *Service) Update(ctx context.Context, businessID string, in UpdateInput) (Config, error) {
	if err := validator.Struct(in); err != nil {
		return Config{}, err
	}
	c, err := s.repo.GetLatest(ctx, businessID)
	if err != nil {
		return Config{}, err
	}
	// The masked placeholder echoed back by the frontend keeps the stored key.
	if in.APIKey != nil && *in.APIKey != MaskedKey {
		c.APIKey = strings.TrimSpace(*in.APIKey)
	}
	if in.Instructions != nil {
		c.Instructions = strings.TrimSpace(*in.Instructions)
	}
	if in.Voice != nil {
		c.Voice = firstNonEmpty(*in.Voice, s.defaultVoice)
	}
	if in.Model != nil {
		c.Model = firstNonEmpty(*in.Model, s.defaultModel)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func firstNonEmpty(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
