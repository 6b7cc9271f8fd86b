package apiconfig

import "time"

const (
	DefaultVoice = "alloy"
	DefaultModel = "gpt-4o-realtime-preview"

	// MaskedKey replaces the stored key in every API response.
	MaskedKey = "***hidden***"
)

// Config holds the voice-agent credentials and prompt of a business.
// At most one config per business is active.
type Config struct {
	ID           string    `json:"id"`
	BusinessID   string    `json:"business_id"`
	APIKey       string    `json:"api_key"`
	Instructions string    `json:"instructions"`
	Voice        string    `json:"voice"`
	Model        string    `json:"model"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Masked returns a copy safe to render.
func (c Config) Masked() Config {
	if c.APIKey != "" {
		c.APIKey = MaskedKey
	}
	return c
}

type CreateInput struct {
	APIKey       string `json:"api_key" validate:"required,min=8,max=512"`
	Instructions string `json:"instructions" validate:"max=8000"`
	Voice        string `json:"voice" validate:"omitempty,max=50"`
	Model        string `json:"model" validate:"omitempty,max=100"`
}

type UpdateInput struct {
	APIKey       *string `json:"api_key,omitempty" validate:"omitempty,min=8,max=512"`
	Instructions *string `json:"instructions,omitempty" validate:"omitempty,max=8000"`
	Voice        *string `json:"voice,omitempty" validate:"omitempty,max=50"`
	Model        *string `json:"model,omitempty" validate:"omitempty,max=100"`
	IsActive     *bool   `json:"is_active,omitempty"`
}
