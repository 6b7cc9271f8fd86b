package telephony

import (
	"context"
	"time"
)

// Provider defines the provider-agnostic interface used by business logic.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Keep request/response types provider-agnostic.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	SearchNumbers(ctx context.Context, req SearchNumbersRequest) ([]AvailableNumber, error)
	BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error)
	ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) error

	// FetchCDR returns the provider's record of a finished call.
	FetchCDR(ctx context.Context, providerCallID string) (CDR, error)
}

// Line is a dialed number resolved to the business that owns it.
type Line struct {
	PhoneNumberID string
	BusinessID    string
	Number        string
}

type SearchNumbersRequest struct {
	CountryISO2 string `json:"country"`
	AreaCode    int    `json:"area_code"`
	Limit       int    `json:"limit,omitempty"`
}

type AvailableNumber struct {
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	Locality     string `json:"locality,omitempty"`
	Region       string `json:"region,omitempty"`
	Country      string `json:"country"`
}

type BuyNumberRequest struct {
	// Number is the E.164 number picked from a search.
	Number       string
	FriendlyName string

	// VoiceURL receives inbound call webhooks; StatusCallbackURL receives
	// call-status webhooks.
	VoiceURL          string
	StatusCallbackURL string
}

type BuyNumberResult struct {
	Number           string `json:"number"`
	FriendlyName     string `json:"friendly_name"`
	ProviderNumberID string `json:"provider_number_id"`
}

type ReleaseNumberRequest struct {
	Number           string
	ProviderNumberID string
}

// CDR is a provider-agnostic call detail record.
type CDR struct {
	ProviderCallID  string     `json:"provider_call_id"`
	Status          string     `json:"status"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Price           *float64   `json:"price,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}
