package numbers

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

const DefaultMonthlyCost = 1.00

// PhoneNumber is a Twilio number owned by a business. Only active numbers
// receive inbound calls.
type PhoneNumber struct {
	ID           string    `json:"id"`
	BusinessID   string    `json:"business_id"`
	TwilioSID    string    `json:"twilio_sid"`
	PhoneNumber  string    `json:"phone_number"`
	FriendlyName string    `json:"friendly_name"`
	AreaCode     string    `json:"area_code"`
	Country      string    `json:"country"`
	Status       Status    `json:"status"`
	MonthlyCost  float64   `json:"monthly_cost"`
	PurchasedAt  time.Time `json:"purchased_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SearchInput struct {
	AreaCode string `form:"area_code" json:"area_code" validate:"required,len=3,numeric"`
	Country  string `form:"country" json:"country" validate:"omitempty,oneof=US CA"`
}

type PurchaseInput struct {
	PhoneNumber  string `json:"phone_number" validate:"required,max=20"`
	AreaCode     string `json:"area_code" validate:"omitempty,len=3,numeric"`
	Country      string `json:"country" validate:"omitempty,oneof=US CA"`
	FriendlyName string `json:"friendly_name" validate:"max=100"`
}
