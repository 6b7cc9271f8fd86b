package businesses

import "time"

// Business is owned by exactly one user. OwnerPhone is the human routing
// target for inbound calls. Deactivated businesses stop receiving calls.
type Business struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	BusinessName string    `json:"business_name"`
	OwnerPhone   string    `json:"owner_phone"`
	Industry     string    `json:"industry"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	Website      string    `json:"website"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateInput struct {
	// OwnerID is only honoured for admins; owners always create for themselves.
	OwnerID      string `json:"owner_id,omitempty" validate:"omitempty,uuid"`
	BusinessName string `json:"business_name" validate:"required,min=1,max=200"`
	OwnerPhone   string `json:"owner_phone" validate:"max=32"`
	Industry     string `json:"industry" validate:"max=100"`
	Description  string `json:"description" validate:"max=2000"`
	Address      string `json:"address" validate:"max=500"`
	Website      string `json:"website" validate:"omitempty,url,max=500"`
}

// UpdateInput applies only the fields that are set.
type UpdateInput struct {
	BusinessName *string `json:"business_name,omitempty" validate:"omitempty,min=1,max=200"`
	OwnerPhone   *string `json:"owner_phone,omitempty" validate:"omitempty,max=32"`
	Industry     *string `json:"industry,omitempty" validate:"omitempty,max=100"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address      *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Website      *string `json:"website,omitempty" validate:"omitempty,url,max=500"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// Stats feeds the admin statistics endpoint.
type Stats struct {
	Total    int `json:"total_businesses"`
	Active   int `json:"active_businesses"`
	Inactive int `json:"inactive_businesses"`
}
