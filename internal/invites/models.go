package invites

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// DefaultTTL is how long an invite stays redeemable.
const DefaultTTL = 7 * 24 * time.Hour

// Invite is a single-use registration token bound to an email and a role.
// Transitions: pending -> accepted | expired | cancelled.
type Invite struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Token     string     `json:"token,omitempty"`
	InvitedBy string     `json:"invited_by,omitempty"`
	Status    Status     `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Redeemable reports whether the invite can still be accepted at now.
func (i Invite) Redeemable(now time.Time) bool {
	return i.Status == StatusPending && now.Before(i.ExpiresAt)
}
