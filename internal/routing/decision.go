package routing

// Decision is the provider-agnostic output of the routing engine.
//
// It must contain *only* information the provider adapter boundary (the
// TwiML builder) needs to execute the decision.
type Decision struct {
	Action Action `json:"action"`

	// ConnectTo is the owner's number when Action == ActionForward.
	ConnectTo string `json:"connect_to,omitempty"`
	// TimeoutSeconds bounds how long the owner's phone rings.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
	// Record asks the provider to record the bridged call.
	Record bool `json:"record,omitempty"`

	// Greeting is spoken to the caller before the action runs.
	Greeting string `json:"greeting,omitempty"`

	// Reason is intended for internal logs/metrics only.
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	ActionForward   Action = "forward"
	ActionAI        Action = "ai"
	ActionVoicemail Action = "voicemail"
	ActionReject    Action = "reject"
)

// Stage is the point in the call flow at which routing is asked.
type Stage string

const (
	// StageInbound is the first webhook for a new call.
	StageInbound Stage = "inbound"
	// StageOwnerUnanswered follows a forward that was not picked up.
	StageOwnerUnanswered Stage = "owner_unanswered"
)
