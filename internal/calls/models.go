package calls

import (
	"strings"
	"time"
)

// Call is one inbound phone call to a business number.
//
// Invariants:
// - Type is written once: "" until routing decides, then human or ai.
// - Status only moves forward; terminal statuses never change.
// - EndTime, DurationSeconds and Cost are set on terminal status only
//   (DurationSeconds may also come from a recording).
type Call struct {
	ID              string     `json:"id"`
	BusinessID      string     `json:"business_id"`
	PhoneNumberID   string     `json:"phone_number_id,omitempty"`
	TwilioCallSID   string     `json:"twilio_call_sid"`
	CallerNumber    string     `json:"caller_number"`
	Type            CallType   `json:"call_type"`
	Status          CallStatus `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	AnswerTime      *time.Time `json:"answer_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *int       `json:"duration_seconds"`
	Cost            *float64   `json:"cost"`
	RecordingURL    string     `json:"recording_url,omitempty"`
	RecordingSID    string     `json:"recording_sid,omitempty"`
	CallSummary     string     `json:"call_summary,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CallType string

const (
	CallTypeUndecided CallType = ""
	CallTypeHuman     CallType = "human"
	CallTypeAI        CallType = "ai"
)

type CallStatus string

const (
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no_answer"
)

func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer:
		return true
	default:
		return false
	}
}

// rank orders statuses; terminal statuses share the top rank.
func (s CallStatus) rank() int {
	switch s {
	case CallStatusRinging:
		return 0
	case CallStatusInProgress:
		return 1
	case CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether a call may move from one status to another.
// Staying put, moving backwards and leaving a terminal status are refused.
func CanTransition(from, to CallStatus) bool {
	if from.IsTerminal() || to.rank() < 0 || from.rank() < 0 {
		return false
	}
	return to.rank() > from.rank()
}

// FromTwilio maps a Twilio CallStatus / DialCallStatus value.
func FromTwilio(status string) (CallStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "initiated", "ringing":
		return CallStatusRinging, true
	case "in-progress", "answered":
		return CallStatusInProgress, true
	case "completed":
		return CallStatusCompleted, true
	case "busy", "failed", "canceled":
		return CallStatusFailed, true
	case "no-answer":
		return CallStatusNoAnswer, true
	default:
		return "", false
	}
}

// ListFilter narrows a business's call history. Zero times are open ends.
type ListFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
