package audit

import "time"

// Event is one entry in a call's append-only trail (call_events table).
//
// Invariants:
// - Events are never updated or deleted.
// - call_id is required; events are listed in timestamp order.
type Event struct {
	ID        string         `json:"id"`
	CallID    string         `json:"call_id"`
	Type      EventType      `json:"event_type"`
	Data      map[string]any `json:"event_data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type EventType string

const (
	EventIncoming           EventType = "incoming"
	EventForwarded          EventType = "forwarded"
	EventAnswered           EventType = "answered"
	EventAITakeover         EventType = "ai_takeover"
	EventVoicemail          EventType = "voicemail"
	EventStatusChanged      EventType = "status_changed"
	EventRecordingCompleted EventType = "recording_completed"
	EventUpstreamFailure    EventType = "upstream_failure"
)
