package routing

import "call-assistant/internal/audit"

// Event maps a decision onto the call event that records it. Reject has no
// event; the call is never created.
func (d Decision) Event() (audit.EventType, map[string]any) {
	data := map[string]any{"reason": d.Reason}
	switch d.Action {
	case ActionForward:
		data["forward_to"] = d.ConnectTo
		data["timeout_seconds"] = d.TimeoutSeconds
		data["record"] = d.Record
		return audit.EventForwarded, data
	case ActionAI:
		return audit.EventAITakeover, data
	case ActionVoicemail:
		return audit.EventVoicemail, data
	default:
		return "", nil
	}
}
