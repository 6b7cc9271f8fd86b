package routing

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-assistant/internal/settings"
)

const defaultForwardTimeout = 30

// Engine decides what to do with an inbound call.
//
// Return routing decision only. No side effects (no DB writes, no provider
// calls); callers persist the outcome and render it.
type Engine interface {
	Route(ctx context.Context, in Input) (Decision, error)
}

// Input is everything a decision depends on.
type Input struct {
	Stage Stage

	BusinessActive bool
	BusinessName   string
	// OwnerPhone is the E.164 forwarding target; empty disables forwarding.
	OwnerPhone string

	Settings settings.Settings

	// AIAvailable is true when the business has an active voice-agent
	// configuration and a free AI session slot.
	AIAvailable bool
}

// RoutingEngine evaluates routing for inbound calls.
//
// Priority:
//  1. Inactive business: reject
//  2. Owner reachable and within business hours: forward
//  3. Voice agent available: AI takeover
//  4. Voicemail
type RoutingEngine struct {
	Now func() time.Time
}

func NewRoutingEngine() *RoutingEngine {
	return &RoutingEngine{Now: time.Now}
}

func (e *RoutingEngine) Route(ctx context.Context, in Input) (Decision, error) {
	switch in.Stage {
	case StageInbound, StageOwnerUnanswered:
	default:
		return Decision{}, errors.New("routing: unknown stage")
	}

	if !in.BusinessActive {
		return Decision{Action: ActionReject, Reason: "business_inactive"}, nil
	}

	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	open := in.Settings.Open(now)
	st := in.Settings

	if in.Stage == StageInbound {
		if in.OwnerPhone != "" && open {
			timeout := st.CallForwardingTimeout
			if timeout <= 0 {
				timeout = defaultForwardTimeout
			}
			return Decision{
				Action:         ActionForward,
				ConnectTo:      in.OwnerPhone,
				TimeoutSeconds: timeout,
				Record:         st.CallRecordingEnabled,
				Greeting:       st.CustomGreeting,
				Reason:         "owner_available",
			}, nil
		}
	}

	reason := fallbackReason(in, open)
	greeting := ""
	if !open {
		greeting = st.AfterHoursMessage
	}

	if in.AIAvailable {
		return Decision{Action: ActionAI, Greeting: greeting, Reason: reason}, nil
	}
	if greeting == "" {
		greeting = voicemailPrompt(in.BusinessName)
	}
	return Decision{Action: ActionVoicemail, Greeting: greeting, Record: true, Reason: reason}, nil
}

func fallbackReason(in Input, open bool) string {
	switch {
	case in.Stage == StageOwnerUnanswered:
		return "owner_unanswered"
	case !open:
		return "after_hours"
	default:
		return "no_owner_phone"
	}
}

func voicemailPrompt(businessName string) string {
	name := strings.TrimSpace(businessName)
	if name == "" {
		name = "us"
	}
	return "Thank you for calling " + name + ". No one is available to take your call right now. Please leave a message after the tone."
}
