package routing

import (
	"context"
	"strings"
	"testing"
	"time"

	"call-assistant/internal/audit"
	"call-assistant/internal/settings"
)

// Monday 2024-01-01 12:00 UTC.
var noon = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func engineAt(t time.Time) *RoutingEngine {
	return &RoutingEngine{Now: func() time.Time { return t }}
}

func baseInput() Input {
	st := settings.Defaults("b1")
	st.CustomGreeting = "Hello from Acme."
	return Input{
		Stage:          StageInbound,
		BusinessActive: true,
		BusinessName:   "Acme",
		OwnerPhone:     "+14155550199",
		Settings:       st,
		AIAvailable:    true,
	}
}

func TestRoute_ForwardsToOwner(t *testing.T) {
	d, err := engineAt(noon).Route(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionForward || d.ConnectTo != "+14155550199" {
		t.Fatalf("expected forward to owner, got %+v", d)
	}
	if d.TimeoutSeconds != 30 || !d.Record {
		t.Fatalf("expected settings timeout and recording, got %+v", d)
	}
	if d.Greeting != "Hello from Acme." {
		t.Fatalf("expected custom greeting, got %q", d.Greeting)
	}
}

func TestRoute_NoOwnerPhoneGoesToAI(t *testing.T) {
	in := baseInput()
	in.OwnerPhone = ""
	d, err := engineAt(noon).Route(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionAI || d.Reason != "no_owner_phone" {
		t.Fatalf("expected ai takeover, got %+v", d)
	}
}

func TestRoute_AfterHours(t *testing.T) {
	in := baseInput()
	in.Settings.BusinessHours = settings.Hours{"mon": {Open: "09:00", Close: "11:00"}}
	in.Settings.AfterHoursMessage = "We are closed."

	d, err := engineAt(noon).Route(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionAI || d.Greeting != "We are closed." || d.Reason != "after_hours" {
		t.Fatalf("expected after-hours ai, got %+v", d)
	}

	in.AIAvailable = false
	d, _ = engineAt(noon).Route(context.Background(), in)
	if d.Action != ActionVoicemail || d.Greeting != "We are closed." {
		t.Fatalf("expected after-hours voicemail, got %+v", d)
	}
}

func TestRoute_OwnerUnanswered(t *testing.T) {
	in := baseInput()
	in.Stage = StageOwnerUnanswered
	d, _ := engineAt(noon).Route(context.Background(), in)
	if d.Action != ActionAI || d.Reason != "owner_unanswered" {
		t.Fatalf("expected ai after unanswered forward, got %+v", d)
	}

	in.AIAvailable = false
	d, _ = engineAt(noon).Route(context.Background(), in)
	if d.Action != ActionVoicemail || !strings.Contains(d.Greeting, "Acme") {
		t.Fatalf("expected voicemail with default prompt, got %+v", d)
	}
}

func TestRoute_InactiveBusinessRejects(t *testing.T) {
	in := baseInput()
	in.BusinessActive = false
	d, _ := engineAt(noon).Route(context.Background(), in)
	if d.Action != ActionReject {
		t.Fatalf("expected reject, got %+v", d)
	}
	if typ, _ := d.Event(); typ != "" {
		t.Fatalf("expected no event for reject, got %q", typ)
	}
}

func TestRoute_UnknownStage(t *testing.T) {
	in := baseInput()
	in.Stage = "later"
	if _, err := engineAt(noon).Route(context.Background(), in); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDecisionEvent(t *testing.T) {
	cases := map[Action]audit.EventType{
		ActionForward:   audit.EventForwarded,
		ActionAI:        audit.EventAITakeover,
		ActionVoicemail: audit.EventVoicemail,
	}
	for a, want := range cases {
		typ, data := Decision{Action: a, Reason: "r"}.Event()
		if typ != want || data["reason"] != "r" {
			t.Fatalf("Event(%s) = %q %v", a, typ, data)
		}
	}
}
