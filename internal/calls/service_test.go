package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *Service
	events *audit.MemoryRepo
	now    time.Time
}

func newFixture() *fixture {
	f := &fixture{events: audit.NewMemoryRepo(), now: time.Unix(1700000000, 0).UTC()}
	f.svc = NewService(NewMemoryRepo(), audit.NewService(f.events), nil)
	f.svc.clock = func() time.Time { return f.now }
	return f
}

func (f *fixture) inbound(t *testing.T, sid string) Call {
	t.Helper()
	c, created, err := f.svc.CreateInbound(context.Background(), InboundInput{
		BusinessID: "b1", PhoneNumberID: "pn1", CallSID: sid, From: "+15551230000", To: "+14155550100",
	})
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func (f *fixture) eventTypes(callID string) []audit.EventType {
	evs, _ := f.events.ListByCall(context.Background(), callID)
	out := make([]audit.EventType, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestCreateInbound_Idempotent(t *testing.T) {
	f := newFixture()
	c := f.inbound(t, "CA1")
	assert.Equal(t, CallStatusRinging, c.Status)
	assert.Equal(t, CallTypeUndecided, c.Type)

	again, created, err := f.svc.CreateInbound(context.Background(), InboundInput{BusinessID: "b1", CallSID: "CA1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, []audit.EventType{audit.EventIncoming}, f.eventTypes(c.ID))
}

func TestMarkAI_NoOwnerPickup(t *testing.T) {
	f := newFixture()
	c := f.inbound(t, "CA1")

	got, changed, err := f.svc.MarkAI(context.Background(), "CA1", map[string]any{"reason": "no-answer"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, CallTypeAI, got.Type)
	assert.Equal(t, CallStatusInProgress, got.Status)
	assert.NotNil(t, got.AnswerTime)
	assert.Equal(t, []audit.EventType{audit.EventIncoming, audit.EventAITakeover}, f.eventTypes(c.ID))

	// Type is written once.
	got, changed, err = f.svc.MarkHuman(context.Background(), "CA1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, CallTypeAI, got.Type)
}

func TestMarkHuman(t *testing.T) {
	f := newFixture()
	f.inbound(t, "CA1")

	got, changed, err := f.svc.MarkHuman(context.Background(), "CA1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, CallTypeHuman, got.Type)
	assert.Equal(t, CallStatusInProgress, got.Status)

	_, changed, err = f.svc.MarkAI(context.Background(), "CA1", nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApplyStatus_TerminalSetsDurationAndCost(t *testing.T) {
	f := newFixture()
	c := f.inbound(t, "CA1")
	f.now = f.now.Add(45 * time.Second)

	got, changed, err := f.svc.ApplyStatus(context.Background(), StatusUpdate{
		CallSID: "CA1", TwilioStatus: "completed", DurationSeconds: ptr(42), Price: ptr(-0.0085),
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, CallStatusCompleted, got.Status)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, 42, *got.DurationSeconds)
	assert.InDelta(t, 0.0085, *got.Cost, 1e-9)
	assert.Equal(t, []audit.EventType{audit.EventIncoming, audit.EventStatusChanged}, f.eventTypes(c.ID))
}

func TestApplyStatus_DurationFallsBackToElapsed(t *testing.T) {
	f := newFixture()
	f.inbound(t, "CA1")
	f.now = f.now.Add(90 * time.Second)

	got, _, err := f.svc.ApplyStatus(context.Background(), StatusUpdate{CallSID: "CA1", TwilioStatus: "no-answer"})
	require.NoError(t, err)
	assert.Equal(t, CallStatusNoAnswer, got.Status)
	assert.Equal(t, 90, *got.DurationSeconds)
	assert.Nil(t, got.Cost)
}

func TestApplyStatus_TerminalIsFinal(t *testing.T) {
	f := newFixture()
	c := f.inbound(t, "CA1")
	ctx := context.Background()

	first, _, err := f.svc.ApplyStatus(ctx, StatusUpdate{CallSID: "CA1", TwilioStatus: "completed", DurationSeconds: ptr(10)})
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	for _, st := range []string{"completed", "failed", "in-progress", "ringing"} {
		got, changed, err := f.svc.ApplyStatus(ctx, StatusUpdate{CallSID: "CA1", TwilioStatus: st, DurationSeconds: ptr(999)})
		require.NoError(t, err)
		assert.False(t, changed, st)
		assert.Equal(t, first, got)
	}
	assert.Len(t, f.eventTypes(c.ID), 2)
}

func TestApplyStatus_NoRegression(t *testing.T) {
	f := newFixture()
	f.inbound(t, "CA1")
	ctx := context.Background()

	_, changed, err := f.svc.ApplyStatus(ctx, StatusUpdate{CallSID: "CA1", TwilioStatus: "in-progress"})
	require.NoError(t, err)
	assert.True(t, changed)

	got, changed, err := f.svc.ApplyStatus(ctx, StatusUpdate{CallSID: "CA1", TwilioStatus: "ringing"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, CallStatusInProgress, got.Status)
}

func TestApplyStatus_UnknownInput(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.ApplyStatus(context.Background(), StatusUpdate{CallSID: "CA1", TwilioStatus: "weird"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = f.svc.ApplyStatus(context.Background(), StatusUpdate{CallSID: "CA404", TwilioStatus: "completed"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetCost_OnlyWhenMissing(t *testing.T) {
	f := newFixture()
	f.inbound(t, "CA1")
	ctx := context.Background()
	_, _, err := f.svc.ApplyStatus(ctx, StatusUpdate{CallSID: "CA1", TwilioStatus: "completed"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetCost(ctx, "CA1", -0.02))
	require.NoError(t, f.svc.SetCost(ctx, "CA1", 5))

	c, err := f.svc.BySID(ctx, "CA1")
	require.NoError(t, err)
	assert.InDelta(t, 0.02, *c.Cost, 1e-9)
}

func TestAttachRecording(t *testing.T) {
	f := newFixture()
	c := f.inbound(t, "CA1")
	ctx := context.Background()
	in := RecordingInput{CallSID: "CA1", RecordingSID: "RE1", RecordingURL: "https://api.twilio.com/RE1", DurationSeconds: ptr(33)}

	got, changed, err := f.svc.AttachRecording(ctx, in)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "RE1", got.RecordingSID)
	assert.Equal(t, 33, *got.DurationSeconds)

	_, changed, err = f.svc.AttachRecording(ctx, in)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []audit.EventType{audit.EventIncoming, audit.EventRecordingCompleted}, f.eventTypes(c.ID))

	_, _, err = f.svc.AttachRecording(ctx, RecordingInput{CallSID: "CA404", RecordingSID: "RE2"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAttachRecording_KeepsStatusDuration(t *testing.T) {
	f := newFixture()
	f.inbound(t, "CA1")
	ctx := context.Background()
	_, _, err := f.svc.ApplyStatus(ctx, StatusUpdate{CallSID: "CA1", TwilioStatus: "completed", DurationSeconds: ptr(60)})
	require.NoError(t, err)

	got, _, err := f.svc.AttachRecording(ctx, RecordingInput{CallSID: "CA1", RecordingSID: "RE1", DurationSeconds: ptr(12)})
	require.NoError(t, err)
	assert.Equal(t, 60, *got.DurationSeconds)
}

func TestMarkFailed(t *testing.T) {
	f := newFixture()
	c := f.inbound(t, "CA1")

	got, changed, err := f.svc.MarkFailed(context.Background(), "CA1", "voice agent", errors.New("boom"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, CallStatusFailed, got.Status)
	assert.Contains(t, f.eventTypes(c.ID), audit.EventUpstreamFailure)
}

func TestGetAndEvents_ScopedToBusiness(t *testing.T) {
	f := newFixture()
	c := f.inbound(t, "CA1")
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "other", c.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.Events(ctx, "other", c.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	evs, err := f.svc.Events(ctx, "b1", c.ID)
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}
