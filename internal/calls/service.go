package calls

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/audit"
	"call-assistant/pkg/logger"
	"call-assistant/pkg/utils"

	"github.com/google/uuid"
)

// EventRecorder is the audit trail the service writes to. Writes join the
// transaction carried by ctx.
type EventRecorder interface {
	Record(ctx context.Context, callID string, typ audit.EventType, data map[string]any) error
	ListByCall(ctx context.Context, callID string) ([]audit.Event, error)
}

type InboundInput struct {
	BusinessID    string
	PhoneNumberID string
	CallSID       string
	From          string
	To            string
}

type StatusUpdate struct {
	CallSID      string
	TwilioStatus string
	// DurationSeconds and Price are Twilio's CallDuration and Price, when sent.
	DurationSeconds *int
	Price           *float64
}

type RecordingInput struct {
	CallSID         string
	RecordingSID    string
	RecordingURL    string
	DurationSeconds *int
}

// Service applies webhook-driven state changes to calls. Every mutation
// locks the call row and appends its audit event in one transaction, so
// out-of-order webhooks for the same call serialize.
type Service struct {
	repo   Repository
	events EventRecorder
	tx     utils.Transactor
	clock  func() time.Time
}

func NewService(repo Repository, events EventRecorder, tx utils.Transactor) *Service {
	if tx == nil {
		tx = utils.NoopTransactor{}
	}
	return &Service{repo: repo, events: events, tx: tx, clock: time.Now}
}

// CreateInbound records a new ringing call. A redelivered webhook for a
// known CallSid returns the existing call with created=false.
func (s *Service) CreateInbound(ctx context.Context, in InboundInput) (Call, bool, error) {
	if strings.TrimSpace(in.CallSID) == "" || in.BusinessID == "" {
		return Call{}, false, apperrors.Validation("call sid and business are required")
	}
	var (
		out     Call
		created bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetBySIDForUpdate(ctx, in.CallSID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		now := s.clock().UTC()
		c := Call{
			ID:            uuid.NewString(),
			BusinessID:    in.BusinessID,
			PhoneNumberID: in.PhoneNumberID,
			TwilioCallSID: in.CallSID,
			CallerNumber:  in.From,
			Type:          CallTypeUndecided,
			Status:        CallStatusRinging,
			StartTime:     now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		if err := s.events.Record(ctx, c.ID, audit.EventIncoming, map[string]any{"from": in.From, "to": in.To}); err != nil {
			return err
		}
		out, created = c, true
		return nil
	})
	if errors.Is(err, ErrDuplicateSID) {
		// Lost the insert race to a concurrent delivery.
		c, gerr := s.repo.GetBySIDForUpdate(ctx, in.CallSID)
		return c, false, gerr
	}
	if err != nil {
		return Call{}, false, err
	}
	if created {
		logger.From(ctx).Info("inbound call recorded", "call_id", out.ID, "call_sid", in.CallSID, "business_id", in.BusinessID)
	}
	return out, created, nil
}

// Note appends an event without changing call state (forwarded, voicemail).
func (s *Service) Note(ctx context.Context, callSID string, typ audit.EventType, data map[string]any) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetBySIDForUpdate(ctx, callSID)
		if err != nil {
			return err
		}
		return s.events.Record(ctx, c.ID, typ, data)
	})
}

// MarkHuman records that the owner picked up. It is a no-op once the call
// type is decided or the call has ended.
func (s *Service) MarkHuman(ctx context.Context, callSID string) (Call, bool, error) {
	return s.mutate(ctx, callSID, func(c *Call, now time.Time) (audit.EventType, map[string]any, bool) {
		if c.Status.IsTerminal() || c.Type != CallTypeUndecided {
			return "", nil, false
		}
		c.Type = CallTypeHuman
		s.answer(c, now)
		return audit.EventAnswered, map[string]any{"answered_by": "owner"}, true
	})
}

// MarkAI hands the call to the voice agent. It is a no-op once the call
// type is decided or the call has ended.
func (s *Service) MarkAI(ctx context.Context, callSID string, data map[string]any) (Call, bool, error) {
	return s.mutate(ctx, callSID, func(c *Call, now time.Time) (audit.EventType, map[string]any, bool) {
		if c.Status.IsTerminal() || c.Type != CallTypeUndecided {
			return "", nil, false
		}
		c.Type = CallTypeAI
		s.answer(c, now)
		return audit.EventAITakeover, data, true
	})
}

// ApplyStatus applies a call-status webhook. Regressions, repeats and any
// update to a terminal call change nothing.
func (s *Service) ApplyStatus(ctx context.Context, u StatusUpdate) (Call, bool, error) {
	to, ok := FromTwilio(u.TwilioStatus)
	if !ok {
		return Call{}, false, apperrors.Validation("unknown call status %q", u.TwilioStatus)
	}
	return s.mutate(ctx, u.CallSID, func(c *Call, now time.Time) (audit.EventType, map[string]any, bool) {
		if !CanTransition(c.Status, to) {
			return "", nil, false
		}
		from := c.Status
		c.Status = to
		if to == CallStatusInProgress && c.AnswerTime == nil {
			c.AnswerTime = &now
		}
		if to.IsTerminal() {
			s.finish(c, now, u.DurationSeconds)
			if u.Price != nil {
				cost := math.Abs(*u.Price)
				c.Cost = &cost
			}
		}
		return audit.EventStatusChanged, map[string]any{
			"from":          string(from),
			"to":            string(to),
			"twilio_status": u.TwilioStatus,
		}, true
	})
}

// MarkFailed ends a call after an upstream failure during a webhook.
func (s *Service) MarkFailed(ctx context.Context, callSID, op string, cause error) (Call, bool, error) {
	return s.mutate(ctx, callSID, func(c *Call, now time.Time) (audit.EventType, map[string]any, bool) {
		if c.Status.IsTerminal() {
			return "", nil, false
		}
		c.Status = CallStatusFailed
		s.finish(c, now, nil)
		data := map[string]any{"op": op}
		if cause != nil {
			data["error"] = cause.Error()
		}
		return audit.EventUpstreamFailure, data, true
	})
}

// SetCost fills in a cost fetched after the call ended. A cost already
// present is kept.
func (s *Service) SetCost(ctx context.Context, callSID string, cost float64) error {
	_, _, err := s.mutate(ctx, callSID, func(c *Call, now time.Time) (audit.EventType, map[string]any, bool) {
		if c.Cost != nil || !c.Status.IsTerminal() {
			return "", nil, false
		}
		v := math.Abs(cost)
		c.Cost = &v
		return "", nil, true
	})
	return err
}

// AttachRecording stores a finished recording. Redelivery of the same
// RecordingSid is a no-op.
func (s *Service) AttachRecording(ctx context.Context, in RecordingInput) (Call, bool, error) {
	return s.mutate(ctx, in.CallSID, func(c *Call, now time.Time) (audit.EventType, map[string]any, bool) {
		if in.RecordingSID != "" && c.RecordingSID == in.RecordingSID {
			return "", nil, false
		}
		c.RecordingSID = in.RecordingSID
		c.RecordingURL = in.RecordingURL
		if c.DurationSeconds == nil && in.DurationSeconds != nil {
			d := *in.DurationSeconds
			c.DurationSeconds = &d
		}
		data := map[string]any{"recording_sid": in.RecordingSID, "recording_url": in.RecordingURL}
		if in.DurationSeconds != nil {
			data["recording_duration"] = *in.DurationSeconds
		}
		return audit.EventRecordingCompleted, data, true
	})
}

// Get returns a call of businessID. Calls of other businesses are NotFound.
func (s *Service) Get(ctx context.Context, businessID, id string) (Call, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Call{}, err
	}
	if c.BusinessID != businessID {
		return Call{}, ErrNotFound
	}
	return c, nil
}

// BySID looks a call up by Twilio CallSid without locking.
func (s *Service) BySID(ctx context.Context, callSID string) (Call, error) {
	return s.repo.GetBySIDForUpdate(ctx, callSID)
}

func (s *Service) List(ctx context.Context, businessID string, f ListFilter) ([]Call, error) {
	return s.repo.ListByBusiness(ctx, businessID, f)
}

func (s *Service) Events(ctx context.Context, businessID, callID string) ([]audit.Event, error) {
	if _, err := s.Get(ctx, businessID, callID); err != nil {
		return nil, err
	}
	return s.events.ListByCall(ctx, callID)
}

// mutate locks the call, lets fn edit it, and persists the change plus an
// optional event. fn returns changed=false to leave the row untouched.
func (s *Service) mutate(ctx context.Context, callSID string, fn func(c *Call, now time.Time) (audit.EventType, map[string]any, bool)) (Call, bool, error) {
	if strings.TrimSpace(callSID) == "" {
		return Call{}, false, apperrors.Validation("call sid is required")
	}
	var (
		out     Call
		changed bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetBySIDForUpdate(ctx, callSID)
		if err != nil {
			return err
		}
		now := s.clock().UTC()
		typ, data, ok := fn(&c, now)
		out = c
		if !ok {
			return nil
		}
		c.UpdatedAt = now
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		if typ != "" {
			if err := s.events.Record(ctx, c.ID, typ, data); err != nil {
				return err
			}
		}
		out, changed = c, true
		return nil
	})
	if err != nil {
		return Call{}, false, err
	}
	return out, changed, nil
}

func (s *Service) answer(c *Call, now time.Time) {
	if CanTransition(c.Status, CallStatusInProgress) {
		c.Status = CallStatusInProgress
	}
	if c.AnswerTime == nil {
		c.AnswerTime = &now
	}
}

// finish sets end time and duration, preferring the provider's duration.
func (s *Service) finish(c *Call, now time.Time, reported *int) {
	c.EndTime = &now
	if reported != nil && *reported >= 0 {
		d := *reported
		c.DurationSeconds = &d
		return
	}
	if c.DurationSeconds == nil {
		d := int(now.Sub(c.StartTime).Seconds())
		if d < 0 {
			d = 0
		}
		c.DurationSeconds = &d
	}
}
