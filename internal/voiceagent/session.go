package voiceagent

import (
	"context"
	"errors"
	"fmt"

	"call-assistant/internal/apiconfig"
	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
)

// ErrStreamRejected means the stream names a call that is not an active AI call.
var ErrStreamRejected = errors.New("voiceagent: stream does not belong to an active ai call")

// Session is everything the bridge needs to speak for a business on one call.
type Session struct {
	CallID       string
	CallSID      string
	CallerNumber string
	BusinessName string
	Description  string
	Instructions string
	Voice        string
	Model        string
	APIKey       string
}

// SessionSource resolves the CallSid from a stream "start" message.
type SessionSource interface {
	StreamSession(ctx context.Context, callSID string) (Session, error)
}

type CallLookup interface {
	BySID(ctx context.Context, callSID string) (calls.Call, error)
}

type BusinessLookup interface {
	GetByID(ctx context.Context, id string) (businesses.Business, error)
}

type ConfigLookup interface {
	Active(ctx context.Context, businessID string) (apiconfig.Config, error)
}

// Resolver builds sessions from stored calls. A media stream is accepted
// only while its call is marked ai and not yet terminal, which is what lets
// the stream route stay outside the signed webhook group.
type Resolver struct {
	Calls      CallLookup
	Businesses BusinessLookup
	Configs    ConfigLookup

	DefaultVoice string
	DefaultModel string
}

func (r Resolver) StreamSession(ctx context.Context, callSID string) (Session, error) {
	if callSID == "" {
		return Session{}, ErrStreamRejected
	}
	call, err := r.Calls.BySID(ctx, callSID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			return Session{}, ErrStreamRejected
		}
		return Session{}, err
	}
	if call.Type != calls.CallTypeAI || call.Status.IsTerminal() {
		return Session{}, ErrStreamRejected
	}

	biz, err := r.Businesses.GetByID(ctx, call.BusinessID)
	if err != nil {
		return Session{}, fmt.Errorf("voiceagent: load business: %w", err)
	}
	cfg, err := r.Configs.Active(ctx, call.BusinessID)
	if err != nil {
		return Session{}, fmt.Errorf("voiceagent: load api configuration: %w", err)
	}
	if !cfg.IsActive || cfg.APIKey == "" {
		return Session{}, ErrNoAPIKey
	}

	s := Session{
		CallID:       call.ID,
		CallSID:      call.TwilioCallSID,
		CallerNumber: call.CallerNumber,
		BusinessName: biz.BusinessName,
		Description:  biz.Description,
		Instructions: cfg.Instructions,
		Voice:        cfg.Voice,
		Model:        cfg.Model,
		APIKey:       cfg.APIKey,
	}
	if s.Voice == "" {
		s.Voice = r.DefaultVoice
	}
	if s.Voice == "" {
		s.Voice = apiconfig.DefaultVoice
	}
	if s.Model == "" {
		s.Model = r.DefaultModel
	}
	if s.Model == "" {
		s.Model = apiconfig.DefaultModel
	}
	return s, nil
}
