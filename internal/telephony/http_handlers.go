package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"call-assistant/internal/apiconfig"
	"call-assistant/internal/apperrors"
	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
	"call-assistant/internal/metrics"
	"call-assistant/internal/routing"
	"call-assistant/internal/settings"
	"call-assistant/internal/voiceagent"
	"call-assistant/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	WebhookPrefix = "/webhooks/twilio"

	voicemailMaxSeconds = 120
	costFetchTimeout    = 30 * time.Second
)

// Lines resolves the dialed number to the business that owns it.
type Lines interface {
	ResolveLine(ctx context.Context, dialed string) (Line, error)
}

type Businesses interface {
	GetByID(ctx context.Context, id string) (businesses.Business, error)
}

type SettingsSource interface {
	Effective(ctx context.Context, businessID string) settings.Settings
}

type AIConfigs interface {
	Active(ctx context.Context, businessID string) (apiconfig.Config, error)
}

// Notifier is told about calls that reached a terminal status.
type Notifier interface {
	CallCompleted(ctx context.Context, c calls.Call)
}

// Submitter runs work off the request goroutine (an ants pool).
type Submitter interface {
	Submit(task func()) error
}

// WebhookHandler converts Twilio voice webhooks to internal types,
// delegates the decision to the routing engine, and writes TwiML.
//
// Every outcome answers 200 with TwiML so Twilio never plays its own
// error message; only signature failures (see SignatureValidator) differ.
type WebhookHandler struct {
	Lines      Lines
	Businesses Businesses
	Settings   SettingsSource
	AIConfigs  AIConfigs
	Calls      *calls.Service
	Engine     routing.Engine
	Agent      *voiceagent.Agent
	Limiter    voiceagent.Limiter
	Provider   Provider
	Deduper    Deduper
	Notifier   Notifier
	Async      Submitter

	// InboundLimit throttles new calls only. Follow-up callbacks for a call
	// already admitted must always be applied.
	InboundLimit gin.HandlerFunc

	// BaseURL makes callback URLs absolute; empty keeps them relative to
	// the webhook being answered.
	BaseURL string
}

func (h *WebhookHandler) Register(rg *gin.RouterGroup) {
	incoming := []gin.HandlerFunc{h.IncomingCall}
	if h.InboundLimit != nil {
		incoming = append([]gin.HandlerFunc{h.InboundLimit}, incoming...)
	}
	rg.POST("/incoming-call", incoming...)
	rg.POST("/owner-answered", h.OwnerAnswered)
	rg.POST("/dial-result", h.DialResult)
	rg.POST("/ai-handoff", h.AIHandoff)
	rg.POST("/call-status", h.CallStatus)
	rg.POST("/recording-complete", h.RecordingComplete)
	rg.POST("/recording-status", h.RecordingStatus)
}

func (h *WebhookHandler) IncomingCall(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	form, err := ParseInboundCall(c.Request)
	if err != nil || form.CallSid == "" || form.To == "" {
		log.Warn("incoming call missing fields", "call_sid", form.CallSid, "to", form.To, "err", err)
		h.writeError(c, "incoming_call", "invalid")
		return
	}

	line, err := h.Lines.ResolveLine(ctx, form.To)
	if err != nil {
		log.Warn("incoming call to unknown number", "to", form.To, "err", err)
		h.writeError(c, "incoming_call", "unknown_number")
		return
	}
	biz, err := h.Businesses.GetByID(ctx, line.BusinessID)
	if err != nil || !biz.IsActive {
		log.Warn("incoming call for unavailable business", "business_id", line.BusinessID, "err", err)
		h.writeError(c, "incoming_call", "business_unavailable")
		return
	}

	call, created, err := h.Calls.CreateInbound(ctx, calls.InboundInput{
		BusinessID:    biz.ID,
		PhoneNumberID: line.PhoneNumberID,
		CallSID:       form.CallSid,
		From:          form.From,
		To:            line.Number,
	})
	if err != nil {
		log.Error("create inbound call failed", "call_sid", form.CallSid, "err", err)
		h.writeError(c, "incoming_call", "error")
		return
	}

	h.respond(c, "incoming_call", call, biz, routing.StageInbound, created)
}

// OwnerAnswered runs on the owner's leg when they pick up. An empty
// response lets Twilio bridge the legs.
func (h *WebhookHandler) OwnerAnswered(c *gin.Context) {
	log := logger.FromGin(c)
	form, err := ParseDialResult(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("owner answered without call sid", "err", err)
		h.write(c, "owner_answered", "invalid", NewTwiML())
		return
	}
	if _, _, err := h.Calls.MarkHuman(c.Request.Context(), form.CallSid); err != nil {
		log.Warn("mark human failed", "call_sid", form.CallSid, "err", err)
		h.write(c, "owner_answered", outcomeOf(err), NewTwiML())
		return
	}
	h.write(c, "owner_answered", "ok", NewTwiML())
}

// DialResult is the <Dial action> callback. Anything but a connected owner
// leg falls back to the voice agent or voicemail.
func (h *WebhookHandler) DialResult(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	form, err := ParseDialResult(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("dial result without call sid", "err", err)
		h.writeError(c, "dial_result", "invalid")
		return
	}
	if DialAnswered(form.DialCallStatus) {
		if _, _, err := h.Calls.MarkHuman(ctx, form.CallSid); err != nil {
			log.Warn("mark human failed", "call_sid", form.CallSid, "err", err)
		}
		h.write(c, "dial_result", "answered", NewTwiML().Hangup())
		return
	}
	log.Info("owner did not answer", "call_sid", form.CallSid, "dial_status", form.DialCallStatus)
	h.fallback(c, "dial_result", form.CallSid)
}

// AIHandoff moves a call into the voice agent on an explicit <Redirect>.
func (h *WebhookHandler) AIHandoff(c *gin.Context) {
	form, err := ParseInboundCall(c.Request)
	sid := strings.TrimSpace(c.Query("call_sid"))
	if err == nil && sid == "" {
		sid = form.CallSid
	}
	if sid == "" {
		logger.FromGin(c).Warn("ai handoff without call sid", "err", err)
		h.writeError(c, "ai_handoff", "invalid")
		return
	}
	h.fallback(c, "ai_handoff", sid)
}

func (h *WebhookHandler) CallStatus(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	form, err := ParseCallStatus(c.Request)
	if err != nil || form.CallSid == "" || form.CallStatus == "" {
		log.Warn("call status missing fields", "call_sid", form.CallSid, "err", err)
		h.write(c, "call_status", "invalid", NewTwiML())
		return
	}

	first, err := h.deduper().First(ctx, form.CallSid, form.CallStatus)
	if err != nil {
		log.Warn("status dedupe unavailable", "err", err)
		first = true
	}
	if !first {
		h.write(c, "call_status", "duplicate", NewTwiML())
		return
	}

	call, changed, err := h.Calls.ApplyStatus(ctx, calls.StatusUpdate{
		CallSID:         form.CallSid,
		TwilioStatus:    form.CallStatus,
		DurationSeconds: form.CallDuration,
		Price:           form.Price,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
			log.Info("call status ignored", "call_sid", form.CallSid, "status", form.CallStatus, "err", err)
		} else {
			log.Error("apply call status failed", "call_sid", form.CallSid, "err", err)
		}
		h.write(c, "call_status", outcomeOf(err), NewTwiML())
		return
	}
	if changed && call.Status.IsTerminal() {
		h.finished(ctx, call)
	}
	h.write(c, "call_status", "ok", NewTwiML())
}

// RecordingComplete is the <Record action> and the recording callback of
// forwarded calls. The Hangup ends a voicemail.
func (h *WebhookHandler) RecordingComplete(c *gin.Context) {
	log := logger.FromGin(c)
	form, err := ParseRecording(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("recording without call sid", "err", err)
		h.write(c, "recording_complete", "invalid", NewTwiML().Hangup())
		return
	}
	if form.RecordingURL == "" {
		h.write(c, "recording_complete", "empty", NewTwiML().Hangup())
		return
	}
	_, changed, err := h.Calls.AttachRecording(c.Request.Context(), calls.RecordingInput{
		CallSID:         form.CallSid,
		RecordingSID:    form.RecordingSid,
		RecordingURL:    form.RecordingURL,
		DurationSeconds: form.RecordingDuration,
	})
	if err != nil {
		log.Warn("attach recording failed", "call_sid", form.CallSid, "err", err)
		h.write(c, "recording_complete", outcomeOf(err), NewTwiML().Hangup())
		return
	}
	outcome := "ok"
	if !changed {
		outcome = "duplicate"
	}
	h.write(c, "recording_complete", outcome, NewTwiML().Hangup())
}

func (h *WebhookHandler) RecordingStatus(c *gin.Context) {
	form, err := ParseRecording(c.Request)
	logger.FromGin(c).Info("recording status",
		"call_sid", form.CallSid,
		"recording_sid", form.RecordingSid,
		"status", form.RecordingStatus,
		"err", err,
	)
	h.write(c, "recording_status", "ok", NewTwiML())
}

// fallback re-routes a known call after its owner leg did not connect.
func (h *WebhookHandler) fallback(c *gin.Context, hook, callSID string) {
	ctx := c.Request.Context()
	call, err := h.Calls.BySID(ctx, callSID)
	if err != nil {
		logger.FromGin(c).Warn("fallback for unknown call", "call_sid", callSID, "err", err)
		h.writeError(c, hook, outcomeOf(err))
		return
	}
	biz, err := h.Businesses.GetByID(ctx, call.BusinessID)
	if err != nil {
		logger.FromGin(c).Error("load business failed", "business_id", call.BusinessID, "err", err)
		h.writeError(c, hook, "error")
		return
	}
	h.respond(c, hook, call, biz, routing.StageOwnerUnanswered, true)
}

// respond routes call and writes the TwiML. fresh is false for a
// redelivered inbound webhook, whose events are already recorded.
func (h *WebhookHandler) respond(c *gin.Context, hook string, call calls.Call, biz businesses.Business, stage routing.Stage, fresh bool) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	tw, err := h.route(ctx, call, biz, stage, fresh)
	if err != nil {
		log.Error("route call failed", "call_sid", call.TwilioCallSID, "err", err)
		if _, _, ferr := h.Calls.MarkFailed(ctx, call.TwilioCallSID, "route", err); ferr != nil {
			log.Warn("mark failed", "call_sid", call.TwilioCallSID, "err", ferr)
		}
		h.writeError(c, hook, "error")
		return
	}
	h.write(c, hook, "ok", tw)
}

func (h *WebhookHandler) route(ctx context.Context, call calls.Call, biz businesses.Business, stage routing.Stage, fresh bool) (*TwiML, error) {
	if call.Status.IsTerminal() {
		return NewTwiML().Hangup(), nil
	}
	cfg, aiReady := h.aiConfig(ctx, biz.ID)
	switch call.Type {
	case calls.CallTypeHuman:
		return NewTwiML().Hangup(), nil
	case calls.CallTypeAI:
		// Already handed over; the slot is held from the first delivery.
		ho, err := h.handoff(call, biz, cfg)
		if err != nil {
			return nil, err
		}
		return NewTwiML().Stream(ho.StreamURL, streamParams(ho)), nil
	}

	in := routing.Input{
		Stage:          stage,
		BusinessActive: biz.IsActive,
		BusinessName:   biz.BusinessName,
		OwnerPhone:     biz.OwnerPhone,
		Settings:       h.Settings.Effective(ctx, biz.ID),
		AIAvailable:    aiReady,
	}
	d, err := h.decide(ctx, biz.ID, in)
	if err != nil {
		return nil, err
	}
	metrics.RoutingDecisionsTotal.WithLabelValues(string(d.Action), d.Reason).Inc()
	logger.From(ctx).Info("call routed",
		"call_sid", call.TwilioCallSID,
		"business_id", biz.ID,
		"stage", string(stage),
		"action", string(d.Action),
		"reason", d.Reason,
	)

	switch d.Action {
	case routing.ActionForward:
		h.note(ctx, call, d, fresh)
		return NewTwiML().Say(d.Greeting).Dial(Dial{
			Number:                  d.ConnectTo,
			TimeoutSeconds:          d.TimeoutSeconds,
			Action:                  h.url("/dial-result"),
			AnswerURL:               h.url("/owner-answered") + "?call_sid=" + url.QueryEscape(call.TwilioCallSID),
			Record:                  d.Record,
			RecordingStatusCallback: h.url("/recording-complete"),
		}), nil
	case routing.ActionAI:
		tw, ok, err := h.takeover(ctx, call, biz, cfg, d)
		if err != nil || ok {
			return tw, err
		}
		// Hand-off could not be built; voicemail instead.
		in.AIAvailable = false
		if d, err = h.Engine.Route(ctx, in); err != nil {
			return nil, err
		}
		return h.voicemail(ctx, call, d, fresh), nil
	case routing.ActionVoicemail:
		return h.voicemail(ctx, call, d, fresh), nil
	case routing.ActionReject:
		if stage == routing.StageInbound {
			return NewTwiML().Reject("rejected"), nil
		}
		return NewTwiML().Hangup(), nil
	default:
		return nil, errors.New("telephony: unknown routing action " + string(d.Action))
	}
}

// decide asks the engine and reserves an AI session for an AI decision.
// A full cap re-routes without AI; a limiter error fails open.
func (h *WebhookHandler) decide(ctx context.Context, businessID string, in routing.Input) (routing.Decision, error) {
	d, err := h.Engine.Route(ctx, in)
	if err != nil || d.Action != routing.ActionAI {
		return d, err
	}
	ok, err := h.Limiter.Acquire(ctx, businessID)
	if err != nil {
		logger.From(ctx).Warn("ai session limiter unavailable", "business_id", businessID, "err", err)
		return d, nil
	}
	if ok {
		return d, nil
	}
	in.AIAvailable = false
	d, err = h.Engine.Route(ctx, in)
	if err != nil {
		return d, err
	}
	d.Reason = "ai_at_capacity"
	return d, nil
}

// takeover marks the call as AI and builds the stream. ok=false means the
// hand-off could not be built and the reserved slot was returned.
func (h *WebhookHandler) takeover(ctx context.Context, call calls.Call, biz businesses.Business, cfg apiconfig.Config, d routing.Decision) (*TwiML, bool, error) {
	ho, err := h.handoff(call, biz, cfg)
	if err != nil {
		logger.From(ctx).Warn("voice agent hand-off unavailable", "call_sid", call.TwilioCallSID, "err", err)
		h.release(ctx, biz.ID)
		return nil, false, nil
	}

	_, data := d.Event()
	data["model"] = cfg.Model
	data["voice"] = cfg.Voice
	updated, changed, err := h.Calls.MarkAI(ctx, call.TwilioCallSID, data)
	if err != nil {
		h.release(ctx, biz.ID)
		return nil, true, err
	}
	if !changed {
		// A concurrent delivery decided first and holds its own slot.
		h.release(ctx, biz.ID)
		if updated.Type != calls.CallTypeAI || updated.Status.IsTerminal() {
			return NewTwiML().Hangup(), true, nil
		}
	}
	return NewTwiML().Say(d.Greeting).Stream(ho.StreamURL, streamParams(ho)), true, nil
}

func (h *WebhookHandler) voicemail(ctx context.Context, call calls.Call, d routing.Decision, fresh bool) *TwiML {
	h.note(ctx, call, d, fresh)
	return NewTwiML().
		Say(d.Greeting).
		Record(Record{
			Action:                  h.url("/recording-complete"),
			MaxLengthSeconds:        voicemailMaxSeconds,
			RecordingStatusCallback: h.url("/recording-status"),
		}).
		Hangup()
}

func (h *WebhookHandler) note(ctx context.Context, call calls.Call, d routing.Decision, fresh bool) {
	if !fresh {
		return
	}
	typ, data := d.Event()
	if typ == "" {
		return
	}
	if err := h.Calls.Note(ctx, call.TwilioCallSID, typ, data); err != nil {
		logger.From(ctx).Warn("record call event failed", "call_sid", call.TwilioCallSID, "event", string(typ), "err", err)
	}
}

func (h *WebhookHandler) handoff(call calls.Call, biz businesses.Business, cfg apiconfig.Config) (voiceagent.Handoff, error) {
	if h.Agent == nil {
		return voiceagent.Handoff{}, errors.New("telephony: voice agent not configured")
	}
	return h.Agent.Handoff(voiceagent.HandoffInput{
		BusinessID:          biz.ID,
		BusinessName:        biz.BusinessName,
		BusinessDescription: biz.Description,
		CallID:              call.ID,
		CallSID:             call.TwilioCallSID,
		CallerNumber:        call.CallerNumber,
		Config:              cfg,
	})
}

func (h *WebhookHandler) aiConfig(ctx context.Context, businessID string) (apiconfig.Config, bool) {
	if h.AIConfigs == nil {
		return apiconfig.Config{}, false
	}
	cfg, err := h.AIConfigs.Active(ctx, businessID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.From(ctx).Warn("load api configuration failed", "business_id", businessID, "err", err)
		}
		return apiconfig.Config{}, false
	}
	return cfg, cfg.IsActive && cfg.APIKey != ""
}

// finished runs the after-call work of a terminal status change. When the
// status callback carried no price, the notification waits for the fetch so
// subscribers see the cost.
func (h *WebhookHandler) finished(ctx context.Context, call calls.Call) {
	if call.Type == calls.CallTypeAI {
		h.release(ctx, call.BusinessID)
	}
	bg := context.WithoutCancel(ctx)
	if call.Cost == nil && h.Provider != nil {
		h.submit(bg, "fetch_cost", func() {
			h.notify(bg, h.fetchCost(bg, call))
		})
		return
	}
	h.notify(bg, call)
}

func (h *WebhookHandler) notify(ctx context.Context, call calls.Call) {
	if h.Notifier != nil {
		h.Notifier.CallCompleted(ctx, call)
	}
}

// fetchCost is best-effort; on failure the call keeps an empty cost.
// It returns the call as stored after the update.
func (h *WebhookHandler) fetchCost(ctx context.Context, call calls.Call) calls.Call {
	ctx, cancel := context.WithTimeout(ctx, costFetchTimeout)
	defer cancel()
	log := logger.From(ctx)
	sid := call.TwilioCallSID

	cdr, err := h.Provider.FetchCDR(ctx, sid)
	if err != nil {
		log.Warn("fetch call cost failed", "call_sid", sid, "err", err)
		return call
	}
	if cdr.Price == nil {
		return call
	}
	if err := h.Calls.SetCost(ctx, sid, *cdr.Price); err != nil {
		log.Warn("store call cost failed", "call_sid", sid, "err", err)
		return call
	}
	if fresh, err := h.Calls.BySID(ctx, sid); err == nil {
		return fresh
	}
	return call
}

func (h *WebhookHandler) submit(ctx context.Context, name string, task func()) {
	if h.Async == nil {
		task()
		return
	}
	if err := h.Async.Submit(task); err != nil {
		logger.From(ctx).Warn("background task dropped", "task", name, "err", err)
	}
}

func (h *WebhookHandler) release(ctx context.Context, businessID string) {
	if h.Limiter == nil {
		return
	}
	if err := h.Limiter.Release(ctx, businessID); err != nil {
		logger.From(ctx).Warn("release ai session failed", "business_id", businessID, "err", err)
	}
}

func (h *WebhookHandler) deduper() Deduper {
	if h.Deduper == nil {
		return NoopDeduper{}
	}
	return h.Deduper
}

func (h *WebhookHandler) url(path string) string {
	return strings.TrimRight(h.BaseURL, "/") + WebhookPrefix + path
}

func (h *WebhookHandler) write(c *gin.Context, hook, outcome string, tw *TwiML) {
	out, err := tw.Render()
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "webhook", hook, "err", err)
		h.writeError(c, hook, "render_failed")
		return
	}
	metrics.WebhooksTotal.WithLabelValues(hook, outcome).Inc()
	c.Data(http.StatusOK, "application/xml", []byte(out))
}

func (h *WebhookHandler) writeError(c *gin.Context, hook, outcome string) {
	metrics.WebhooksTotal.WithLabelValues(hook, outcome).Inc()
	c.Data(http.StatusOK, "application/xml", []byte(ErrorTwiML()))
}

func streamParams(ho voiceagent.Handoff) []StreamParam {
	out := make([]StreamParam, 0, len(ho.Parameters))
	for _, p := range ho.Parameters {
		out = append(out, StreamParam{Name: p.Name, Value: p.Value})
	}
	return out
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
