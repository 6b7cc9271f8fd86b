package telephony

import (
	"net/http"
	"strconv"
	"strings"

	"call-assistant/pkg/utils"
)

// Twilio posts application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/usage/webhooks/voice-webhooks
//
// Parsers are provider-adapter-only; no routing decisions are made here.

type InboundForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	CallStatus string
	Direction  string
}

type StatusForm struct {
	CallSid    string
	CallStatus string
	// CallDuration is only sent on the final callback.
	CallDuration *int
	Price        *float64
}

type DialResultForm struct {
	CallSid        string
	DialCallStatus string
	DialCallSid    string
}

type RecordingForm struct {
	CallSid           string
	RecordingSid      string
	RecordingURL      string
	RecordingStatus   string
	RecordingDuration *int
}

func ParseInboundCall(r *http.Request) (InboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return InboundForm{}, err
	}
	return InboundForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid: strings.TrimSpace(r.PostFormValue("AccountSid")),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		CallStatus: strings.TrimSpace(r.PostFormValue("CallStatus")),
		Direction:  strings.TrimSpace(r.PostFormValue("Direction")),
	}, nil
}

func ParseCallStatus(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	f := StatusForm{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus:   strings.TrimSpace(r.PostFormValue("CallStatus")),
		CallDuration: optionalInt(r.PostFormValue("CallDuration")),
	}
	if p, ok := ParsePrice(r.PostFormValue("Price")); ok {
		f.Price = &p
	}
	return f, nil
}

// ParseDialResult reads the <Dial action> callback. The owner-answered
// callback carries call_sid on the query string because it runs on the
// dialed leg.
func ParseDialResult(r *http.Request) (DialResultForm, error) {
	if err := r.ParseForm(); err != nil {
		return DialResultForm{}, err
	}
	sid := strings.TrimSpace(r.URL.Query().Get("call_sid"))
	if sid == "" {
		sid = strings.TrimSpace(r.PostFormValue("CallSid"))
	}
	return DialResultForm{
		CallSid:        sid,
		DialCallStatus: strings.TrimSpace(r.PostFormValue("DialCallStatus")),
		DialCallSid:    strings.TrimSpace(r.PostFormValue("DialCallSid")),
	}, nil
}

func ParseRecording(r *http.Request) (RecordingForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingForm{}, err
	}
	return RecordingForm{
		CallSid:           strings.TrimSpace(r.PostFormValue("CallSid")),
		RecordingSid:      strings.TrimSpace(r.PostFormValue("RecordingSid")),
		RecordingURL:      strings.TrimSpace(r.PostFormValue("RecordingUrl")),
		RecordingStatus:   strings.TrimSpace(r.PostFormValue("RecordingStatus")),
		RecordingDuration: optionalInt(r.PostFormValue("RecordingDuration")),
	}, nil
}

// DialAnswered reports whether the owner's leg connected.
func DialAnswered(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "answered":
		return true
	default:
		return false
	}
}

// normalizePhone keeps values Twilio sends that are not numbers
// ("anonymous", empty) as-is.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if n, err := utils.NormalizeE164(s); err == nil {
		return n
	}
	return s
}

func optionalInt(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
