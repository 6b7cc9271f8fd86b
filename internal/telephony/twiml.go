package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.
type TwiML struct {
	verbs []any
	err   error
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlDial struct {
	XMLName                 xml.Name    `xml:"Dial"`
	Timeout                 int         `xml:"timeout,attr,omitempty"`
	Action                  string      `xml:"action,attr,omitempty"`
	Method                  string      `xml:"method,attr,omitempty"`
	Record                  string      `xml:"record,attr,omitempty"`
	RecordingStatusCallback string      `xml:"recordingStatusCallback,attr,omitempty"`
	Number                  twimlNumber `xml:"Number"`
}

type twimlNumber struct {
	URL    string `xml:"url,attr,omitempty"`
	Method string `xml:"method,attr,omitempty"`
	Number string `xml:",chardata"`
}

type twimlConnect struct {
	XMLName xml.Name    `xml:"Connect"`
	Stream  twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type twimlRecord struct {
	XMLName                 xml.Name `xml:"Record"`
	Action                  string   `xml:"action,attr,omitempty"`
	Method                  string   `xml:"method,attr,omitempty"`
	MaxLength               int      `xml:"maxLength,attr,omitempty"`
	PlayBeep                bool     `xml:"playBeep,attr"`
	RecordingStatusCallback string   `xml:"recordingStatusCallback,attr,omitempty"`
}

// Dial bridges the caller to a single number.
type Dial struct {
	Number         string
	TimeoutSeconds int
	// Action receives DialCallStatus once the dialed leg ends.
	Action string
	// AnswerURL runs on the dialed leg when it picks up.
	AnswerURL               string
	Record                  bool
	RecordingStatusCallback string
}

type Record struct {
	Action                  string
	MaxLengthSeconds        int
	RecordingStatusCallback string
}

// StreamParam is a <Parameter> delivered in the media stream start message.
type StreamParam struct {
	Name  string
	Value string
}

func NewTwiML() *TwiML { return &TwiML{} }

// Say is skipped when text is blank.
func (t *TwiML) Say(text string) *TwiML {
	if text = strings.TrimSpace(text); text != "" {
		t.verbs = append(t.verbs, twimlSay{Text: text})
	}
	return t
}

func (t *TwiML) Dial(d Dial) *TwiML {
	if strings.TrimSpace(d.Number) == "" {
		t.fail(errors.New("telephony: dial requires a number"))
		return t
	}
	v := twimlDial{
		Timeout: d.TimeoutSeconds,
		Action:  d.Action,
		Number:  twimlNumber{URL: d.AnswerURL, Number: d.Number},
	}
	if d.Action != "" {
		v.Method = "POST"
	}
	if d.AnswerURL != "" {
		v.Number.Method = "POST"
	}
	if d.Record {
		v.Record = "record-from-answer"
		v.RecordingStatusCallback = d.RecordingStatusCallback
	}
	t.verbs = append(t.verbs, v)
	return t
}

func (t *TwiML) Stream(url string, params []StreamParam) *TwiML {
	if strings.TrimSpace(url) == "" {
		t.fail(errors.New("telephony: stream requires a url"))
		return t
	}
	s := twimlStream{URL: url}
	for _, p := range params {
		s.Parameters = append(s.Parameters, twimlParameter{Name: p.Name, Value: p.Value})
	}
	t.verbs = append(t.verbs, twimlConnect{Stream: s})
	return t
}

func (t *TwiML) Record(r Record) *TwiML {
	v := twimlRecord{
		Action:                  r.Action,
		MaxLength:               r.MaxLengthSeconds,
		PlayBeep:                true,
		RecordingStatusCallback: r.RecordingStatusCallback,
	}
	if r.Action != "" {
		v.Method = "POST"
	}
	t.verbs = append(t.verbs, v)
	return t
}

func (t *TwiML) Hangup() *TwiML {
	t.verbs = append(t.verbs, twimlHangup{})
	return t
}

func (t *TwiML) Reject(reason string) *TwiML {
	t.verbs = append(t.verbs, twimlReject{Reason: reason})
	return t
}

func (t *TwiML) fail(err error) {
	if t.err == nil {
		t.err = err
	}
}

// Render returns the XML document. An empty builder renders <Response/>.
func (t *TwiML) Render() (string, error) {
	if t.err != nil {
		return "", t.err
	}
	r := twimlResponse{Verbs: t.verbs}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ErrorTwiML is spoken when a call cannot be handled at all.
func ErrorTwiML() string {
	out, err := NewTwiML().
		Say("We're sorry, this number is not available right now. Goodbye.").
		Hangup().
		Render()
	if err != nil {
		return xml.Header + "<Response><Hangup></Hangup></Response>"
	}
	return out
}
