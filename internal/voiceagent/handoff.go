// Package voiceagent hands calls over to the realtime voice agent. Twilio
// opens a media stream to the Bridge, which relays audio to the model; the
// package also guards how many sessions a business may hold.
package voiceagent

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"call-assistant/internal/apiconfig"
)

const DefaultStreamPath = "/webhooks/twilio/ai-media-stream"

// Parameter is a custom stream parameter delivered to the agent in the
// media stream "start" message.
type Parameter struct {
	Name  string
	Value string
}

// Handoff is what the TwiML <Connect><Stream> needs.
type Handoff struct {
	StreamURL  string
	Parameters []Parameter
}

type HandoffInput struct {
	BusinessID          string
	BusinessName        string
	BusinessDescription string
	CallID              string
	CallSID             string
	CallerNumber        string
	Config              apiconfig.Config
}

// Agent builds hand-offs against one public base URL.
type Agent struct {
	streamURL    string
	streamPath   string
	defaultVoice string
	defaultModel string
}

// NewAgent derives the wss:// stream URL from the public http(s) base URL.
func NewAgent(baseURL, streamPath, defaultVoice, defaultModel string) (*Agent, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("voiceagent: invalid base url %q", baseURL)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return nil, fmt.Errorf("voiceagent: unsupported scheme %q", u.Scheme)
	}
	if streamPath == "" {
		streamPath = DefaultStreamPath
	}
	streamPath = "/" + strings.TrimLeft(streamPath, "/")
	u.Path = strings.TrimRight(u.Path, "/") + streamPath
	u.RawQuery = ""
	if defaultVoice == "" {
		defaultVoice = apiconfig.DefaultVoice
	}
	if defaultModel == "" {
		defaultModel = apiconfig.DefaultModel
	}
	return &Agent{streamURL: u.String(), streamPath: streamPath, defaultVoice: defaultVoice, defaultModel: defaultModel}, nil
}

func (a *Agent) StreamURL() string { return a.streamURL }

// StreamPath is the route the Bridge must be mounted on.
func (a *Agent) StreamPath() string { return a.streamPath }

var ErrNoAPIKey = errors.New("voiceagent: api configuration has no key")

// Handoff builds the stream target for a call. The parameters identify the
// call; the Bridge loads the credentials server side so the key never
// passes through Twilio.
func (a *Agent) Handoff(in HandoffInput) (Handoff, error) {
	if in.Config.APIKey == "" {
		return Handoff{}, ErrNoAPIKey
	}
	voice := in.Config.Voice
	if voice == "" {
		voice = a.defaultVoice
	}
	model := in.Config.Model
	if model == "" {
		model = a.defaultModel
	}
	return Handoff{
		StreamURL: a.streamURL,
		Parameters: []Parameter{
			{Name: "business_id", Value: in.BusinessID},
			{Name: "business_name", Value: in.BusinessName},
			{Name: "business_description", Value: in.BusinessDescription},
			{Name: "call_id", Value: in.CallID},
			{Name: "call_sid", Value: in.CallSID},
			{Name: "caller_number", Value: in.CallerNumber},
			{Name: "voice", Value: voice},
			{Name: "model", Value: model},
		},
	}, nil
}
