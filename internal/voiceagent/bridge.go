package voiceagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"call-assistant/internal/metrics"
	"call-assistant/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	DefaultRealtimeURL = "wss://api.openai.com/v1/realtime"

	startTimeout = 10 * time.Second
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// twilioFrame covers the media stream events read from and written to Twilio.
type twilioFrame struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid,omitempty"`
	Start     *streamStart `json:"start,omitempty"`
	Media     *streamMedia `json:"media,omitempty"`
}

type streamStart struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

type streamMedia struct {
	Track   string `json:"track,omitempty"`
	Payload string `json:"payload"`
}

// realtimeEvent is the subset of model events the bridge acts on.
type realtimeEvent struct {
	Type       string          `json:"type"`
	Delta      string          `json:"delta,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Error      json.RawMessage `json:"error,omitempty"`
}

// Bridge serves the websocket Twilio opens for <Connect><Stream> and relays
// audio between the caller and the realtime model. Both legs carry base64
// G.711 u-law, so payloads pass through untouched.
type Bridge struct {
	sessions    SessionSource
	realtimeURL string
	dialer      *websocket.Dialer
	upgrader    websocket.Upgrader
}

func NewBridge(sessions SessionSource, realtimeURL string) (*Bridge, error) {
	if realtimeURL == "" {
		realtimeURL = DefaultRealtimeURL
	}
	u, err := url.Parse(realtimeURL)
	if err != nil || u.Host == "" || (u.Scheme != "wss" && u.Scheme != "ws") {
		return nil, fmt.Errorf("voiceagent: invalid realtime url %q", realtimeURL)
	}
	return &Bridge{
		sessions:    sessions,
		realtimeURL: u.String(),
		dialer:      &websocket.Dialer{HandshakeTimeout: dialTimeout, Proxy: http.ProxyFromEnvironment},
	}, nil
}

func (b *Bridge) Handle(c *gin.Context) {
	log := logger.FromGin(c)
	caller, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		log.Warn("media stream upgrade failed", "err", err)
		return
	}
	defer caller.Close()

	outcome := b.serve(c.Request.Context(), caller, log)
	metrics.AISessionsTotal.WithLabelValues(outcome).Inc()
}

func (b *Bridge) serve(ctx context.Context, caller *websocket.Conn, log *slog.Logger) string {
	start, err := awaitStart(caller)
	if err != nil {
		log.Warn("media stream closed before start", "err", err)
		return "no_start"
	}
	log = log.With("call_sid", start.CallSid, "stream_sid", start.StreamSid)

	sess, err := b.sessions.StreamSession(ctx, start.CallSid)
	if err != nil {
		log.Warn("media stream rejected", "err", err)
		closeWith(caller, websocket.ClosePolicyViolation, "call is not handled by the voice agent")
		return "rejected"
	}

	model, err := b.dial(ctx, sess)
	if err != nil {
		log.Error("realtime connect failed", "err", err)
		closeWith(caller, websocket.CloseTryAgainLater, "voice agent unavailable")
		return "upstream_error"
	}
	defer model.Close()

	if err := configure(model, sess); err != nil {
		log.Error("realtime session setup failed", "err", err)
		return "upstream_error"
	}

	metrics.AISessionsActive.Inc()
	defer metrics.AISessionsActive.Dec()
	log.Info("ai media stream bridged", "model", sess.Model)

	errc := make(chan error, 2)
	go func() { errc <- pumpCaller(caller, model) }()
	go func() { errc <- pumpModel(model, caller, start.StreamSid, log) }()

	err = <-errc
	// Closing both legs unblocks the other pump.
	_ = caller.Close()
	_ = model.Close()
	<-errc

	if err != nil {
		log.Warn("ai media stream ended with error", "err", err)
		return "error"
	}
	log.Info("ai media stream ended")
	return "completed"
}

func (b *Bridge) dial(ctx context.Context, s Session) (*websocket.Conn, error) {
	u, err := url.Parse(b.realtimeURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("model", s.Model)
	u.RawQuery = q.Encode()

	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.APIKey)
	h.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := b.dialer.DialContext(ctx, u.String(), h)
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}
	return conn, nil
}

// awaitStart skips "connected" and anything else Twilio sends first.
func awaitStart(conn *websocket.Conn) (streamStart, error) {
	_ = conn.SetReadDeadline(time.Now().Add(startTimeout))
	defer conn.SetReadDeadline(time.Time{})
	for {
		var f twilioFrame
		if err := conn.ReadJSON(&f); err != nil {
			return streamStart{}, err
		}
		if f.Event != "start" || f.Start == nil {
			continue
		}
		if f.Start.StreamSid == "" {
			f.Start.StreamSid = f.StreamSid
		}
		return *f.Start, nil
	}
}

func configure(model *websocket.Conn, s Session) error {
	update := map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"modalities":                []string{"text", "audio"},
			"instructions":              Instructions(s),
			"voice":                     s.Voice,
			"input_audio_format":        "g711_ulaw",
			"output_audio_format":       "g711_ulaw",
			"input_audio_transcription": map[string]string{"model": "whisper-1"},
			"turn_detection": map[string]any{
				"type":                "server_vad",
				"threshold":           0.5,
				"prefix_padding_ms":   300,
				"silence_duration_ms": 500,
			},
		},
	}
	greet := map[string]any{
		"type":     "response.create",
		"response": map[string]string{"instructions": "Say this greeting: " + Greeting(s)},
	}
	if err := writeJSON(model, update); err != nil {
		return err
	}
	return writeJSON(model, greet)
}

// Instructions is the system prompt for one session.
func Instructions(s Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the phone assistant for %s. The owner could not take this call, so you answer on their behalf.\n", s.BusinessName)
	if s.Description != "" {
		fmt.Fprintf(&b, "About the business: %s\n", s.Description)
	}
	b.WriteString("This is a voice conversation: keep answers short and natural. ")
	b.WriteString("If you cannot help, offer to take a message with the caller's name and callback number.\n")
	if s.Instructions != "" {
		fmt.Fprintf(&b, "\nInstructions from the owner:\n%s\n", s.Instructions)
	}
	return strings.TrimSpace(b.String())
}

func Greeting(s Session) string {
	return fmt.Sprintf("Hello, thank you for calling %s. I'm the virtual assistant and I can help while the team is busy. What can I do for you?", s.BusinessName)
}

// pumpCaller forwards caller audio to the model until Twilio sends stop.
func pumpCaller(caller, model *websocket.Conn) error {
	for {
		var f twilioFrame
		if err := caller.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		switch f.Event {
		case "media":
			if f.Media == nil || f.Media.Payload == "" {
				continue
			}
			if err := writeJSON(model, map[string]string{"type": "input_audio_buffer.append", "audio": f.Media.Payload}); err != nil {
				return err
			}
		case "stop":
			return nil
		}
	}
}

// pumpModel plays model audio to the caller.
func pumpModel(model, caller *websocket.Conn, streamSid string, log *slog.Logger) error {
	for {
		var ev realtimeEvent
		if err := model.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		switch ev.Type {
		case "response.audio.delta":
			if ev.Delta == "" {
				continue
			}
			out := twilioFrame{Event: "media", StreamSid: streamSid, Media: &streamMedia{Payload: ev.Delta}}
			if err := writeJSON(caller, out); err != nil {
				return err
			}
		case "input_audio_buffer.speech_started":
			// Caller barged in: drop the audio Twilio still has buffered.
			if err := writeJSON(caller, twilioFrame{Event: "clear", StreamSid: streamSid}); err != nil {
				return err
			}
		case "conversation.item.input_audio_transcription.completed":
			log.Debug("caller transcript", "text", ev.Transcript)
		case "error":
			log.Warn("realtime error event", "error", string(ev.Error))
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}
