package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"call-assistant/internal/calls"
	"call-assistant/internal/metrics"
	"call-assistant/internal/settings"
	"call-assistant/pkg/logger"
)

const EventCallCompleted = "call.completed"

// Submitter runs tasks asynchronously; *Pool satisfies it.
type Submitter interface {
	Submit(task func()) error
}

type SettingsSource interface {
	Effective(ctx context.Context, businessID string) settings.Settings
}

// CallEvent is the payload sent to business webhooks and NATS.
type CallEvent struct {
	Event      string     `json:"event"`
	OccurredAt time.Time  `json:"occurred_at"`
	BusinessID string     `json:"business_id"`
	Call       calls.Call `json:"call"`
}

// Notifier fans a finished call out to NATS and the business webhook.
type Notifier struct {
	settings      SettingsSource
	webhooks      *WebhookSender
	publisher     Publisher
	pool          Submitter
	subjectPrefix string
	clock         func() time.Time
}

func NewNotifier(st SettingsSource, webhooks *WebhookSender, pub Publisher, pool Submitter, subjectPrefix string) *Notifier {
	if pub == nil {
		pub = NoopPublisher{}
	}
	return &Notifier{
		settings:      st,
		webhooks:      webhooks,
		publisher:     pub,
		pool:          pool,
		subjectPrefix: subjectPrefix,
		clock:         time.Now,
	}
}

// Subject is "<prefix>.calls.<business_id>.<event suffix>".
func (n *Notifier) Subject(businessID, event string) string {
	return fmt.Sprintf("%s.calls.%s.%s", n.subjectPrefix, businessID, strings.TrimPrefix(event, "call."))
}

// CallCompleted queues delivery; it never blocks the webhook.
func (n *Notifier) CallCompleted(ctx context.Context, c calls.Call) {
	ctx = context.WithoutCancel(ctx)
	if err := n.pool.Submit(func() { n.deliver(ctx, EventCallCompleted, c) }); err != nil {
		metrics.NotificationsTotal.WithLabelValues("pool", "dropped").Inc()
		logger.From(ctx).Warn("call notification dropped", "call_id", c.ID, "err", err)
	}
}

func (n *Notifier) deliver(ctx context.Context, event string, c calls.Call) {
	log := logger.From(ctx).With("call_id", c.ID, "event", event)

	body, err := json.Marshal(CallEvent{
		Event:      event,
		OccurredAt: n.clock().UTC(),
		BusinessID: c.BusinessID,
		Call:       c,
	})
	if err != nil {
		log.Error("encode call event failed", "err", err)
		return
	}

	if err := n.publisher.Publish(n.Subject(c.BusinessID, event), body); err != nil {
		metrics.NotificationsTotal.WithLabelValues("nats", "failed").Inc()
		log.Warn("publish call event failed", "err", err)
	} else {
		metrics.NotificationsTotal.WithLabelValues("nats", "sent").Inc()
	}

	if n.webhooks == nil || n.settings == nil {
		return
	}
	st := n.settings.Effective(ctx, c.BusinessID)
	if st.WebhookURL == "" {
		return
	}
	if err := n.webhooks.Send(ctx, st.WebhookURL, st.WebhookSecret, event, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues("webhook", "failed").Inc()
		log.Warn("business webhook failed", "business_id", c.BusinessID, "err", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("webhook", "sent").Inc()
}
