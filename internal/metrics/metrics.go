// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpLabels = []string{"method", "route", "status"}

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_assistant_http_requests_total",
			Help: "Total HTTP requests by route template and status code.",
		},
		httpLabels,
	)
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "call_assistant_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "route"},
	)

	// Twilio webhooks, labeled by webhook and outcome (ok, duplicate, not_found, ...).
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_assistant_webhooks_total",
			Help: "Total Twilio webhooks handled, labeled by outcome.",
		},
		[]string{"webhook", "outcome"},
	)
	RoutingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_assistant_routing_decisions_total",
			Help: "Total routing decisions by action and reason.",
		},
		[]string{"action", "reason"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_assistant_notifications_total",
			Help: "Outbound notifications by channel (webhook, nats, email) and status.",
		},
		[]string{"channel", "status"},
	)
	NotifyPoolRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_assistant_notify_pool_running",
		Help: "Current number of running notification workers.",
	})

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_assistant_rate_limited_total",
			Help: "Requests rejected by a rate limiter.",
		},
		[]string{"limiter"},
	)

	AISessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_assistant_ai_sessions_active",
		Help: "Media streams currently bridged to the voice agent.",
	})

	AISessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_assistant_ai_sessions_total",
			Help: "Media stream sessions by outcome.",
		},
		[]string{"outcome"},
	)
)

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
