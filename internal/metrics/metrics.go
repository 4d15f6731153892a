package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guardianangel"

// PaymentMetrics covers checkout creation, settlement and webhook handling.
type PaymentMetrics struct {
	CheckoutsCreated   *prometheus.CounterVec // by payment_type, mode
	PaymentsSettled    *prometheus.CounterVec // by payment_type, source
	WebhookEvents      *prometheus.CounterVec // by outcome
	GatewayDuration    prometheus.Histogram
	ChatsCreated       prometheus.Counter
	ChatCreateLimited  prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New registers the metrics on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *PaymentMetrics {
	f := promauto.With(reg)
	return &PaymentMetrics{
		CheckoutsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_created_total",
			Help:      "Checkouts started, by payment type and payment mode",
		}, []string{"payment_type", "mode"}),
		PaymentsSettled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_settled_total",
			Help:      "Payments that transitioned to success",
		}, []string{"payment_type", "source"}),
		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Gateway webhook deliveries by outcome",
		}, []string{"outcome"}),
		GatewayDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_checkout_duration_seconds",
			Help:      "Latency of checkout creation calls to the payment gateway",
			Buckets:   prometheus.DefBuckets,
		}),
		ChatsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chats_created_total",
			Help:      "Chat sessions created",
		}),
		ChatCreateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_create_rate_limited_total",
			Help:      "Chat creation attempts rejected by the cool-down",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// ObserveGateway records how long a gateway call took.
func (m *PaymentMetrics) ObserveGateway(start time.Time) {
	m.GatewayDuration.Observe(time.Since(start).Seconds())
}

// Middleware counts requests by route template, not raw path.
func (m *PaymentMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, path, statusLabel(c.Writer.Status())).Inc()
		m.HTTPRequestLatency.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
