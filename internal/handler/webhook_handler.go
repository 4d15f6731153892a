package handler

import (
	"errors"
	"io"
	"net/http"

	"guardianangel/internal/metrics"
	"guardianangel/internal/service"
	"guardianangel/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	gateway payment.Gateway
	rec     *service.Reconciler
	enabled bool
	metrics *metrics.PaymentMetrics
	log     *zap.Logger
}

// NewWebhookHandler builds the gateway webhook endpoint. With no webhook secret
// configured every delivery is acknowledged and dropped.
func NewWebhookHandler(gateway payment.Gateway, rec *service.Reconciler, webhookSecret string, m *metrics.PaymentMetrics, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, rec: rec, enabled: webhookSecret != "", metrics: m, log: log}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	if !h.enabled {
		h.log.Warn("webhook received but no webhook secret is configured")
		h.metrics.WebhookEvents.WithLabelValues("disabled").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	ev, err := h.gateway.ParseEvent(body, c.GetHeader(h.gateway.SignatureHeader()))
	if errors.Is(err, payment.ErrInvalidSignature) {
		h.log.Warn("webhook signature rejected", zap.String("ip", c.ClientIP()))
		h.metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	if err != nil {
		h.log.Warn("webhook payload rejected", zap.Error(err))
		h.metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	outcome, err := h.rec.HandleEvent(c.Request.Context(), ev)
	if err != nil {
		h.log.Error("webhook reconciliation failed", zap.String("event_id", ev.ID), zap.String("correlation_id", ev.CorrelationID), zap.Error(err))
		h.metrics.WebhookEvents.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
