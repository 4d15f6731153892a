package handler

import (
	"net/http"

	"guardianangel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments *service.PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments *service.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

func (h *PaymentHandler) Quote(c *gin.Context) {
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	chat, quote, err := h.payments.QuoteChat(principal(c), chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID, "quote": quote, "is_paid": chat.IsPaid})
}

// Initiate returns either paid=true or a redirect_url to the hosted checkout.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.payments.InitiateChatPayment(c.Request.Context(), principal(c), chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Status backs the checkout success page; PENDING is expected until the webhook lands.
func (h *PaymentHandler) Status(c *gin.Context) {
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	st, err := h.payments.ChatPaymentStatus(principal(c), chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *PaymentHandler) Subscribe(c *gin.Context) {
	out, err := h.payments.InitiateSubscription(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
