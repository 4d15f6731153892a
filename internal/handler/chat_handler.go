package handler

import (
	"errors"
	"fmt"
	"net/http"

	"guardianangel/internal/domain"
	"guardianangel/internal/models"
	"guardianangel/internal/service"
	"guardianangel/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chats *service.ChatService
	hub   *ws.ChatHub
	log   *zap.Logger
}

func NewChatHandler(chats *service.ChatService, hub *ws.ChatHub, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, hub: hub, log: log}
}

// paymentRequired answers a locked chat with where to pay for it.
func paymentRequired(c *gin.Context, chatID uint) {
	c.JSON(http.StatusPaymentRequired, gin.H{
		"error":       domain.ErrPaymentRequired.Error(),
		"chat_id":     chatID,
		"payment_url": fmt.Sprintf("/api/v1/chats/%d/payment", chatID),
	})
}

// StartChat opens a chat with a lawyer: 201 when created, 200 when it already existed.
func (h *ChatHandler) StartChat(c *gin.Context) {
	lawyerID, ok := paramID(c, "id")
	if !ok {
		return
	}
	chat, created, err := h.chats.StartChat(c.Request.Context(), principal(c), lawyerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"chat": chat, "created": created, "can_access": service.CanAccessChat(chat)})
}

func (h *ChatHandler) List(c *gin.Context) {
	limit, offset := page(c, 20)
	list, err := h.chats.ListChats(principal(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": list})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, offset := page(c, 50)
	list, err := h.chats.ListMessages(principal(c), chatID, limit, offset)
	if errors.Is(err, domain.ErrPaymentRequired) {
		paymentRequired(c, chatID)
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

type postMessageRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"media_url"`
}

func (h *ChatHandler) PostMessage(c *gin.Context) {
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	msg, err := h.chats.PostMessage(principal(c), chatID, req.Content, req.MediaURL)
	if errors.Is(err, domain.ErrPaymentRequired) {
		paymentRequired(c, chatID)
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.hub.Publish(chatID, messageFrame(msg))
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func messageFrame(m *models.ChatMessage) gin.H {
	return gin.H{
		"type":       "message",
		"id":         m.ID,
		"chat_id":    m.ChatID,
		"sender_id":  m.SenderID,
		"content":    m.Content,
		"media_url":  m.MediaURL,
		"created_at": m.CreatedAt,
	}
}
