package handler

import (
	"net/http"
	"strings"
	"time"

	"guardianangel/internal/repository"
	"guardianangel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	repo          *repository.NotificationRepository
	users         *repository.UserRepository
	log           *zap.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, repo *repository.NotificationRepository, users *repository.UserRepository, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, repo: repo, users: users, log: log}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := page(c, 20)
	list, err := h.notifications.List(principal(c).UserID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.MarkRead(id, principal(c).UserID, time.Now()); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type fcmTokenRequest struct {
	Token string `json:"token"`
}

// UpdateFCMToken registers (or with an empty token, clears) the caller's push device.
func (h *NotificationHandler) UpdateFCMToken(c *gin.Context) {
	var req fcmTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	token := strings.TrimSpace(req.Token)
	if len(token) > 512 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token too long"})
		return
	}
	if err := h.users.UpdateFCMToken(principal(c).UserID, token); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
