package handler

import (
	"errors"
	"net/http"

	"guardianangel/internal/domain"
	"guardianangel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart framing on top of the attachment itself
const maxUploadBody = service.MaxAttachmentSize + 64<<10

type UploadHandler struct {
	chats *service.ChatService
	log   *zap.Logger
}

func NewUploadHandler(chats *service.ChatService, log *zap.Logger) *UploadHandler {
	return &UploadHandler{chats: chats, log: log}
}

// UploadAttachment stores a file for a paid (or free) chat and returns its URL for use
// as a message's media_url.
func (h *UploadHandler) UploadAttachment(c *gin.Context) {
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	file, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": service.ErrAttachmentTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	if file.Size > service.MaxAttachmentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": service.ErrAttachmentTooLarge.Error()})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	att, err := h.chats.AttachFile(c.Request.Context(), principal(c), chatID, f)
	if errors.Is(err, domain.ErrPaymentRequired) {
		paymentRequired(c, chatID)
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}
