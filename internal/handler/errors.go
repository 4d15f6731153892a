package handler

import (
	"errors"
	"net/http"
	"strconv"

	"guardianangel/internal/domain"
	"guardianangel/internal/middleware"
	"guardianangel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses. Unrecognised errors are logged
// and reported as 500 without detail.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrPaymentRequired):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, service.ErrQuestionTitle),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrAttachmentType):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAttachmentTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrLawyerUnavailable),
		errors.Is(err, domain.ErrQuestionClosed),
		errors.Is(err, domain.ErrAlreadyPaid):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrGateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable, please try again"})
		return
	case errors.Is(err, service.ErrAttachmentsDisabled):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// page reads limit/offset with the given default limit, capped at 100.
func page(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// principal is only called behind AuthRequired.
func principal(c *gin.Context) domain.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}
