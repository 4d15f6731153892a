package handler

import (
	"net/http"

	"guardianangel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type QuestionHandler struct {
	questions *service.QuestionService
	chats     *service.ChatService
	log       *zap.Logger
}

func NewQuestionHandler(questions *service.QuestionService, chats *service.ChatService, log *zap.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, chats: chats, log: log}
}

type createQuestionRequest struct {
	Title        string          `json:"title" binding:"required"`
	Body         string          `json:"body"`
	OfferedPrice decimal.Decimal `json:"offered_price"`
}

func (h *QuestionHandler) Create(c *gin.Context) {
	var req createQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and offered_price are required"})
		return
	}
	q, err := h.questions.Create(principal(c), req.Title, req.Body, req.OfferedPrice)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": q})
}

func (h *QuestionHandler) List(c *gin.Context) {
	limit, offset := page(c, 20)
	list, err := h.questions.List(principal(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": list})
}

// Accept lets an approved lawyer take the question; the customer then pays the offered price.
func (h *QuestionHandler) Accept(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	chat, created, err := h.chats.AcceptQuestion(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chat": chat, "created": created})
}
