package service

import (
	"context"
	"errors"
	"strings"

	"guardianangel/internal/domain"
	"guardianangel/internal/metrics"
	"guardianangel/internal/models"
	"guardianangel/internal/ratelimit"
	"guardianangel/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxMessageLen = 4000

// CanAccessChat is the message gate: a chat that requires payment stays locked until paid.
func CanAccessChat(chat *models.ChatSession) bool {
	return !chat.RequiresPayment || chat.IsPaid
}

type ChatService struct {
	chats     *repository.ChatRepository
	lawyers   *repository.LawyerRepository
	questions *repository.QuestionRepository
	cooldown  *ratelimit.Cooldown
	notifier  Notifier
	media     AttachmentStore
	metrics   *metrics.PaymentMetrics
	log       *zap.Logger
}

func NewChatService(
	chats *repository.ChatRepository,
	lawyers *repository.LawyerRepository,
	questions *repository.QuestionRepository,
	cooldown *ratelimit.Cooldown,
	notifier Notifier,
	media AttachmentStore,
	m *metrics.PaymentMetrics,
	log *zap.Logger,
) *ChatService {
	return &ChatService{chats: chats, lawyers: lawyers, questions: questions, cooldown: cooldown, notifier: notifier, media: media, metrics: m, log: log}
}

// StartChat opens (or returns) the customer's chat with a lawyer. An existing chat is
// returned with created=false and does not consume the cool-down.
func (s *ChatService) StartChat(ctx context.Context, p domain.Principal, lawyerID uint) (*models.ChatSession, bool, error) {
	if !p.IsCustomer() {
		return nil, false, domain.ErrForbidden
	}
	lawyer, err := s.lawyers.GetByID(lawyerID)
	if err != nil {
		return nil, false, notFound(err)
	}
	if !lawyer.AcceptsChats() {
		return nil, false, domain.ErrLawyerUnavailable
	}

	existing, err := s.chats.FindByPair(p.UserID, lawyerID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	allowed, err := s.cooldown.Allow(ctx, p.UserID, lawyerID)
	if err != nil {
		return nil, false, err
	}
	if !allowed {
		// A concurrent request may hold the window because it just created this chat.
		if existing, err := s.chats.FindByPair(p.UserID, lawyerID); err == nil {
			return existing, false, nil
		}
		s.metrics.ChatCreateLimited.Inc()
		return nil, false, domain.ErrRateLimited
	}

	chat, created, err := s.chats.GetOrCreate(p.UserID, lawyerID, true, nil)
	if err != nil {
		if rerr := s.cooldown.Release(ctx, p.UserID, lawyerID); rerr != nil {
			s.log.Warn("release chat cooldown", zap.Uint("customer_id", p.UserID), zap.Uint("lawyer_id", lawyerID), zap.Error(rerr))
		}
		return nil, false, err
	}
	if created {
		s.metrics.ChatsCreated.Inc()
		s.log.Info("chat created", zap.Uint("chat_id", chat.ID), zap.Uint("customer_id", p.UserID), zap.Uint("lawyer_id", lawyerID))
		if err := s.notifier.ChatStarted(ctx, chat.ID); err != nil {
			s.log.Warn("notify chat started", zap.Uint("chat_id", chat.ID), zap.Error(err))
		}
	}
	return chat, created, nil
}

// AcceptQuestion lets an approved lawyer take an open question. The question is closed
// first so only one lawyer wins; the chat carries the question so it is priced at the
// customer's offer.
func (s *ChatService) AcceptQuestion(ctx context.Context, p domain.Principal, questionID uint) (*models.ChatSession, bool, error) {
	if !p.IsApprovedLawyer() {
		return nil, false, domain.ErrForbidden
	}
	q, err := s.questions.GetByID(questionID)
	if err != nil {
		return nil, false, notFound(err)
	}
	if !q.IsOpen {
		return nil, false, domain.ErrQuestionClosed
	}
	closed, err := s.questions.Close(q.ID, p.LawyerID)
	if err != nil {
		return nil, false, err
	}
	if !closed {
		return nil, false, domain.ErrQuestionClosed
	}

	chat, created, err := s.chats.GetOrCreate(q.CustomerID, p.LawyerID, true, &q.ID)
	if err != nil {
		if rerr := s.questions.Reopen(q.ID); rerr != nil {
			s.log.Error("reopen question after failed chat creation", zap.Uint("question_id", q.ID), zap.Error(rerr))
		}
		return nil, false, err
	}
	if created {
		s.metrics.ChatsCreated.Inc()
	}
	s.log.Info("question accepted", zap.Uint("question_id", q.ID), zap.Uint("chat_id", chat.ID), zap.Bool("created", created))
	if err := s.notifier.QuestionAccepted(ctx, chat.ID); err != nil {
		s.log.Warn("notify question accepted", zap.Uint("chat_id", chat.ID), zap.Error(err))
	}
	return chat, created, nil
}

// GetParticipantChat loads a chat the caller takes part in, without the payment gate.
// The row is read fresh on every call.
func (s *ChatService) GetParticipantChat(p domain.Principal, chatID uint) (*models.ChatSession, error) {
	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return nil, notFound(err)
	}
	if !chat.HasParticipant(p.UserID, p.LawyerID) {
		return nil, domain.ErrForbidden
	}
	return chat, nil
}

// OpenChat is the guarded read used before any message access. On a locked chat it
// returns the chat together with domain.ErrPaymentRequired.
func (s *ChatService) OpenChat(p domain.Principal, chatID uint) (*models.ChatSession, error) {
	chat, err := s.GetParticipantChat(p, chatID)
	if err != nil {
		return nil, err
	}
	if !CanAccessChat(chat) {
		return chat, domain.ErrPaymentRequired
	}
	return chat, nil
}

func (s *ChatService) ListChats(p domain.Principal, limit, offset int) ([]models.ChatSession, error) {
	if p.IsLawyer() {
		return s.chats.ListForLawyer(p.LawyerID, limit, offset)
	}
	return s.chats.ListForCustomer(p.UserID, limit, offset)
}

func (s *ChatService) ListMessages(p domain.Principal, chatID uint, limit, offset int) ([]models.ChatMessage, error) {
	if _, err := s.OpenChat(p, chatID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(chatID, limit, offset)
}

var (
	ErrEmptyMessage   = errors.New("message must have content or media")
	ErrMessageTooLong = errors.New("message is too long")
)

func (s *ChatService) PostMessage(p domain.Principal, chatID uint, content, mediaURL string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" && mediaURL == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > maxMessageLen {
		return nil, ErrMessageTooLong
	}
	if _, err := s.OpenChat(p, chatID); err != nil {
		return nil, err
	}
	m := &models.ChatMessage{ChatID: chatID, SenderID: p.UserID, Content: content, MediaURL: mediaURL}
	if err := s.chats.CreateMessage(m); err != nil {
		return nil, err
	}
	return m, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
