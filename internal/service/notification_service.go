package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"guardianangel/internal/domain"
	"guardianangel/internal/models"
	"guardianangel/internal/repository"

	"go.uber.org/zap"
)

// Notifier receives fire-and-forget events from the chat and payment flows.
// Callers log returned errors and carry on.
type Notifier interface {
	ChatStarted(ctx context.Context, chatID uint) error
	ChatUnlocked(ctx context.Context, chatID uint) error
	SubscriptionActivated(ctx context.Context, lawyerID uint) error
	QuestionAccepted(ctx context.Context, chatID uint) error
}

type NotificationService struct {
	repo    *repository.NotificationRepository
	users   *repository.UserRepository
	lawyers *repository.LawyerRepository
	chats   *repository.ChatRepository
	fcm     *FCMService
	mailer  Mailer
	log     *zap.Logger
}

func NewNotificationService(
	repo *repository.NotificationRepository,
	users *repository.UserRepository,
	lawyers *repository.LawyerRepository,
	chats *repository.ChatRepository,
	fcm *FCMService,
	mailer Mailer,
	log *zap.Logger,
) *NotificationService {
	return &NotificationService{repo: repo, users: users, lawyers: lawyers, chats: chats, fcm: fcm, mailer: mailer, log: log}
}

// Notify stores an in-app notification and pushes it to the user's device if one is registered.
func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return err
	}
	s.sendPush(ctx, userID, notifType, title, body, data)
	return nil
}

func (s *NotificationService) sendPush(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.fcm == nil {
		return
	}
	u, err := s.users.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	_ = s.fcm.SendToUser(ctx, u.FCMToken, notifType, title, body, data)
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByUserID(userID, limit, offset)
}

// chatParties loads the chat with both participants' user rows.
func (s *NotificationService) chatParties(chatID uint) (*models.ChatSession, *models.User, *models.LawyerProfile, error) {
	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load chat %d: %w", chatID, err)
	}
	customer, err := s.users.GetByID(chat.CustomerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load customer %d: %w", chat.CustomerID, err)
	}
	lawyer, err := s.lawyers.GetByID(chat.LawyerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load lawyer %d: %w", chat.LawyerID, err)
	}
	return chat, customer, lawyer, nil
}

func (s *NotificationService) ChatStarted(ctx context.Context, chatID uint) error {
	_, customer, lawyer, err := s.chatParties(chatID)
	if err != nil {
		return err
	}
	return s.Notify(ctx, lawyer.UserID, domain.NotifNewChat, "New chat request",
		customer.Username+" started a chat with you", map[string]interface{}{"chat_id": chatID})
}

// ChatUnlocked tells both participants the chat is paid and e-mails them.
func (s *NotificationService) ChatUnlocked(ctx context.Context, chatID uint) error {
	_, customer, lawyer, err := s.chatParties(chatID)
	if err != nil {
		return err
	}
	data := map[string]interface{}{"chat_id": chatID}
	errs := []error{
		s.Notify(ctx, customer.ID, domain.NotifChatUnlocked, "Payment received",
			"Your chat with "+lawyer.FullName+" is now open.", data),
		s.Notify(ctx, lawyer.UserID, domain.NotifChatUnlocked, "Chat paid",
			customer.Username+" has paid. You can start the conversation.", data),
	}
	subject := fmt.Sprintf("Chat #%d is unlocked", chatID)
	body := fmt.Sprintf("Payment for chat #%d between %s and %s has been received. The chat is now open.",
		chatID, customer.Username, lawyer.FullName)
	errs = append(errs, s.mailer.Send(ctx, []string{customer.Email, lawyer.User.Email}, subject, body))
	return errors.Join(errs...)
}

func (s *NotificationService) SubscriptionActivated(ctx context.Context, lawyerID uint) error {
	lawyer, err := s.lawyers.GetByID(lawyerID)
	if err != nil {
		return fmt.Errorf("load lawyer %d: %w", lawyerID, err)
	}
	return errors.Join(
		s.Notify(ctx, lawyer.UserID, domain.NotifSubscriptionActivated, "Subscription active",
			"Customers can now start chats with you.", map[string]interface{}{"lawyer_id": lawyerID}),
		s.mailer.Send(ctx, []string{lawyer.User.Email}, "Your subscription is active",
			"Thank you. Your lawyer subscription is now active."),
	)
}

func (s *NotificationService) QuestionAccepted(ctx context.Context, chatID uint) error {
	chat, customer, lawyer, err := s.chatParties(chatID)
	if err != nil {
		return err
	}
	title := "Your question was answered"
	if chat.Question != nil {
		title = "A lawyer took your question: " + chat.Question.Title
	}
	return errors.Join(
		s.Notify(ctx, customer.ID, domain.NotifQuestionAccepted, title,
			lawyer.FullName+" accepted your question. Pay to open the chat.", map[string]interface{}{"chat_id": chatID}),
		s.mailer.Send(ctx, []string{customer.Email}, title,
			lawyer.FullName+" accepted your question. Complete the payment to open the chat."),
	)
}
