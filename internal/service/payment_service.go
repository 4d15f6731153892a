package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"guardianangel/config"
	"guardianangel/internal/domain"
	"guardianangel/internal/metrics"
	"guardianangel/internal/models"
	"guardianangel/internal/pricing"
	"guardianangel/internal/repository"
	"guardianangel/pkg/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentService struct {
	paymentCfg config.PaymentConfig
	pricingCfg config.PricingConfig
	chats      *ChatService
	lawyers    *repository.LawyerRepository
	payments   *repository.PaymentRepository
	gateway    payment.Gateway
	effects    *settlementEffects
	metrics    *metrics.PaymentMetrics
	log        *zap.Logger
	now        func() time.Time
}

func NewPaymentService(
	cfg *config.Config,
	chats *ChatService,
	lawyers *repository.LawyerRepository,
	payments *repository.PaymentRepository,
	gateway payment.Gateway,
	notifier Notifier,
	audit *repository.AuditLogRepository,
	m *metrics.PaymentMetrics,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentCfg: cfg.Payment,
		pricingCfg: cfg.Pricing,
		chats:      chats,
		lawyers:    lawyers,
		payments:   payments,
		gateway:    gateway,
		effects:    &settlementEffects{notifier: notifier, audit: audit, metrics: m, log: log},
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// ChatCheckout is the result of starting payment for a chat. Either Paid is true
// (nothing more to do) or RedirectURL points at the gateway's hosted checkout.
type ChatCheckout struct {
	ChatID      uint          `json:"chat_id"`
	Quote       pricing.Quote `json:"quote"`
	Paid        bool          `json:"paid"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

type ChatPaymentStatus struct {
	ChatID          uint            `json:"chat_id"`
	RequiresPayment bool            `json:"requires_payment"`
	IsPaid          bool            `json:"is_paid"`
	Status          string          `json:"status,omitempty"` // PENDING or SUCCESS; empty before the first attempt
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
}

type SubscriptionCheckout struct {
	Active      bool            `json:"active"`
	Amount      decimal.Decimal `json:"amount"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

// basePrice picks the customer's offered price for chats spawned from a question
// and the lawyer's per-chat fee otherwise.
func (s *PaymentService) basePrice(chat *models.ChatSession) (decimal.Decimal, error) {
	var base decimal.Decimal
	if chat.QuestionID != nil && chat.Question != nil {
		base = chat.Question.OfferedPrice
	} else {
		lawyer, err := s.lawyers.GetByID(chat.LawyerID)
		if err != nil {
			return decimal.Zero, notFound(err)
		}
		base = lawyer.FeePerChat
	}
	if base.IsNegative() {
		return decimal.Zero, domain.ErrInvalidPrice
	}
	return base, nil
}

// QuoteChat prices a chat for either participant.
func (s *PaymentService) QuoteChat(p domain.Principal, chatID uint) (*models.ChatSession, pricing.Quote, error) {
	chat, err := s.chats.GetParticipantChat(p, chatID)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	base, err := s.basePrice(chat)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	return chat, pricing.NewQuote(base, s.pricingCfg.PlatformFee, s.pricingCfg.TaxRate), nil
}

// InitiateChatPayment starts (or restarts) payment for a chat on behalf of its customer.
// In simulated mode the chat is settled on the spot. In live mode a checkout is created
// first and the pending ledger row is written only after the gateway answered.
func (s *PaymentService) InitiateChatPayment(ctx context.Context, p domain.Principal, chatID uint) (*ChatCheckout, error) {
	chat, quote, err := s.QuoteChat(p, chatID)
	if err != nil {
		return nil, err
	}
	if chat.CustomerID != p.UserID {
		return nil, domain.ErrForbidden
	}
	out := &ChatCheckout{ChatID: chat.ID, Quote: quote}
	if CanAccessChat(chat) {
		out.Paid = true
		return out, nil
	}

	if s.paymentCfg.Mode == config.PaymentModeSimulated {
		pay, transitioned, err := s.payments.SettleChatSimulated(chat.ID, quote.Total, s.paymentCfg.Currency, s.now())
		if err != nil {
			return nil, err
		}
		s.metrics.CheckoutsCreated.WithLabelValues(domain.PaymentTypeChat, string(config.PaymentModeSimulated)).Inc()
		if transitioned {
			s.log.Info("chat payment simulated", zap.Uint("chat_id", chat.ID), zap.Uint("payment_id", pay.ID), zap.String("amount", quote.Total.StringFixed(2)))
			s.effects.apply(ctx, pay, string(config.PaymentModeSimulated))
		}
		out.Paid = true
		return out, nil
	}

	lawyer, err := s.lawyers.GetByID(chat.LawyerID)
	if err != nil {
		return nil, notFound(err)
	}
	sess, err := s.createCheckout(ctx, payment.CheckoutRequest{
		AmountCents: quote.AmountCents(),
		Currency:    s.paymentCfg.Currency,
		Description: "Legal Question with " + lawyer.FullName,
		SuccessURL:  fmt.Sprintf("%s/chat/%d", s.paymentCfg.PublicBaseURL, chat.ID),
		CancelURL:   fmt.Sprintf("%s/payment/%d", s.paymentCfg.PublicBaseURL, chat.ID),
		Metadata: map[string]string{
			"payment_type": domain.PaymentTypeChat,
			"chat_id":      strconv.FormatUint(uint64(chat.ID), 10),
		},
		IdempotencyKey: fmt.Sprintf("chat-%d-%s", chat.ID, uuid.NewString()),
	})
	if err != nil {
		return nil, err
	}

	pay, err := s.payments.UpsertPendingForChat(chat.ID, quote.Total, s.paymentCfg.Currency, sess.CorrelationID)
	if errors.Is(err, domain.ErrAlreadyPaid) {
		// A webhook settled the chat while we were at the gateway.
		out.Paid = true
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.CheckoutsCreated.WithLabelValues(domain.PaymentTypeChat, string(config.PaymentModeLive)).Inc()
	s.log.Info("chat checkout created",
		zap.Uint("chat_id", chat.ID),
		zap.Uint("payment_id", pay.ID),
		zap.String("correlation_id", sess.CorrelationID),
		zap.String("amount", quote.Total.StringFixed(2)))
	out.RedirectURL = sess.RedirectURL
	return out, nil
}

// ChatPaymentStatus backs the post-checkout landing page, which may load before the
// webhook arrives; a pending payment is a normal answer.
func (s *PaymentService) ChatPaymentStatus(p domain.Principal, chatID uint) (*ChatPaymentStatus, error) {
	chat, err := s.chats.GetParticipantChat(p, chatID)
	if err != nil {
		return nil, err
	}
	st := &ChatPaymentStatus{ChatID: chat.ID, RequiresPayment: chat.RequiresPayment, IsPaid: chat.IsPaid}
	pay, err := s.payments.GetByChatID(chat.ID)
	switch {
	case err == nil:
		st.Status = pay.Status()
		st.Amount = pay.Amount
		st.Currency = pay.Currency
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}
	return st, nil
}

// InitiateSubscription charges an approved lawyer the flat subscription price.
func (s *PaymentService) InitiateSubscription(ctx context.Context, p domain.Principal) (*SubscriptionCheckout, error) {
	if !p.IsApprovedLawyer() {
		return nil, domain.ErrForbidden
	}
	price := s.paymentCfg.SubscriptionPrice
	out := &SubscriptionCheckout{Amount: price}

	if s.paymentCfg.Mode == config.PaymentModeSimulated {
		pay, err := s.payments.CreateSettledSubscription(p.LawyerID, price, s.paymentCfg.Currency, s.now())
		if err != nil {
			return nil, err
		}
		s.metrics.CheckoutsCreated.WithLabelValues(domain.PaymentTypeSubscription, string(config.PaymentModeSimulated)).Inc()
		s.effects.apply(ctx, pay, string(config.PaymentModeSimulated))
		out.Active = true
		return out, nil
	}

	sess, err := s.createCheckout(ctx, payment.CheckoutRequest{
		AmountCents: price.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:    s.paymentCfg.Currency,
		Description: "Lawyer subscription",
		SuccessURL:  s.paymentCfg.PublicBaseURL + "/lawyer/dashboard",
		CancelURL:   s.paymentCfg.PublicBaseURL + "/lawyer/subscribe",
		Metadata: map[string]string{
			"payment_type": domain.PaymentTypeSubscription,
			"lawyer_id":    strconv.FormatUint(uint64(p.LawyerID), 10),
		},
		IdempotencyKey: fmt.Sprintf("sub-%d-%s", p.LawyerID, uuid.NewString()),
	})
	if err != nil {
		return nil, err
	}
	pay, err := s.payments.CreatePendingSubscription(p.LawyerID, price, s.paymentCfg.Currency, sess.CorrelationID)
	if err != nil {
		return nil, err
	}
	s.metrics.CheckoutsCreated.WithLabelValues(domain.PaymentTypeSubscription, string(config.PaymentModeLive)).Inc()
	s.log.Info("subscription checkout created",
		zap.Uint("lawyer_id", p.LawyerID),
		zap.Uint("payment_id", pay.ID),
		zap.String("correlation_id", sess.CorrelationID))
	out.RedirectURL = sess.RedirectURL
	return out, nil
}

// createCheckout bounds the gateway call and folds every failure into domain.ErrGateway.
func (s *PaymentService) createCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if s.paymentCfg.CheckoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.paymentCfg.CheckoutTimeout)
		defer cancel()
	}
	start := time.Now()
	sess, err := s.gateway.CreateCheckout(ctx, req)
	s.metrics.ObserveGateway(start)
	if err != nil {
		s.log.Error("gateway checkout failed", zap.String("payment_type", req.Metadata["payment_type"]), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	if sess.CorrelationID == "" {
		return nil, fmt.Errorf("%w: empty session id", domain.ErrGateway)
	}
	return sess, nil
}
