package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"guardianangel/internal/domain"
	"guardianangel/internal/metrics"
	"guardianangel/internal/models"
	"guardianangel/internal/repository"

	"go.uber.org/zap"
)

// defaultNotifyTimeout bounds the notification step so a slow mail or push backend
// cannot hold the webhook response past the gateway's own delivery timeout.
const defaultNotifyTimeout = 8 * time.Second

// settlementEffects runs after a payment's success transition has committed.
// Nothing here can undo the transition: failures are logged and dropped.
type settlementEffects struct {
	notifier Notifier
	audit    *repository.AuditLogRepository
	metrics  *metrics.PaymentMetrics
	log      *zap.Logger
	// notifyTimeout overrides defaultNotifyTimeout when positive.
	notifyTimeout time.Duration
}

func (e *settlementEffects) apply(ctx context.Context, p *models.Payment, source string) {
	e.metrics.PaymentsSettled.WithLabelValues(p.PaymentType, source).Inc()

	meta := map[string]interface{}{"payment_type": p.PaymentType, "source": source, "amount": p.Amount.StringFixed(2)}
	if p.ProviderRef != nil {
		meta["correlation_id"] = *p.ProviderRef
	}
	b, _ := json.Marshal(meta)
	if err := e.audit.Create(&models.AuditLog{
		Action:     "payment.settled",
		Resource:   "payment",
		ResourceID: strconv.FormatUint(uint64(p.ID), 10),
		Metadata:   string(b),
	}); err != nil {
		e.log.Warn("audit payment settled", zap.Uint("payment_id", p.ID), zap.Error(err))
	}

	timeout := e.notifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	// The settlement is committed; a caller hanging up must not cut the notification short.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var err error
	switch {
	case p.PaymentType == domain.PaymentTypeChat && p.ChatID != nil:
		err = e.notifier.ChatUnlocked(nctx, *p.ChatID)
	case p.PaymentType == domain.PaymentTypeSubscription && p.LawyerID != nil:
		err = e.notifier.SubscriptionActivated(nctx, *p.LawyerID)
	}
	if err != nil {
		e.log.Warn("notify settlement", zap.Uint("payment_id", p.ID), zap.String("payment_type", p.PaymentType), zap.Error(err))
	}
}
