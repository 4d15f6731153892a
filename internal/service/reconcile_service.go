package service

import (
	"context"
	"errors"
	"time"

	"guardianangel/internal/domain"
	"guardianangel/internal/metrics"
	"guardianangel/internal/repository"
	"guardianangel/pkg/payment"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeSettled Outcome = "settled"
	OutcomeReplay  Outcome = "replay"
	OutcomeUnknown Outcome = "unknown"
	OutcomeIgnored Outcome = "ignored"
)

// Reconciler applies verified gateway events to the ledger. A payment moves from
// pending to success at most once; replays and foreign events are no-ops.
type Reconciler struct {
	payments *repository.PaymentRepository
	effects  *settlementEffects
	log      *zap.Logger
	now      func() time.Time
}

func NewReconciler(
	payments *repository.PaymentRepository,
	notifier Notifier,
	audit *repository.AuditLogRepository,
	m *metrics.PaymentMetrics,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{
		payments: payments,
		effects:  &settlementEffects{notifier: notifier, audit: audit, metrics: m, log: log},
		log:      log,
		now:      time.Now,
	}
}

// HandleEvent returns an error only for storage failures; the gateway should retry those.
func (r *Reconciler) HandleEvent(ctx context.Context, ev *payment.Event) (Outcome, error) {
	if ev.Type != payment.EventCheckoutCompleted {
		r.log.Debug("webhook event ignored", zap.String("event_type", ev.Type), zap.String("event_id", ev.ID))
		return OutcomeIgnored, nil
	}
	if !ev.Paid {
		r.log.Info("checkout completed without payment", zap.String("correlation_id", ev.CorrelationID))
		return OutcomeIgnored, nil
	}

	p, transitioned, err := r.payments.SettleByCorrelationID(ev.CorrelationID, r.now())
	if errors.Is(err, domain.ErrUnknownCorrelationID) {
		r.log.Warn("webhook for unknown correlation id", zap.String("correlation_id", ev.CorrelationID), zap.String("event_id", ev.ID))
		return OutcomeUnknown, nil
	}
	if err != nil {
		return "", err
	}

	if mt := ev.Metadata["payment_type"]; mt != "" && mt != p.PaymentType {
		r.log.Warn("event metadata disagrees with ledger",
			zap.String("correlation_id", ev.CorrelationID),
			zap.String("metadata_type", mt),
			zap.String("payment_type", p.PaymentType))
	}
	if !transitioned {
		r.log.Info("webhook replay", zap.String("correlation_id", ev.CorrelationID), zap.Uint("payment_id", p.ID))
		return OutcomeReplay, nil
	}

	r.log.Info("payment settled",
		zap.String("correlation_id", ev.CorrelationID),
		zap.Uint("payment_id", p.ID),
		zap.String("payment_type", p.PaymentType))
	r.effects.apply(ctx, p, "webhook")
	return OutcomeSettled, nil
}
