package repository

import (
	"errors"
	"time"

	"guardianangel/internal/domain"
	"guardianangel/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository is the payment ledger. Every change to a payment's success flag
// goes through a method here together with the matching chat or subscription flag.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByChatID(chatID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("chat_id = ?", chatID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByCorrelationID(ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("provider_ref = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) CountByChatID(chatID uint) (int64, error) {
	var c int64
	err := r.db.Model(&models.Payment{}).Where("chat_id = ?", chatID).Count(&c).Error
	return c, err
}

func (r *PaymentRepository) ListByLawyerID(lawyerID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("lawyer_id = ? AND payment_type = ?", lawyerID, domain.PaymentTypeSubscription).Order("id ASC").Find(&list).Error
	return list, err
}

// UpsertPendingForChat records a pending checkout for chatID, replacing the amount and
// correlation id of an earlier pending attempt. A chat never gets a second payment row.
// Returns domain.ErrAlreadyPaid if the chat's payment has already succeeded.
func (r *PaymentRepository) UpsertPendingForChat(chatID uint, amount decimal.Decimal, currency, ref string) (*models.Payment, error) {
	var out models.Payment
	err := retryOnConflict(r.db, func(tx *gorm.DB) error {
		var existing models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("chat_id = ?", chatID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Success {
				return domain.ErrAlreadyPaid
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"amount":       amount,
				"currency":     currency,
				"provider_ref": ref,
			}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			p := models.Payment{
				ChatID:      &chatID,
				PaymentType: domain.PaymentTypeChat,
				Amount:      amount,
				Currency:    currency,
				ProviderRef: &ref,
			}
			// Two first-time initiations can both miss the locked read. The chat_id
			// conflict clause turns the loser into an update of the winner's row; where
			// the engine deadlocks on the gap locks instead, the retry sees the row.
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "chat_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"amount", "currency", "provider_ref", "updated_at"}),
			}).Create(&p).Error; err != nil {
				return err
			}
		default:
			return err
		}
		return tx.Where("chat_id = ?", chatID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePendingSubscription records a pending subscription checkout for a lawyer.
func (r *PaymentRepository) CreatePendingSubscription(lawyerID uint, amount decimal.Decimal, currency, ref string) (*models.Payment, error) {
	p := &models.Payment{
		LawyerID:    &lawyerID,
		PaymentType: domain.PaymentTypeSubscription,
		Amount:      amount,
		Currency:    currency,
		ProviderRef: &ref,
	}
	if err := r.db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// SettleByCorrelationID flips the payment matching ref to successful and, in the same
// transaction, unlocks its chat or activates its lawyer's subscription. transitioned is
// true only for the call that performed the flip; replays return the stored payment
// with transitioned false. Unknown refs return domain.ErrUnknownCorrelationID.
func (r *PaymentRepository) SettleByCorrelationID(ref string, at time.Time) (*models.Payment, bool, error) {
	var (
		p            models.Payment
		transitioned bool
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("provider_ref = ? AND success = ?", ref, false).
			Updates(map[string]interface{}{"success": true, "completed_at": at})
		if res.Error != nil {
			return res.Error
		}
		transitioned = res.RowsAffected == 1
		if err := tx.Where("provider_ref = ?", ref).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUnknownCorrelationID
			}
			return err
		}
		if !transitioned {
			return nil
		}
		return markOwnerPaid(tx, &p)
	})
	if err != nil {
		return nil, false, err
	}
	return &p, transitioned, nil
}

// SettleChatSimulated marks the chat's payment successful without a gateway, creating
// the row if needed, and unlocks the chat in the same transaction. transitioned is false
// when the payment had already succeeded.
func (r *PaymentRepository) SettleChatSimulated(chatID uint, amount decimal.Decimal, currency string, at time.Time) (*models.Payment, bool, error) {
	var (
		out          models.Payment
		transitioned bool
	)
	err := retryOnConflict(r.db, func(tx *gorm.DB) error {
		transitioned = false
		p := models.Payment{
			ChatID:      &chatID,
			PaymentType: domain.PaymentTypeChat,
			Amount:      amount,
			Currency:    currency,
			Success:     true,
			CompletedAt: &at,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoNothing: true,
		}).Create(&p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			transitioned = true
		} else {
			// The row exists: flip it only if it is still pending.
			upd := tx.Model(&models.Payment{}).
				Where("chat_id = ? AND success = ?", chatID, false).
				Updates(map[string]interface{}{
					"amount":       amount,
					"currency":     currency,
					"success":      true,
					"completed_at": at,
				})
			if upd.Error != nil {
				return upd.Error
			}
			transitioned = upd.RowsAffected == 1
		}
		if err := tx.Where("chat_id = ?", chatID).First(&out).Error; err != nil {
			return err
		}
		if !transitioned {
			return nil
		}
		return markOwnerPaid(tx, &out)
	})
	if err != nil {
		return nil, false, err
	}
	return &out, transitioned, nil
}

// CreateSettledSubscription records a successful subscription payment and activates
// the lawyer's subscription in one transaction.
func (r *PaymentRepository) CreateSettledSubscription(lawyerID uint, amount decimal.Decimal, currency string, at time.Time) (*models.Payment, error) {
	p := &models.Payment{
		LawyerID:    &lawyerID,
		PaymentType: domain.PaymentTypeSubscription,
		Amount:      amount,
		Currency:    currency,
		Success:     true,
		CompletedAt: &at,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return markOwnerPaid(tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func markOwnerPaid(tx *gorm.DB, p *models.Payment) error {
	switch {
	case p.PaymentType == domain.PaymentTypeChat && p.ChatID != nil:
		return tx.Model(&models.ChatSession{}).Where("id = ?", *p.ChatID).Update("is_paid", true).Error
	case p.PaymentType == domain.PaymentTypeSubscription && p.LawyerID != nil:
		return tx.Model(&models.LawyerProfile{}).Where("id = ?", *p.LawyerID).Update("subscription_active", true).Error
	default:
		return errors.New("payment has no owner")
	}
}
