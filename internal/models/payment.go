package models

import (
	"time"

	"guardianangel/internal/domain"

	"github.com/shopspring/decimal"
)

// Payment is owned by exactly one of a chat (PaymentType chat) or a lawyer (PaymentType subscription).
// ProviderRef is the gateway correlation id; nil until the checkout exists.
type Payment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ChatID      *uint           `gorm:"uniqueIndex" json:"chat_id,omitempty"`
	LawyerID    *uint           `gorm:"index" json:"lawyer_id,omitempty"`
	PaymentType string          `gorm:"size:20;not null;index" json:"payment_type"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	ProviderRef *string         `gorm:"size:255;uniqueIndex" json:"provider_ref,omitempty"`
	Success     bool            `gorm:"not null;default:false;index" json:"success"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) Status() string {
	if p.Success {
		return domain.PaymentStatusSuccess
	}
	return domain.PaymentStatusPending
}
