package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LawyerProfile struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UserID             uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	FullName           string          `gorm:"size:100;not null" json:"full_name"`
	Bio                string          `gorm:"type:text" json:"bio"`
	IsApproved         bool            `gorm:"default:false;index" json:"is_approved"`
	FeePerChat         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"fee_per_chat"`
	SubscriptionActive bool            `gorm:"default:false;index" json:"subscription_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (LawyerProfile) TableName() string {
	return "lawyer_profiles"
}

// AcceptsChats reports whether customers may open a chat with this lawyer.
func (l *LawyerProfile) AcceptsChats() bool { return l.IsApproved && l.SubscriptionActive }
