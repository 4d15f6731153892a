package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerQuestion is an open, priced offer a lawyer can accept to start a chat.
type CustomerQuestion struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CustomerID     uint            `gorm:"not null;index" json:"customer_id"`
	Title          string          `gorm:"size:200;not null" json:"title"`
	Body           string          `gorm:"type:text" json:"body"`
	OfferedPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"offered_price"`
	IsOpen         bool            `gorm:"not null;index" json:"is_open"`
	ChosenLawyerID *uint           `gorm:"index" json:"chosen_lawyer_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Customer User `gorm:"foreignKey:CustomerID" json:"-"`
}

func (CustomerQuestion) TableName() string {
	return "customer_questions"
}
