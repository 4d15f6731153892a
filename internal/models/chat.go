package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatSession is unique per (customer, lawyer). LawyerID references lawyer_profiles.
type ChatSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CustomerID      uint      `gorm:"not null;uniqueIndex:idx_chat_pair" json:"customer_id"`
	LawyerID        uint      `gorm:"not null;uniqueIndex:idx_chat_pair;index" json:"lawyer_id"`
	QuestionID      *uint     `gorm:"index" json:"question_id"`
	RequiresPayment bool      `gorm:"not null" json:"requires_payment"`
	IsPaid          bool      `gorm:"not null;default:false" json:"is_paid"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Customer User              `gorm:"foreignKey:CustomerID" json:"-"`
	Lawyer   LawyerProfile     `gorm:"foreignKey:LawyerID" json:"-"`
	Question *CustomerQuestion `gorm:"foreignKey:QuestionID" json:"-"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// HasParticipant reports whether a caller, given by user id and lawyer profile id, is one of the two participants.
func (c *ChatSession) HasParticipant(userID, lawyerProfileID uint) bool {
	if c.CustomerID == userID {
		return true
	}
	return lawyerProfileID != 0 && c.LawyerID == lawyerProfileID
}

type ChatMessage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ChatID    uint           `gorm:"not null;index" json:"chat_id"`
	SenderID  uint           `gorm:"not null;index" json:"sender_id"`
	Content   string         `gorm:"type:text" json:"content"`
	MediaURL  string         `gorm:"size:512" json:"media_url"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Chat   ChatSession `gorm:"foreignKey:ChatID" json:"-"`
	Sender User        `gorm:"foreignKey:SenderID" json:"-"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
