package models

import (
	"time"

	"guardianangel/internal/domain"

	"gorm.io/gorm"
)

// User rows are owned by the identity service; this module reads role, e-mail and push token.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role      string         `gorm:"size:20;not null;index" json:"role"` // customer | lawyer
	FCMToken  string         `gorm:"size:512" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LawyerProfile *LawyerProfile `gorm:"foreignKey:UserID" json:"lawyer_profile,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsLawyer() bool   { return u.Role == domain.RoleLawyer }
func (u *User) IsCustomer() bool { return u.Role == domain.RoleCustomer }
