package repository

import (
	"guardianangel/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetWithLawyerProfile loads the user and, for lawyers, their profile.
func (r *UserRepository) GetWithLawyerProfile(id uint) (*models.User, error) {
	var u models.User
	err := r.db.Preload("LawyerProfile").First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateFCMToken(id uint, token string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token).Error
}
