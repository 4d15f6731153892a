package repository

import (
	"guardianangel/internal/models"

	"gorm.io/gorm"
)

type LawyerRepository struct {
	db *gorm.DB
}

func NewLawyerRepository(db *gorm.DB) *LawyerRepository {
	return &LawyerRepository{db: db}
}

func (r *LawyerRepository) GetByID(id uint) (*models.LawyerProfile, error) {
	var p models.LawyerProfile
	err := r.db.Preload("User").First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *LawyerRepository) GetByUserID(userID uint) (*models.LawyerProfile, error) {
	var p models.LawyerProfile
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}
