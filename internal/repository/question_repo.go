package repository

import (
	"guardianangel/internal/models"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Create(q *models.CustomerQuestion) error {
	return r.db.Create(q).Error
}

func (r *QuestionRepository) GetByID(id uint) (*models.CustomerQuestion, error) {
	var q models.CustomerQuestion
	err := r.db.First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) ListOpen(limit, offset int) ([]models.CustomerQuestion, error) {
	var list []models.CustomerQuestion
	err := r.db.Where("is_open = ?", true).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *QuestionRepository) ListByCustomerID(customerID uint, limit, offset int) ([]models.CustomerQuestion, error) {
	var list []models.CustomerQuestion
	err := r.db.Where("customer_id = ?", customerID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// Close marks an open question as taken by lawyerID. It reports false when another
// lawyer closed it first.
func (r *QuestionRepository) Close(id, lawyerID uint) (bool, error) {
	res := r.db.Model(&models.CustomerQuestion{}).
		Where("id = ? AND is_open = ?", id, true).
		Updates(map[string]interface{}{"is_open": false, "chosen_lawyer_id": lawyerID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *QuestionRepository) Reopen(id uint) error {
	return r.db.Model(&models.CustomerQuestion{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_open": true, "chosen_lawyer_id": nil}).Error
}
