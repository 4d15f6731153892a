package repository

import (
	"guardianangel/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetOrCreate returns the chat for (customerID, lawyerID), creating it unpaid when absent.
// created is true only for the call that inserted the row; an existing chat is returned as stored.
func (r *ChatRepository) GetOrCreate(customerID, lawyerID uint, requiresPayment bool, questionID *uint) (*models.ChatSession, bool, error) {
	chat := &models.ChatSession{
		CustomerID:      customerID,
		LawyerID:        lawyerID,
		QuestionID:      questionID,
		RequiresPayment: requiresPayment,
	}
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "lawyer_id"}},
		DoNothing: true,
	}).Create(chat)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return chat, true, nil
	}
	existing, err := r.FindByPair(customerID, lawyerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ChatRepository) FindByPair(customerID, lawyerID uint) (*models.ChatSession, error) {
	var c models.ChatSession
	err := r.db.Where("customer_id = ? AND lawyer_id = ?", customerID, lawyerID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID always reads the current row; callers rely on it for the paid check.
func (r *ChatRepository) GetByID(id uint) (*models.ChatSession, error) {
	var c models.ChatSession
	err := r.db.Preload("Question").First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepository) ListForCustomer(customerID uint, limit, offset int) ([]models.ChatSession, error) {
	var list []models.ChatSession
	err := r.db.Where("customer_id = ?", customerID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ChatRepository) ListForLawyer(lawyerID uint, limit, offset int) ([]models.ChatSession, error) {
	var list []models.ChatSession
	err := r.db.Where("lawyer_id = ?", lawyerID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ChatRepository) CreateMessage(m *models.ChatMessage) error {
	return r.db.Create(m).Error
}

func (r *ChatRepository) ListMessages(chatID uint, limit, offset int) ([]models.ChatMessage, error) {
	var list []models.ChatMessage
	err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
