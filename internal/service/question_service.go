package service

import (
	"errors"
	"strings"

	"guardianangel/internal/domain"
	"guardianangel/internal/models"
	"guardianangel/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	minOffer = decimal.RequireFromString(domain.MinOfferedPrice)
	maxOffer = decimal.RequireFromString(domain.MaxOfferedPrice)

	ErrQuestionTitle = errors.New("title is required")
)

type QuestionService struct {
	repo *repository.QuestionRepository
}

func NewQuestionService(repo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{repo: repo}
}

// Create posts an open question. Offers must lie within the allowed price band.
func (s *QuestionService) Create(p domain.Principal, title, body string, offered decimal.Decimal) (*models.CustomerQuestion, error) {
	if !p.IsCustomer() {
		return nil, domain.ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrQuestionTitle
	}
	if offered.LessThan(minOffer) || offered.GreaterThan(maxOffer) {
		return nil, domain.ErrInvalidPrice
	}
	q := &models.CustomerQuestion{
		CustomerID:   p.UserID,
		Title:        title,
		Body:         strings.TrimSpace(body),
		OfferedPrice: offered.Round(2),
		IsOpen:       true,
	}
	if err := s.repo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

// List shows lawyers the open questions and customers their own.
func (s *QuestionService) List(p domain.Principal, limit, offset int) ([]models.CustomerQuestion, error) {
	if p.IsLawyer() {
		if !p.Approved {
			return nil, domain.ErrForbidden
		}
		return s.repo.ListOpen(limit, offset)
	}
	return s.repo.ListByCustomerID(p.UserID, limit, offset)
}
