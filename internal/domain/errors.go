package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrRateLimited          = errors.New("rate limited, try again shortly")
	ErrPaymentRequired      = errors.New("payment required")
	ErrAlreadyPaid          = errors.New("already paid")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrGateway              = errors.New("payment gateway error")
	ErrUnknownCorrelationID = errors.New("unknown correlation id")
	ErrLawyerUnavailable    = errors.New("lawyer is not accepting chats")
	ErrQuestionClosed       = errors.New("question is no longer open")
)
