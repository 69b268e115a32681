package apperrors

import (
	"errors"
)

var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransactionExists   = errors.New("transaction already recorded")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidKind         = errors.New("unknown transaction kind")
	ErrInvalidAmount       = errors.New("amount must be positive")

	ErrUnknownPlan    = errors.New("unknown plan")
	ErrUnknownSegment = errors.New("unknown plan segment")
)
