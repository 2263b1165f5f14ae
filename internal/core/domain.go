package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Monthly BudgetPeriod = "monthly"
	Weekly  BudgetPeriod = "weekly"
	Yearly  BudgetPeriod = "yearly"
)

type (
	TransactionType string

	BudgetPeriod string
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidCurrency      = errors.New("currency must be a 3-letter code")
	ErrUnsupportedCurrency  = errors.New("unsupported currency")
	ErrImageTooLarge        = errors.New("image exceeds maximum size")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrInvalidImage         = errors.New("image is not valid base64")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidPeriod        = errors.New("invalid budget period")
	ErrEmptyCategory        = errors.New("empty category")
	ErrCategoryTooLong      = errors.New("category too long")
	ErrNoteTooLong          = errors.New("note too long")

	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	ErrEmptyName             = errors.New("name cannot be empty")
	ErrEmptyQuestion         = errors.New("question cannot be empty")
	ErrQuestionTooLong       = errors.New("question too long")
	ErrInvalidConversationID = errors.New("invalid conversation id")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (p BudgetPeriod) Valid() bool {
	return p == Monthly || p == Weekly || p == Yearly
}

// ValidateAmount checks that a monetary amount is strictly positive.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeCurrency uppercases a currency code and validates its shape.
// Codes are exactly three ASCII letters (e.g. "EUR", "USD").
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

// ValidateCategory rejects empty or oversized category names.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrEmptyCategory
	}
	if len(category) > 64 {
		return ErrCategoryTooLong
	}
	return nil
}

// ValidateNote bounds optional free-text notes.
func ValidateNote(note string) error {
	if len(note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}
