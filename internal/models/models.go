// Package models defines the persistent entities. The schema itself is owned
// by the SQL migrations in internal/storage; the gorm tags here mirror it for
// query building and for the in-memory test databases.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"finmate/internal/core"
)

// User owns every other entity. Deleting a user cascades to all of them.
type User struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Email           string          `gorm:"size:320;uniqueIndex;not null" json:"email"`
	FullName        string          `gorm:"size:120" json:"full_name"`
	HashedPassword  string          `gorm:"size:255;not null" json:"-"`
	IsEmailVerified bool            `gorm:"not null;default:false" json:"is_email_verified"`
	ProfilePicture  string          `gorm:"size:500" json:"profile_picture"`
	Currency        string          `gorm:"size:3;not null;default:EUR" json:"currency"`
	MonthlyIncome   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"monthly_income"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Transactions  []Transaction `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Budgets       []BudgetGoal  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	SavingsGoals  []SavingsGoal `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AdviceEntries []AdviceEntry `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Transaction struct {
	ID         uint                 `gorm:"primaryKey" json:"id"`
	UserID     uint                 `gorm:"index;not null" json:"user_id"`
	Category   string               `gorm:"size:64;not null" json:"category"`
	Amount     decimal.Decimal      `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency   string               `gorm:"size:3;not null;default:EUR" json:"currency"`
	Type       core.TransactionType `gorm:"column:transaction_type;size:16;not null" json:"transaction_type"`
	OccurredAt time.Time            `gorm:"not null;index" json:"occurred_at"`
	Note       string               `gorm:"size:500" json:"note"`
	CreatedAt  time.Time            `json:"created_at"`
}

type BudgetGoal struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uint              `gorm:"index;not null" json:"user_id"`
	Category    string            `gorm:"size:64;not null" json:"category"`
	LimitAmount decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"limit_amount"`
	Period      core.BudgetPeriod `gorm:"size:16;not null;default:monthly" json:"period"`
	StartsOn    time.Time         `gorm:"not null" json:"starts_on"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type SavingsGoal struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"index;not null" json:"user_id"`
	Name          string          `gorm:"size:128;not null" json:"name"`
	TargetAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"current_amount"`
	Icon          string          `gorm:"size:16;default:🎯" json:"icon"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AdviceEntry is one prompt/response pair. A conversation is the set of
// entries sharing a conversation ID; it is never stored as its own row.
type AdviceEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	ConversationID string    `gorm:"size:36;index;not null" json:"conversation_id"`
	Prompt         string    `gorm:"size:512;not null" json:"prompt"`
	Response       string    `gorm:"type:text;not null" json:"response"`
	CreatedAt      time.Time `json:"created_at"`
}
