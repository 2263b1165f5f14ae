package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"finmate/internal/cache"
	"finmate/internal/core"
	"finmate/internal/models"
)

// newTestDB opens a uniquely named in-memory SQLite database. The
// shared cache keeps it alive across the pool's connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.BudgetGoal{},
		&models.SavingsGoal{},
		&models.AdviceEntry{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func newTestTransactionService(t *testing.T) (*TransactionService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	insights := cache.NewLRUCache[core.MonthlyInsight](64, time.Minute)
	return NewTransactionService(db, insights), db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:          email,
		FullName:       "Test User",
		HashedPassword: "irrelevant",
		Currency:       "EUR",
		MonthlyIncome:  decimal.Zero,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func mustCreateTransaction(t *testing.T, s *TransactionService, userID uint, typ core.TransactionType, category string, amount string, occurredAt time.Time) *models.Transaction {
	t.Helper()
	transaction, err := s.CreateTransaction(context.Background(), userID, TransactionInput{
		Category:   category,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "EUR",
		Type:       typ,
		OccurredAt: occurredAt,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return transaction
}
