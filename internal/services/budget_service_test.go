package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finmate/internal/cache"
	"finmate/internal/core"
)

func TestBudgetLifecycle(t *testing.T) {
	db := newTestDB(t)
	s := NewBudgetService(db)
	user := createTestUser(t, db, "budget@example.com")
	ctx := context.Background()

	budget, err := s.CreateBudget(ctx, user.ID, BudgetInput{
		Category:    "food",
		LimitAmount: decimal.RequireFromString("300.00"),
	})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if budget.Period != core.Monthly {
		t.Errorf("Period = %q, want monthly default", budget.Period)
	}
	if budget.StartsOn.IsZero() {
		t.Error("StartsOn was not defaulted")
	}

	newLimit := decimal.RequireFromString("350.00")
	updated, err := s.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{LimitAmount: &newLimit})
	if err != nil {
		t.Fatalf("UpdateBudget() error = %v", err)
	}
	if !updated.LimitAmount.Equal(newLimit) {
		t.Errorf("LimitAmount = %s, want 350.00", updated.LimitAmount)
	}

	list, err := s.ListBudgets(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListBudgets() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListBudgets() returned %d, want 1", len(list))
	}

	if err := s.DeleteBudget(ctx, user.ID, budget.ID); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if _, err := s.GetBudget(ctx, user.ID, budget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetBudget() after delete error = %v, want ErrNotFound", err)
	}
}

func TestBudgetValidation(t *testing.T) {
	db := newTestDB(t)
	s := NewBudgetService(db)
	user := createTestUser(t, db, "budget@example.com")
	ctx := context.Background()

	if _, err := s.CreateBudget(ctx, user.ID, BudgetInput{Category: "", LimitAmount: decimal.NewFromInt(100)}); !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("CreateBudget() error = %v, want ErrEmptyCategory", err)
	}
	if _, err := s.CreateBudget(ctx, user.ID, BudgetInput{Category: "food", LimitAmount: decimal.Zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("CreateBudget() error = %v, want ErrInvalidAmount", err)
	}
	if _, err := s.CreateBudget(ctx, user.ID, BudgetInput{Category: "food", LimitAmount: decimal.NewFromInt(100), Period: "daily"}); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Errorf("CreateBudget() error = %v, want ErrInvalidPeriod", err)
	}
}

func TestBudgetStatuses(t *testing.T) {
	db := newTestDB(t)
	budgets := NewBudgetService(db)
	transactions := NewTransactionService(db, cache.NewLRUCache[core.MonthlyInsight](64, time.Minute))
	user := createTestUser(t, db, "budget@example.com")
	ctx := context.Background()
	ref := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	if _, err := budgets.CreateBudget(ctx, user.ID, BudgetInput{
		Category:    "food",
		LimitAmount: decimal.RequireFromString("100.00"),
	}); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	mustCreateTransaction(t, transactions, user.ID, core.Expense, "food", "80", ref)
	mustCreateTransaction(t, transactions, user.ID, core.Expense, "food", "45", ref)
	mustCreateTransaction(t, transactions, user.ID, core.Expense, "rent", "700", ref)

	statuses, err := budgets.BudgetStatuses(ctx, user.ID, ref)
	if err != nil {
		t.Fatalf("BudgetStatuses() error = %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("BudgetStatuses() returned %d, want 1", len(statuses))
	}
	status := statuses[0]
	if !status.Spent.Equal(decimal.NewFromInt(125)) {
		t.Errorf("Spent = %s, want 125", status.Spent)
	}
	if !status.Remaining.Equal(decimal.NewFromInt(-25)) {
		t.Errorf("Remaining = %s, want -25", status.Remaining)
	}
	if !status.Exceeded {
		t.Error("Exceeded = false, want true")
	}
}

func TestBudgetOwnership(t *testing.T) {
	db := newTestDB(t)
	s := NewBudgetService(db)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	ctx := context.Background()

	budget, err := s.CreateBudget(ctx, owner.ID, BudgetInput{
		Category:    "food",
		LimitAmount: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	if _, err := s.GetBudget(ctx, other.ID, budget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetBudget() by non-owner error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteBudget(ctx, other.ID, budget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteBudget() by non-owner error = %v, want ErrNotFound", err)
	}
}
