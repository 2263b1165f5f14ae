package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finmate/internal/core"
	"finmate/internal/models"
)

// BudgetService manages per-category spending limits.
type BudgetService struct {
	db *gorm.DB
}

func NewBudgetService(db *gorm.DB) *BudgetService {
	return &BudgetService{db: db}
}

type BudgetInput struct {
	Category    string
	LimitAmount decimal.Decimal
	Period      core.BudgetPeriod
	StartsOn    time.Time
}

func (s *BudgetService) CreateBudget(ctx context.Context, userID uint, input BudgetInput) (*models.BudgetGoal, error) {
	if err := core.ValidateCategory(input.Category); err != nil {
		return nil, err
	}
	if err := core.ValidateAmount(input.LimitAmount); err != nil {
		return nil, err
	}
	period := input.Period
	if period == "" {
		period = core.Monthly
	}
	if !period.Valid() {
		return nil, core.ErrInvalidPeriod
	}
	startsOn := input.StartsOn
	if startsOn.IsZero() {
		startsOn, _ = core.MonthBounds(time.Now())
	}

	budget := &models.BudgetGoal{
		UserID:      userID,
		Category:    input.Category,
		LimitAmount: input.LimitAmount.Round(2),
		Period:      period,
		StartsOn:    startsOn.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(budget).Error; err != nil {
		return nil, fmt.Errorf("create budget goal: %w", err)
	}
	return budget, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, userID, id uint) (*models.BudgetGoal, error) {
	var budget models.BudgetGoal
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load budget goal: %w", err)
	}
	return &budget, nil
}

func (s *BudgetService) ListBudgets(ctx context.Context, userID uint) ([]models.BudgetGoal, error) {
	var budgets []models.BudgetGoal
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("category ASC").Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("list budget goals: %w", err)
	}
	return budgets, nil
}

type BudgetUpdate struct {
	Category    *string
	LimitAmount *decimal.Decimal
	Period      *core.BudgetPeriod
	StartsOn    *time.Time
}

func (s *BudgetService) UpdateBudget(ctx context.Context, userID, id uint, update BudgetUpdate) (*models.BudgetGoal, error) {
	if _, err := s.GetBudget(ctx, userID, id); err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if update.Category != nil {
		if err := core.ValidateCategory(*update.Category); err != nil {
			return nil, err
		}
		changes["category"] = *update.Category
	}
	if update.LimitAmount != nil {
		if err := core.ValidateAmount(*update.LimitAmount); err != nil {
			return nil, err
		}
		changes["limit_amount"] = update.LimitAmount.Round(2)
	}
	if update.Period != nil {
		if !update.Period.Valid() {
			return nil, core.ErrInvalidPeriod
		}
		changes["period"] = *update.Period
	}
	if update.StartsOn != nil {
		changes["starts_on"] = update.StartsOn.UTC()
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.BudgetGoal{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(changes).Error; err != nil {
			return nil, fmt.Errorf("update budget goal: %w", err)
		}
	}

	return s.GetBudget(ctx, userID, id)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.BudgetGoal{})
	if result.Error != nil {
		return fmt.Errorf("delete budget goal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// BudgetStatus pairs a budget with the spending recorded against its
// category in the current month.
type BudgetStatus struct {
	Budget    models.BudgetGoal `json:"budget"`
	Spent     decimal.Decimal   `json:"spent"`
	Remaining decimal.Decimal   `json:"remaining"`
	Exceeded  bool              `json:"exceeded"`
}

// BudgetStatuses reports current-month spending against every budget.
func (s *BudgetService) BudgetStatuses(ctx context.Context, userID uint, reference time.Time) ([]BudgetStatus, error) {
	budgets, err := s.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}

	start, end := core.MonthBounds(reference)

	statuses := make([]BudgetStatus, 0, len(budgets))
	for _, budget := range budgets {
		var row struct{ Total decimal.Decimal }
		err := s.db.WithContext(ctx).Model(&models.Transaction{}).
			Select("COALESCE(SUM(amount), 0) AS total").
			Where("user_id = ? AND transaction_type = ? AND category = ? AND occurred_at >= ? AND occurred_at < ?",
				userID, core.Expense, budget.Category, start, end).
			Scan(&row).Error
		if err != nil {
			return nil, fmt.Errorf("sum spending for category %q: %w", budget.Category, err)
		}

		statuses = append(statuses, BudgetStatus{
			Budget:    budget,
			Spent:     row.Total,
			Remaining: budget.LimitAmount.Sub(row.Total),
			Exceeded:  row.Total.GreaterThan(budget.LimitAmount),
		})
	}
	return statuses, nil
}
