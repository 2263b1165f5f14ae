package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finmate/internal/core"
	"finmate/internal/models"
)

// SavingsService manages named savings goals and contributions to them.
type SavingsService struct {
	db *gorm.DB
}

func NewSavingsService(db *gorm.DB) *SavingsService {
	return &SavingsService{db: db}
}

type SavingsInput struct {
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Icon          string
}

func (s *SavingsService) CreateGoal(ctx context.Context, userID uint, input SavingsInput) (*models.SavingsGoal, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, core.ErrEmptyName
	}
	if err := core.ValidateAmount(input.TargetAmount); err != nil {
		return nil, err
	}
	if input.CurrentAmount.IsNegative() {
		return nil, core.ErrInvalidAmount
	}
	icon := input.Icon
	if icon == "" {
		icon = "🎯"
	}

	goal := &models.SavingsGoal{
		UserID:        userID,
		Name:          name,
		TargetAmount:  input.TargetAmount.Round(2),
		CurrentAmount: input.CurrentAmount.Round(2),
		Icon:          icon,
	}
	if err := s.db.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, fmt.Errorf("create savings goal: %w", err)
	}
	return goal, nil
}

func (s *SavingsService) GetGoal(ctx context.Context, userID, id uint) (*models.SavingsGoal, error) {
	var goal models.SavingsGoal
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load savings goal: %w", err)
	}
	return &goal, nil
}

func (s *SavingsService) ListGoals(ctx context.Context, userID uint) ([]models.SavingsGoal, error) {
	var goals []models.SavingsGoal
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	return goals, nil
}

type SavingsUpdate struct {
	Name          *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	Icon          *string
}

func (s *SavingsService) UpdateGoal(ctx context.Context, userID, id uint, update SavingsUpdate) (*models.SavingsGoal, error) {
	if _, err := s.GetGoal(ctx, userID, id); err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, core.ErrEmptyName
		}
		changes["name"] = name
	}
	if update.TargetAmount != nil {
		if err := core.ValidateAmount(*update.TargetAmount); err != nil {
			return nil, err
		}
		changes["target_amount"] = update.TargetAmount.Round(2)
	}
	if update.CurrentAmount != nil {
		if update.CurrentAmount.IsNegative() {
			return nil, core.ErrInvalidAmount
		}
		changes["current_amount"] = update.CurrentAmount.Round(2)
	}
	if update.Icon != nil && *update.Icon != "" {
		changes["icon"] = *update.Icon
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.SavingsGoal{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(changes).Error; err != nil {
			return nil, fmt.Errorf("update savings goal: %w", err)
		}
	}

	return s.GetGoal(ctx, userID, id)
}

func (s *SavingsService) DeleteGoal(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.SavingsGoal{})
	if result.Error != nil {
		return fmt.Errorf("delete savings goal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Contribute adds an amount to a goal's saved total. Negative amounts
// are rejected; withdrawals go through UpdateGoal instead.
func (s *SavingsService) Contribute(ctx context.Context, userID, id uint, amount decimal.Decimal) (*models.SavingsGoal, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return nil, err
	}

	goal, err := s.GetGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	next := goal.CurrentAmount.Add(amount.Round(2))
	if err := s.db.WithContext(ctx).Model(&models.SavingsGoal{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("current_amount", next).Error; err != nil {
		return nil, fmt.Errorf("record contribution: %w", err)
	}

	return s.GetGoal(ctx, userID, id)
}
