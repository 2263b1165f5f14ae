package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finmate/internal/cache"
	"finmate/internal/core"
	"finmate/internal/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500

	topCategoryCount = 5
	breakdownMonths  = 6
)

// TransactionService is the ledger: transaction CRUD plus the monthly
// and all-time aggregations built on top of it.
type TransactionService struct {
	db       *gorm.DB
	insights *cache.LRUCache[core.MonthlyInsight]
}

func NewTransactionService(db *gorm.DB, insights *cache.LRUCache[core.MonthlyInsight]) *TransactionService {
	return &TransactionService{db: db, insights: insights}
}

// TransactionInput is the payload for creating a transaction. Currency
// defaults to the user's currency and OccurredAt to now.
type TransactionInput struct {
	Category   string
	Amount     decimal.Decimal
	Currency   string
	Type       core.TransactionType
	OccurredAt time.Time
	Note       string
}

func (s *TransactionService) CreateTransaction(ctx context.Context, userID uint, input TransactionInput) (*models.Transaction, error) {
	if !input.Type.Valid() {
		return nil, core.ErrInvalidType
	}
	if err := core.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := core.ValidateCategory(input.Category); err != nil {
		return nil, err
	}
	if err := core.ValidateNote(input.Note); err != nil {
		return nil, err
	}

	code := input.Currency
	if code == "" {
		var user models.User
		if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
			return nil, fmt.Errorf("load user for currency default: %w", err)
		}
		code = user.Currency
	}
	code, err := core.NormalizeCurrency(code)
	if err != nil {
		return nil, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	transaction := &models.Transaction{
		UserID:     userID,
		Category:   input.Category,
		Amount:     input.Amount.Round(2),
		Currency:   code,
		Type:       input.Type,
		OccurredAt: occurredAt.UTC(),
		Note:       input.Note,
	}
	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.invalidateInsights(userID)
	return transaction, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, userID, id uint) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&transaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	return &transaction, nil
}

// TransactionUpdate carries the optional fields of a sparse update.
type TransactionUpdate struct {
	Category   *string
	Amount     *decimal.Decimal
	Currency   *string
	Type       *core.TransactionType
	OccurredAt *time.Time
	Note       *string
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, id uint, update TransactionUpdate) (*models.Transaction, error) {
	if _, err := s.GetTransaction(ctx, userID, id); err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if update.Category != nil {
		if err := core.ValidateCategory(*update.Category); err != nil {
			return nil, err
		}
		changes["category"] = *update.Category
	}
	if update.Amount != nil {
		if err := core.ValidateAmount(*update.Amount); err != nil {
			return nil, err
		}
		changes["amount"] = update.Amount.Round(2)
	}
	if update.Currency != nil {
		code, err := core.NormalizeCurrency(*update.Currency)
		if err != nil {
			return nil, err
		}
		changes["currency"] = code
	}
	if update.Type != nil {
		if !update.Type.Valid() {
			return nil, core.ErrInvalidType
		}
		changes["transaction_type"] = *update.Type
	}
	if update.OccurredAt != nil {
		changes["occurred_at"] = update.OccurredAt.UTC()
	}
	if update.Note != nil {
		if err := core.ValidateNote(*update.Note); err != nil {
			return nil, err
		}
		changes["note"] = *update.Note
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(changes).Error; err != nil {
			return nil, fmt.Errorf("update transaction: %w", err)
		}
		s.invalidateInsights(userID)
	}

	return s.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Transaction{})
	if result.Error != nil {
		return fmt.Errorf("delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	s.invalidateInsights(userID)
	return nil
}

// ListFilter narrows and pages a transaction listing.
type ListFilter struct {
	Type     core.TransactionType
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// ListTransactions returns the user's transactions, newest first. The
// page size is capped so one request cannot drag the whole ledger out.
func (s *TransactionService) ListTransactions(ctx context.Context, userID uint, filter ListFilter) ([]models.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Type != "" {
		if !filter.Type.Valid() {
			return nil, core.ErrInvalidType
		}
		query = query.Where("transaction_type = ?", filter.Type)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("occurred_at < ?", filter.To.UTC())
	}

	var transactions []models.Transaction
	err := query.Order("occurred_at DESC, id DESC").
		Limit(limit).
		Offset(max(filter.Offset, 0)).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

type typeSumRow struct {
	TransactionType core.TransactionType
	Total           decimal.Decimal
}

type categorySumRow struct {
	Category string
	Total    decimal.Decimal
}

// sumByType aggregates income and expense totals over [from, to). A nil
// bound leaves that side open.
func (s *TransactionService) sumByType(ctx context.Context, userID uint, from, to *time.Time) (income, expense decimal.Decimal, err error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("transaction_type, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", userID)
	if from != nil {
		query = query.Where("occurred_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("occurred_at < ?", to.UTC())
	}

	var rows []typeSumRow
	if err := query.Group("transaction_type").Scan(&rows).Error; err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum transactions by type: %w", err)
	}

	income, expense = decimal.Zero, decimal.Zero
	for _, row := range rows {
		switch row.TransactionType {
		case core.Income:
			income = row.Total
		case core.Expense:
			expense = row.Total
		}
	}
	return income, expense, nil
}

// expenseCategories aggregates expense totals per category over
// [from, to), largest first with the category name as tie-break. A
// limit of 0 returns all categories.
func (s *TransactionService) expenseCategories(ctx context.Context, userID uint, from, to *time.Time, limit int) ([]core.CategoryBreakdown, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("category, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND transaction_type = ?", userID, core.Expense)
	if from != nil {
		query = query.Where("occurred_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("occurred_at < ?", to.UTC())
	}
	query = query.Group("category").Order("total DESC, category ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []categorySumRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}

	breakdown := make([]core.CategoryBreakdown, 0, len(rows))
	for _, row := range rows {
		breakdown = append(breakdown, core.CategoryBreakdown{Category: row.Category, Amount: row.Total})
	}
	return breakdown, nil
}

// MonthlySummary returns the income and expense totals for the calendar
// month containing reference.
func (s *TransactionService) MonthlySummary(ctx context.Context, userID uint, reference time.Time) (income, expense decimal.Decimal, err error) {
	start, end := core.MonthBounds(reference)
	return s.sumByType(ctx, userID, &start, &end)
}

// TopExpenseCategories returns the largest expense categories for the
// calendar month containing reference.
func (s *TransactionService) TopExpenseCategories(ctx context.Context, userID uint, reference time.Time) ([]core.CategoryBreakdown, error) {
	start, end := core.MonthBounds(reference)
	return s.expenseCategories(ctx, userID, &start, &end, topCategoryCount)
}

// AllTimeSummary returns income and expense totals over the whole ledger.
func (s *TransactionService) AllTimeSummary(ctx context.Context, userID uint) (income, expense decimal.Decimal, err error) {
	return s.sumByType(ctx, userID, nil, nil)
}

// AllTimeExpenseCategories returns every expense category with its
// all-time total, largest first.
func (s *TransactionService) AllTimeExpenseCategories(ctx context.Context, userID uint) ([]core.CategoryBreakdown, error) {
	return s.expenseCategories(ctx, userID, nil, nil, 0)
}

// MonthTotals is one month of a breakdown series.
type MonthTotals struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// MonthlyBreakdown returns per-month totals for the last `months`
// calendar months ending at reference, oldest first.
func (s *TransactionService) MonthlyBreakdown(ctx context.Context, userID uint, reference time.Time, months int) ([]MonthTotals, error) {
	if months <= 0 {
		months = breakdownMonths
	}

	// Step back from the first of the month so a day-31 reference cannot
	// overflow into the wrong month.
	currentStart, _ := core.MonthBounds(reference)

	series := make([]MonthTotals, 0, months)
	for i := months - 1; i >= 0; i-- {
		start, end := core.MonthBounds(currentStart.AddDate(0, -i, 0))
		income, expense, err := s.sumByType(ctx, userID, &start, &end)
		if err != nil {
			return nil, err
		}
		series = append(series, MonthTotals{
			Month:   core.MonthLabel(start),
			Income:  income,
			Expense: expense,
		})
	}
	return series, nil
}

// MonthlyInsight assembles the month summary with top categories and
// the previous month's totals. Results are cached per user and month;
// any transaction write drops the user's cached entries.
func (s *TransactionService) MonthlyInsight(ctx context.Context, userID uint, reference time.Time) (core.MonthlyInsight, error) {
	key := s.insightKey(userID, reference)
	if cached, ok := s.insights.Get(key); ok {
		return cached, nil
	}

	income, expense, err := s.MonthlySummary(ctx, userID, reference)
	if err != nil {
		return core.MonthlyInsight{}, err
	}
	categories, err := s.TopExpenseCategories(ctx, userID, reference)
	if err != nil {
		return core.MonthlyInsight{}, err
	}

	start, _ := core.MonthBounds(reference)
	prevIncome, prevExpense, err := s.MonthlySummary(ctx, userID, start.AddDate(0, -1, 0))
	if err != nil {
		return core.MonthlyInsight{}, err
	}

	insight := core.ComposeInsight(core.MonthLabel(reference), income, expense, categories)
	insight.PrevTotalIncome = prevIncome
	insight.PrevTotalExpense = prevExpense
	insight.Carryover = prevIncome.Sub(prevExpense)

	s.insights.Set(key, insight)
	return insight, nil
}

func (s *TransactionService) insightKey(userID uint, reference time.Time) string {
	return fmt.Sprintf("user:%d:%s", userID, core.MonthLabel(reference))
}

func (s *TransactionService) invalidateInsights(userID uint) {
	s.insights.DeletePrefix(fmt.Sprintf("user:%d:", userID))
}
