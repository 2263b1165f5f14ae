package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryBreakdown is one row of an expense-by-category aggregation.
type CategoryBreakdown struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlyInsight summarizes one calendar month of activity, with the previous
// month's totals carried along for trend display.
type MonthlyInsight struct {
	Month                string              `json:"month"`
	TotalIncome          decimal.Decimal     `json:"total_income"`
	TotalExpense         decimal.Decimal     `json:"total_expense"`
	Balance              decimal.Decimal     `json:"balance"`
	TopExpenseCategories []CategoryBreakdown `json:"top_expense_categories"`
	PrevTotalIncome      decimal.Decimal     `json:"prev_total_income"`
	PrevTotalExpense     decimal.Decimal     `json:"prev_total_expense"`
	Carryover            decimal.Decimal     `json:"carryover"`
}

// MonthBounds returns the half-open UTC interval [start, end) covering the
// calendar month of reference. Transactions with occurred_at in exactly one
// such interval belong to exactly one month.
func MonthBounds(reference time.Time) (start, end time.Time) {
	reference = reference.UTC()
	start = time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// MonthLabel renders a reference time as the ISO YYYY-MM month label.
func MonthLabel(reference time.Time) string {
	return reference.UTC().Format("2006-01")
}

// ComposeInsight builds a MonthlyInsight from aggregation results.
func ComposeInsight(monthLabel string, totalIncome, totalExpense decimal.Decimal, categories []CategoryBreakdown) MonthlyInsight {
	return MonthlyInsight{
		Month:                monthLabel,
		TotalIncome:          totalIncome,
		TotalExpense:         totalExpense,
		Balance:              totalIncome.Sub(totalExpense),
		TopExpenseCategories: categories,
	}
}

// SummaryText renders an insight as the one-paragraph summary used in advice
// prompts and fallback responses.
func (m MonthlyInsight) SummaryText() string {
	parts := make([]string, 0, len(m.TopExpenseCategories))
	for _, c := range m.TopExpenseCategories {
		parts = append(parts, fmt.Sprintf("%s: %s", c.Category, c.Amount.StringFixed(2)))
	}
	topCategories := strings.Join(parts, ", ")
	if topCategories == "" {
		topCategories = "not enough data"
	}
	return fmt.Sprintf(
		"For %s you have a total income of %s and expenses of %s. The balance is %s. Most of your spending is in the categories: %s.",
		m.Month,
		m.TotalIncome.StringFixed(2),
		m.TotalExpense.StringFixed(2),
		m.Balance.StringFixed(2),
		topCategories,
	)
}
