package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// monthReference resolves the optional ?month=YYYY-MM parameter,
// defaulting to the current month.
func monthReference(r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("month")
	if v == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Server) handleMonthlyInsight(w http.ResponseWriter, r *http.Request) {
	ref, ok := monthReference(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid 'month', want YYYY-MM")
		return
	}

	insight, err := s.transactions.MonthlyInsight(r.Context(), currentUserID(r), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

type allTimeSummaryResponse struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
}

func (s *Server) handleAllTimeSummary(w http.ResponseWriter, r *http.Request) {
	income, expense, err := s.transactions.AllTimeSummary(r.Context(), currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, allTimeSummaryResponse{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	})
}

func (s *Server) handleAllTimeCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.transactions.AllTimeExpenseCategories(r.Context(), currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleMonthlyBreakdown(w http.ResponseWriter, r *http.Request) {
	months := 0
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 24 {
			writeError(w, http.StatusBadRequest, "invalid 'months', want 1-24")
			return
		}
		months = n
	}

	series, err := s.transactions.MonthlyBreakdown(r.Context(), currentUserID(r), time.Now().UTC(), months)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
