package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finmate/internal/core"
	"finmate/internal/services"
)

type budgetRequest struct {
	Category    string            `json:"category"`
	LimitAmount decimal.Decimal   `json:"limit_amount"`
	Period      core.BudgetPeriod `json:"period"`
	StartsOn    *time.Time        `json:"starts_on"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := services.BudgetInput{
		Category:    req.Category,
		LimitAmount: req.LimitAmount,
		Period:      req.Period,
	}
	if req.StartsOn != nil {
		input.StartsOn = *req.StartsOn
	}

	budget, err := s.budgets.CreateBudget(r.Context(), currentUserID(r), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListBudgets(r.Context(), currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleBudgetStatuses(w http.ResponseWriter, r *http.Request) {
	ref, ok := monthReference(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid 'month', want YYYY-MM")
		return
	}

	statuses, err := s.budgets.BudgetStatuses(r.Context(), currentUserID(r), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := s.budgets.GetBudget(r.Context(), currentUserID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

type budgetUpdateRequest struct {
	Category    *string            `json:"category"`
	LimitAmount *decimal.Decimal   `json:"limit_amount"`
	Period      *core.BudgetPeriod `json:"period"`
	StartsOn    *time.Time         `json:"starts_on"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req budgetUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := s.budgets.UpdateBudget(r.Context(), currentUserID(r), id, services.BudgetUpdate{
		Category:    req.Category,
		LimitAmount: req.LimitAmount,
		Period:      req.Period,
		StartsOn:    req.StartsOn,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.budgets.DeleteBudget(r.Context(), currentUserID(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
