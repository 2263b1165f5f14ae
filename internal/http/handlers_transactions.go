package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"finmate/internal/core"
	"finmate/internal/services"
)

type transactionRequest struct {
	Category   string               `json:"category"`
	Amount     decimal.Decimal      `json:"amount"`
	Currency   string               `json:"currency"`
	Type       core.TransactionType `json:"transaction_type"`
	OccurredAt *time.Time           `json:"occurred_at"`
	Note       string               `json:"note"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := services.TransactionInput{
		Category: req.Category,
		Amount:   req.Amount,
		Currency: req.Currency,
		Type:     req.Type,
		Note:     req.Note,
	}
	if req.OccurredAt != nil {
		input.OccurredAt = *req.OccurredAt
	}

	transaction, err := s.transactions.CreateTransaction(r.Context(), currentUserID(r), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transaction)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := services.ListFilter{
		Type:     core.TransactionType(q.Get("type")),
		Category: q.Get("category"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' timestamp, want RFC 3339")
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' timestamp, want RFC 3339")
			return
		}
		filter.To = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'limit'")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'offset'")
			return
		}
		filter.Offset = n
	}

	transactions, err := s.transactions.ListTransactions(r.Context(), currentUserID(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	transaction, err := s.transactions.GetTransaction(r.Context(), currentUserID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transaction)
}

type transactionUpdateRequest struct {
	Category   *string               `json:"category"`
	Amount     *decimal.Decimal      `json:"amount"`
	Currency   *string               `json:"currency"`
	Type       *core.TransactionType `json:"transaction_type"`
	OccurredAt *time.Time            `json:"occurred_at"`
	Note       *string               `json:"note"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req transactionUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transaction, err := s.transactions.UpdateTransaction(r.Context(), currentUserID(r), id, services.TransactionUpdate{
		Category:   req.Category,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Type:       req.Type,
		OccurredAt: req.OccurredAt,
		Note:       req.Note,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transaction)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.transactions.DeleteTransaction(r.Context(), currentUserID(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
