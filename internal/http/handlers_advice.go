package http

import (
	"net/http"
	"strconv"
)

type adviceRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleGenerateAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.advice.GenerateAdvice(r.Context(), currentUserID(r), req.Question, req.ConversationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListAdvice(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'limit'")
			return
		}
		limit = n
	}

	entries, err := s.advice.ListAdvice(r.Context(), currentUserID(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearAdvice(w http.ResponseWriter, r *http.Request) {
	if err := s.advice.ClearAdvice(r.Context(), currentUserID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.advice.ListConversations(r.Context(), currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	entries, err := s.advice.GetConversation(r.Context(), currentUserID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.advice.DeleteConversation(r.Context(), currentUserID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
