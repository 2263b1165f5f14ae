package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"finmate/internal/currency"
	"finmate/internal/services"
)

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUser(r.Context(), currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateMeRequest struct {
	FullName      *string          `json:"full_name"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), currentUserID(r), services.UserUpdate{
		FullName:      req.FullName,
		MonthlyIncome: req.MonthlyIncome,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.users.ChangePassword(r.Context(), currentUserID(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

type profilePictureRequest struct {
	Image string `json:"image"`
}

func (s *Server) handleUpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	var req profilePictureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "missing image")
		return
	}

	user, err := s.users.UpdateProfilePicture(r.Context(), currentUserID(r), req.Image)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type changeCurrencyRequest struct {
	Currency        string `json:"currency"`
	ConvertExisting bool   `json:"convert_existing"`
}

func (s *Server) handleChangeCurrency(w http.ResponseWriter, r *http.Request) {
	var req changeCurrencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.ChangeCurrency(r.Context(), currentUserID(r), req.Currency, req.ConvertExisting)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSupportedCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"currencies": currency.Supported()})
}
