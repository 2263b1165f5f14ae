package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"finmate/internal/auth"
	"finmate/internal/core"
)

const maxBodyBytes = 4 << 20 // generous enough for a base64 avatar

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain errors onto HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to clients.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, core.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrUnsupportedCurrency),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrCategoryTooLong),
		errors.Is(err, core.ErrNoteTooLong),
		errors.Is(err, core.ErrUnsupportedImageType),
		errors.Is(err, core.ErrInvalidImage),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrWeakPassword),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyQuestion),
		errors.Is(err, core.ErrQuestionTooLong),
		errors.Is(err, core.ErrInvalidConversationID):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// pathID parses the {id} path segment of the current route.
func pathID(r *http.Request) (uint, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
