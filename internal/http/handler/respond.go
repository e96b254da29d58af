package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"accounts/internal/account"
	"accounts/internal/auth"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string   `json:"error"`
	Field   string   `json:"field,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// fail maps service errors to responses. Anything outside the known set is
// logged and answered with the generic message only.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, generic string) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Field: verr.Field, Details: verr.Details})
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already exists")
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, account.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, account.ErrResetDisabled):
		writeError(w, http.StatusForbidden, "Not allowed in production")
	default:
		logger.ErrorContext(r.Context(), generic,
			"error", err,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, generic)
	}
}
