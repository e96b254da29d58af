package handler

import (
	"net/http"
	"strconv"

	"accounts/internal/users"

	"github.com/go-chi/chi/v5"
)

type usersResp struct {
	Users []users.Public `json:"users"`
}

type oneUserResp struct {
	User users.Public `json:"user"`
}

func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListUsers(r.Context())
	if err != nil {
		fail(w, r, h.Logger, err, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, usersResp{Users: list})
}

func (h *AccountHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	u, err := h.Svc.GetUser(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, oneUserResp{User: u})
}

// ResetDatabase removes every account. The service refuses it in production.
func (h *AccountHandler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ResetDatabase(r.Context()); err != nil {
		fail(w, r, h.Logger, err, "Server error")
		return
	}

	h.Logger.WarnContext(r.Context(), "database reset")
	writeJSON(w, http.StatusOK, successResp{Success: "Database reset successful"})
}
