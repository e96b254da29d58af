package handler

import (
	"context"
	"log/slog"
	"net/http"

	"accounts/internal/users"
)

type Accounts interface {
	Register(ctx context.Context, email, password string) (users.Public, error)
	Login(ctx context.Context, email, password string) (users.Public, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	GetUser(ctx context.Context, id uint64) (users.Public, error)
	ListUsers(ctx context.Context) ([]users.Public, error)
	ResetDatabase(ctx context.Context) error
}

type AccountHandler struct {
	Svc    Accounts
	Logger *slog.Logger
}

// credentialsReq accepts the password under either key; each endpoint
// decides which one it reads first.
type credentialsReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// userRef is the view returned by register and login.
type userRef struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

type userResp struct {
	Success string  `json:"success"`
	User    userRef `json:"user"`
}

func refOf(u users.Public) userRef {
	return userRef{ID: u.ID, Email: u.Email}
}

type successResp struct {
	Success string `json:"success"`
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}

	u, err := h.Svc.Register(r.Context(), req.Email, firstNonEmpty(req.Password, req.NewPassword))
	if err != nil {
		fail(w, r, h.Logger, err, "Registration failed")
		return
	}

	h.Logger.InfoContext(r.Context(), "user registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, userResp{Success: "User registered", User: refOf(u)})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}

	u, err := h.Svc.Login(r.Context(), req.Email, firstNonEmpty(req.Password, req.NewPassword))
	if err != nil {
		fail(w, r, h.Logger, err, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, userResp{Success: "Login successful", User: refOf(u)})
}

func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}

	if err := h.Svc.ForgotPassword(r.Context(), req.Email); err != nil {
		fail(w, r, h.Logger, err, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, successResp{Success: "Your email is valid"})
}

func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}

	if err := h.Svc.ResetPassword(r.Context(), req.Email, firstNonEmpty(req.NewPassword, req.Password)); err != nil {
		fail(w, r, h.Logger, err, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, successResp{Success: "Password reset successful"})
}
