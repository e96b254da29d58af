package http

import (
	"log/slog"
	"net/http"

	"accounts/internal/config"
	"accounts/internal/http/handler"
	mw "accounts/internal/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg config.Config, svc handler.Accounts, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AccountHandler{Svc: svc, Logger: logger}
	r.Post("/register", ah.Register)
	r.Post("/login", ah.Login)
	r.Post("/forgot-password", ah.ForgotPassword)
	r.Post("/reset-password", ah.ResetPassword)

	r.Get("/users", ah.ListUsers)
	r.Get("/users/{id}", ah.GetUser)

	r.Get("/reset-db", ah.ResetDatabase)
	r.Post("/reset-db", ah.ResetDatabase)
	r.Get("/reset-base", ah.ResetDatabase)
	r.Post("/reset-base", ah.ResetDatabase)

	return r
}
