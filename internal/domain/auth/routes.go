package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns auth router. protected must authenticate the device and load its store.
func (h *Handler) Routes(protected ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(protected...)

	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)

	return r
}
