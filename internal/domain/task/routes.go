package task

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adspredia/adspredia-api/internal/middleware"
)

// Routes returns task router. protected must authenticate the device and load its store.
func (h *Handler) Routes(protected ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(protected...)

	r.Get("/", h.List)
	r.Get("/categories", h.Categories)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/", h.Create)
		r.Post("/{id}/complete", h.Complete)
	})

	return r
}
