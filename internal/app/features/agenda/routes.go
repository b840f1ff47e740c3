package agenda

import (
	"github.com/barbearia/calendario/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/agenda subrouter. Every route needs a bearer token.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(h.Auth.RequireAuth)

	r.Get("/", h.Errs.Wrap(h.list))
	r.Post("/", h.Errs.Wrap(h.create))
	r.Get("/availability", h.Errs.Wrap(h.availability))

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Errs.Wrap(h.get))
		r.Put("/", h.Errs.Wrap(h.update))
		r.Patch("/cancel", h.Errs.Wrap(h.cancel))
		r.With(h.Auth.RequireRole(models.RoleBarber, models.RoleAdmin)).
			Delete("/", h.Errs.Wrap(h.remove))
	})
	return r
}
