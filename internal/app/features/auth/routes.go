package authapi

import "github.com/go-chi/chi/v5"

// Routes returns the /api/auth subrouter. register and login are public;
// me and logout need a bearer token.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Errs.Wrap(h.register))
	r.Post("/login", h.Errs.Wrap(h.login))

	r.Group(func(pr chi.Router) {
		pr.Use(h.Auth.RequireAuth)
		pr.Get("/me", h.Errs.Wrap(h.me))
		pr.Get("/me/logins", h.Errs.Wrap(h.logins))
		pr.Post("/logout", h.Errs.Wrap(h.logout))
	})
	return r
}
