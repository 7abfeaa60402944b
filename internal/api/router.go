package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/wikimeta/internal/wiki"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced; defaultUser
// acts for requests without an X-Wiki-User header.
func NewRouter(svc *wiki.Service, authEnabled bool, token, defaultUser string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Use(UserMiddleware(defaultUser))

	// Pages.
	r.Get("/pages", h.ListPages)
	r.Post("/pages", h.CreatePage)
	r.Delete("/pages/*", h.DeletePage)
	r.Post("/rename/*", h.RenamePage)

	// Metadata.
	r.Get("/meta/*", h.GetMeta)
	r.Put("/meta/*", h.SetMeta)
	r.Get("/history/*", h.History)
	r.Get("/edit-defaults/*", h.EditDefaults)
	r.Post("/reorder", h.Reorder)

	// Filter form.
	r.Get("/filters", h.Filters)
	r.Put("/tag-categories", h.SetTagCategory)
	r.Delete("/tag-categories", h.RemoveTagCategory)
	r.Get("/users", h.Users)

	return r
}
