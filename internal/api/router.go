package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/auth"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted behind API-key
// authentication. Read routes need the read scope, mutating routes the
// write scope; admin implies both.
func NewRouter(svc *noteservice.Service, authn *auth.Authenticator) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authn))

	// Any authenticated key may ask who it is; no scope needed.
	r.Get("/auth/verify", h.VerifyKey)

	r.Group(func(r chi.Router) {
		r.Use(RequireScope(models.ScopeRead))
		r.Get("/notes", h.SearchNotes)
		r.Get("/notes/{id}", h.GetNote)
		r.Get("/notebooks", h.ListNotebooks)
		r.Get("/notebooks/{ref}", h.GetNotebook)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireScope(models.ScopeWrite))
		r.Post("/notes", h.CreateNote)
		r.Put("/notes/{id}", h.UpdateNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/notebooks", h.CreateNotebook)
		r.Put("/notebooks/{ref}", h.UpdateNotebook)
		r.Delete("/notebooks/{ref}", h.DeleteNotebook)
	})

	return r
}
