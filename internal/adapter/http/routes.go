package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the bridge routes on the given chi router. Every
// route except /health sits behind auth.
func MountRoutes(r chi.Router, h *Handlers, auth func(http.Handler) http.Handler) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/run", h.RunCommand)
		r.Get("/read", h.ReadFile)
		r.Post("/write", h.WriteFile)
		r.Post("/git", h.GitOp)
		r.Post("/github/pr", h.OpenPullRequest)
	})
}
