package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Service, setRoot RootSetter, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, setRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records.
	r.Get("/files", h.ListFiles)
	r.Get("/files/*", h.GetFile)
	r.Put("/files/*", h.SaveFile)

	// Folders.
	r.Get("/folders", h.ListFolders)
	r.Get("/folders/schema", h.FoldersUnderSchema)

	// Schemas.
	r.Get("/schemas", h.ListSchemas)
	r.Get("/schemas/*", h.GetSchema)
	r.Put("/schemas/*", h.SaveSchema)

	// Root folder.
	r.Get("/root", h.GetRoot)
	r.Post("/root", h.SetRoot)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
