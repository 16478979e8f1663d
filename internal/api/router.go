package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trihash/internal/hashservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *hashservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records.
	r.Get("/records", h.ListRecords)
	r.Post("/records", h.HashRecord)
	r.Post("/records/batch", h.HashRecords)
	r.Get("/records/{id}", h.GetRecord)
	r.Delete("/records/{id}", h.DeleteRecord)

	// Identifiers.
	r.Get("/records/{id}/identifiers", h.Identifiers)
	r.Get("/records/{id}/history/{field}", h.History)
	r.Get("/records/{id}/verify/{field}", h.Verify)
	r.Get("/lookup/{sch}", h.Lookup)
	r.Get("/segments/{segment}", h.DecodeSegment)

	// Export and import.
	r.Get("/records/{id}/export", h.ExportRecord)
	r.Post("/export", h.Export)
	r.Post("/import", h.Import)
	r.Get("/exports", h.ListExports)
	r.Get("/exports/*", h.ReadExport)
	r.Delete("/exports/*", h.DeleteExport)

	r.Get("/frames", h.Frames)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
