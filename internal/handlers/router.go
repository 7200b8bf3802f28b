package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router bundles what the HTTP surface needs.
type Router struct {
	Webhook        *WebhookHandler
	Auth           *AuthHandler
	Catalog        *CatalogHandler
	AuthMiddleware func(http.Handler) http.Handler
	RequestTimeout time.Duration
}

// Handler builds the chi router with public and admin routes.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if rt.RequestTimeout > 0 {
		r.Use(middleware.Timeout(rt.RequestTimeout))
	}

	// --- Public Routes ---
	r.Get("/healthz", Health)
	r.Post("/api/telegram/webhook", rt.Webhook.Receive)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", rt.Auth.Login)

		// --- Protected Routes ---
		r.Group(func(protected chi.Router) {
			protected.Use(rt.AuthMiddleware)

			protected.Route("/courses", func(r chi.Router) {
				r.Post("/", rt.Catalog.CreateCourse)
				r.Get("/", rt.Catalog.ListCourses)

				r.Route("/{courseID}", func(r chi.Router) {
					r.Get("/", rt.Catalog.GetCourse)
					r.Delete("/", rt.Catalog.DeleteCourse)
					r.Post("/files", rt.Catalog.CreateFile)
				})
			})

			protected.Route("/files/{fileID}", func(r chi.Router) {
				r.Delete("/", rt.Catalog.DeleteFile)
				r.Post("/chunks", rt.Catalog.CreateChunk)
				r.Post("/ingest", rt.Catalog.IngestFile)
			})

			protected.Route("/chunks/{chunkID}", func(r chi.Router) {
				r.Get("/", rt.Catalog.GetChunk)
				r.Put("/", rt.Catalog.UpdateChunk)
				r.Delete("/", rt.Catalog.DeleteChunk)
			})

			protected.Post("/maintenance/run", rt.Catalog.RunMaintenance)
		})
	})
	return r
}
