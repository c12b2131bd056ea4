package router

import (
	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftvault/driftvault/internal/middleware"
	"github.com/driftvault/driftvault/internal/setup"
	"github.com/driftvault/driftvault/shared/middleware/metrics"
)

// New creates and configures the chi router with all routes.
func New(deps *setup.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(metrics.Middleware)

	allowedOrigins := deps.Config.Public.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-SHA256-Checksum"},
		MaxAge:         300,
	}))

	h := deps.Handler

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens))

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.Upload)
			r.Get("/sync", h.Sync)
			r.Get("/state", h.State)
			r.Get("/{id}", h.Download)
			r.Delete("/{id}", h.Delete)
		})

		r.Route("/albums", func(r chi.Router) {
			r.Post("/", h.CreateAlbum)
			r.Get("/sync", h.SyncAlbums)
			r.Post("/{id}/files", h.AddAlbumFiles)
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", h.Profile)
			r.Patch("/profile", h.UpdateProfile)
			r.Get("/quota", h.Quota)
		})

		r.Post("/thumbnails/batch", h.ThumbnailBatch)
	})

	return r
}
