// Package web exposes the HTTP surface: thin handlers mapping verbs and
// paths onto the refresh pipeline and the country store.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/country-pulse/internal/refresh"
	"github.com/sells-group/country-pulse/internal/store"
)

// Server bundles the handlers' collaborators.
type Server struct {
	store     store.Store
	pipeline  *refresh.Pipeline
	imagePath string
}

// NewServer creates the HTTP server core.
func NewServer(st store.Store, pipeline *refresh.Pipeline, imagePath string) *Server {
	return &Server{store: st, pipeline: pipeline, imagePath: imagePath}
}

// Router builds the chi router with the full endpoint surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Route("/countries", func(r chi.Router) {
		r.Get("/", s.handleListCountries)
		r.Get("/refresh", s.handleRefresh)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/image", s.handleImage)
		r.Get("/{name}", s.handleGetCountry)
		r.Delete("/{name}", s.handleDeleteCountry)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})

	return r
}
