// Package server exposes the aggregation, ranking, recipe, and
// document CRUD endpoints over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/aggregate"
	"github.com/food-for-zot/grocer/internal/rank"
	"github.com/food-for-zot/grocer/internal/recipe"
	"github.com/food-for-zot/grocer/internal/store"
)

// Server wires the HTTP handlers to the core components.
type Server struct {
	aggregator *aggregate.Aggregator
	ranker     *rank.Ranker
	recipes    *recipe.Generator
	docs       store.DocStore
}

// New creates a Server.
func New(aggregator *aggregate.Aggregator, ranker *rank.Ranker, recipes *recipe.Generator, docs store.DocStore) *Server {
	return &Server{
		aggregator: aggregator,
		ranker:     ranker,
		recipes:    recipes,
		docs:       docs,
	}
}

// Router builds the chi route tree. allowedOrigins feeds the CORS
// middleware for the browser frontend.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/prices", s.handlePrices)
		r.Post("/prices/rank", s.handleRank)

		r.Post("/recipes/generate", s.handleGenerateRecipe)

		for _, collection := range []string{"users", "lists", "recipes"} {
			s.mountCollection(r, collection)
		}
	})

	return r
}

// mountCollection registers the document CRUD routes for one
// collection.
func (s *Server) mountCollection(r chi.Router, collection string) {
	r.Route("/"+collection, func(r chi.Router) {
		r.Get("/", s.handleListDocs(collection))
		r.Post("/", s.handleCreateDoc(collection))
		r.Get("/{id}", s.handleGetDoc(collection))
		r.Patch("/{id}", s.handleUpdateDoc(collection))
		r.Delete("/{id}", s.handleDeleteDoc(collection))

		if collection == "lists" {
			r.Post("/{id}/items", s.handleListItems(false))
			r.Delete("/{id}/items", s.handleListItems(true))
		}
	})
}

// requestLogger logs one line per request with the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
