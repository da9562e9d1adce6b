package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/isdelr/intake-api/internal/api/handlers"
	"github.com/isdelr/intake-api/internal/auth"
	apimw "github.com/isdelr/intake-api/internal/middleware"
	"github.com/isdelr/intake-api/internal/services"
	"github.com/isdelr/intake-api/internal/websocket"
)

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	Hub               *websocket.Hub
	Schema            *graphql.Schema
	ClientService     services.ClientServiceProvider
	Limiter           *apimw.RateLimiter
	Health            *handlers.HealthHandler
	CORSOrigins       []string
	WebhookSigningKey string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.TokenMiddleware())

	limited := func(h http.HandlerFunc) http.Handler { return h }
	if d.Limiter != nil {
		limited = func(h http.HandlerFunc) http.Handler { return apimw.RateLimit(d.Limiter)(h) }
	}

	r.Method(http.MethodPost, "/graphql", limited((&relay.Handler{Schema: d.Schema}).ServeHTTP))

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(d.ClientService, d.WebhookSigningKey)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.CORSOrigins)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHandler.Serve)
		r.Get("/health", d.Health.Get)
		r.Method(http.MethodPost, "/webhooks/scheduling", limited(webhookHandler.Scheduling))
	})

	return r
}
