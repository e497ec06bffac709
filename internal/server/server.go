package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/repik/lavanderia/internal/api/v1"
	"github.com/repik/lavanderia/internal/api/ws"
	"github.com/repik/lavanderia/internal/config"
	"github.com/repik/lavanderia/internal/server/middleware"
	redisstore "github.com/repik/lavanderia/internal/store/redis"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Auth    v1.AuthService
	Orders  v1.OrderService
	Clients v1.ClientRegistry
	Reports v1.ReportService
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	wsHub      *ws.Hub
}

// New creates a Server with all routes wired. db is pinged by the health
// check. pubsub may be nil, which disables /ws/orders. ctx bounds the
// rate limiter cleanup goroutines.
func New(ctx context.Context, cfg *config.Config, db v1.Pinger, pubsub *redisstore.PubSub, svc Services) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	// A nil *PubSub must not reach the interfaces as a typed nil.
	var (
		sub       ws.Subscriber
		redisPing v1.Pinger
	)
	if pubsub != nil {
		sub = pubsub
		redisPing = pubsub
	}
	hub := ws.NewHub(sub)

	s := &Server{
		router: router,
		wsHub:  hub,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	tenantLimit := middleware.RateLimit(ctx, cfg.RateLimit.TenantRPS, cfg.RateLimit.TenantBurst)

	// Mount API routes on /api with three sub-groups:
	// 1. Public: auth and health, limited per client IP.
	// 2. Authenticated: every tenant-scoped operation.
	// 3. Owner: operations restricted to the OWNER role.
	// Only the public group serves the OpenAPI document and docs UI.
	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst))

			humaCfg := v1.NewConfig("Lavandería API")
			if !cfg.Server.APIDocs {
				humaCfg = v1.WithoutDocs(humaCfg)
			}
			registerPublicRoutes(humachi.New(r, humaCfg), svc, db, redisPing)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RequireTenant())
			r.Use(tenantLimit)

			registerAPIRoutes(humachi.New(r, v1.WithoutDocs(v1.NewConfig("Lavandería API"))), svc)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RequireTenant())
			r.Use(middleware.RequireOwner())
			r.Use(tenantLimit)

			registerOwnerRoutes(humachi.New(r, v1.WithoutDocs(v1.NewConfig("Lavandería Owner API"))), svc)
		})
	})

	// WebSocket routes. Browsers cannot set headers on the upgrade request,
	// so the token may also arrive as ?token=.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.AuthWebSocket(cfg.JWT.Secret))
		r.Use(middleware.RequireTenant())
		registerWSRoutes(r, hub)
	})

	if !hub.Enabled() {
		log.Info().Msg("redis not configured, live order board disabled")
	}

	// Optional static dashboard.
	if cfg.Server.WebDir != "" {
		router.Mount("/app", http.StripPrefix("/app", spaFileServer(os.DirFS(cfg.Server.WebDir))))
		log.Info().Str("dir", cfg.Server.WebDir).Msg("static dashboard enabled on /app")
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
