package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v9"
	"github.com/goccy/go-json"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/http/handler"
	"github.com/straye-as/crm-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/crm-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                *config.Config
	logger             *zap.Logger
	store              docstore.Store
	redisClient        *redis.Client
	authMiddleware     *auth.Middleware
	rateLimiter        *middleware.RateLimiter
	authHandler        *handler.AuthHandler
	customerHandler    *handler.CustomerHandler
	opportunityHandler *handler.OpportunityHandler
	priceBookHandler   *handler.PriceBookHandler
	userHandler        *handler.UserHandler
	metadataHandler    *handler.MetadataHandler
	liveHandler        *handler.LiveHandler
}

// NewRouter wires the handlers. redisClient is nil when Redis is disabled.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	store docstore.Store,
	redisClient *redis.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	customerHandler *handler.CustomerHandler,
	opportunityHandler *handler.OpportunityHandler,
	priceBookHandler *handler.PriceBookHandler,
	userHandler *handler.UserHandler,
	metadataHandler *handler.MetadataHandler,
	liveHandler *handler.LiveHandler,
) *Router {
	return &Router{
		cfg:                cfg,
		logger:             logger,
		store:              store,
		redisClient:        redisClient,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		authHandler:        authHandler,
		customerHandler:    customerHandler,
		opportunityHandler: opportunityHandler,
		priceBookHandler:   priceBookHandler,
		userHandler:        userHandler,
		metadataHandler:    metadataHandler,
		liveHandler:        liveHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness check (document store and, when enabled, Redis)
	r.Get("/health/ready", rt.ready)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Identify)

		// Reference metadata is readable without signing in
		r.Get("/metadata/countries", rt.metadataHandler.ListCountries)
		r.Get("/metadata/currencies", rt.metadataHandler.ListCurrencies)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireActor)
			r.Use(rt.rateLimiter.Limit)

			// Session
			r.Get("/session", rt.authHandler.Session)
			r.Post("/session", rt.authHandler.RecordLogin)

			// Customers
			r.Route("/customers", func(r chi.Router) {
				r.Get("/", rt.customerHandler.List)
				r.Post("/", rt.customerHandler.Create)
				r.Get("/{id}", rt.customerHandler.GetByID)
				r.Put("/{id}", rt.customerHandler.Update)
				r.Delete("/{id}", rt.customerHandler.Delete)
			})

			// Opportunities
			r.Route("/opportunities", func(r chi.Router) {
				r.Get("/", rt.opportunityHandler.List)
				r.Post("/", rt.opportunityHandler.Create)
				r.Get("/{id}", rt.opportunityHandler.GetByID)
				r.Put("/{id}", rt.opportunityHandler.Update)
				r.Delete("/{id}", rt.opportunityHandler.Delete)
			})

			// Price book
			r.Route("/price-book", func(r chi.Router) {
				r.Get("/", rt.priceBookHandler.List)
				r.Post("/", rt.priceBookHandler.Create)
				r.Get("/{id}", rt.priceBookHandler.GetByID)
				r.Put("/{id}", rt.priceBookHandler.Update)
				r.Delete("/{id}", rt.priceBookHandler.Delete)
			})

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", rt.userHandler.List)
				r.Post("/", rt.userHandler.Create)
				r.Get("/{id}", rt.userHandler.GetByID)
				r.Put("/{id}/role", rt.userHandler.UpdateRole)
				r.Delete("/{id}", rt.userHandler.Delete)
			})

			// Metadata writes share paths with the public reads above
			r.Post("/metadata/countries", rt.metadataHandler.UpsertCountry)
			r.Delete("/metadata/countries/{code}", rt.metadataHandler.DeleteCountry)
			r.Post("/metadata/currencies", rt.metadataHandler.UpsertCurrency)
			r.Delete("/metadata/currencies/{code}", rt.metadataHandler.DeleteCurrency)

			// Live views
			r.Route("/live", func(r chi.Router) {
				r.Get("/customers", rt.liveHandler.Customers)
				r.Get("/opportunities", rt.liveHandler.Opportunities)
				r.Get("/price-book", rt.liveHandler.PriceBook)
				r.Get("/users", rt.liveHandler.Users)
			})
		})
	})

	return r
}

func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := rt.store.Ping(r.Context()); err != nil {
		rt.logger.Error("Document store health check failed", zap.Error(err))
		checks["store"] = map[string]interface{}{
			"status":  "unhealthy",
			"backend": rt.cfg.Store.Backend,
			"error":   err.Error(),
		}
		allHealthy = false
	} else {
		checks["store"] = map[string]interface{}{
			"status":  "healthy",
			"backend": rt.cfg.Store.Backend,
		}
	}

	if rt.redisClient != nil {
		if err := rt.redisClient.Ping(r.Context()).Err(); err != nil {
			rt.logger.Error("Redis health check failed", zap.Error(err))
			checks["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["redis"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
