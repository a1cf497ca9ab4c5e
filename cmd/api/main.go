package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/straye-as/crm-api/docs"
	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/cache"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/database"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/http/handler"
	"github.com/straye-as/crm-api/internal/http/middleware"
	"github.com/straye-as/crm-api/internal/http/router"
	"github.com/straye-as/crm-api/internal/jobs"
	"github.com/straye-as/crm-api/internal/live"
	"github.com/straye-as/crm-api/internal/logger"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// @title Straye CRM API
// @version 1.0
// @description CRM API for customers, opportunities, price book and user administration
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer ID token
// @Security BearerAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging", "production":
		if host := os.Getenv("PUBLIC_HOST"); host != "" {
			docs.SwaggerInfo.Host = host
		}
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Redis is optional: it caches the admin summary and fans out change notifications
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("Redis connection failed, continuing without it",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
			redisClient = nil
		} else {
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	store, err := openStore(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Error closing document store", zap.Error(err))
		}
	}()
	log.Info("Document store initialized", zap.String("backend", cfg.Store.Backend))

	// Access policy
	accessRouter := access.NewRouter(accessConfig(cfg, log))
	bootstrapIdentity := access.BootstrapIdentity{
		Email:   cfg.Bootstrap.Email,
		Subject: cfg.Bootstrap.UID,
	}
	bootstrap := access.NewBootstrapPolicy(bootstrapIdentity)
	if bootstrapIdentity.Enabled() {
		log.Info("Bootstrap admin identity configured", zap.String("email", cfg.Bootstrap.Email))
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(store)
	opportunityRepo := repository.NewOpportunityRepository(store)
	priceBookRepo := repository.NewPriceBookRepository(store)
	userRepo := repository.NewUserRepository(store)
	metadataRepo := repository.NewMetadataRepository(store)

	// Initialize services
	var summaryCache cache.SummaryCache
	if redisClient != nil {
		summaryCache = cache.NewRedisSummaryCache(redisClient, cfg.Redis.SummaryTTLDuration())
	}
	summaryService := service.NewAdminSummaryService(userRepo, metadataRepo, summaryCache, log)
	customerService := service.NewCustomerService(store, customerRepo, metadataRepo, accessRouter, log)
	opportunityService := service.NewOpportunityService(store, opportunityRepo, customerRepo, accessRouter, log)
	priceBookService := service.NewPriceBookService(store, priceBookRepo, accessRouter, log)
	userService := service.NewUserService(store, userRepo, summaryService, accessRouter, log)
	metadataService := service.NewMetadataService(store, metadataRepo, accessRouter, log)

	// Initialize middleware
	verifier, err := auth.NewVerifier(ctx, cfg, firebaseOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	authMiddleware := auth.NewMiddleware(verifier, userService, summaryService, bootstrap, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Live subscriptions
	registry := live.NewRegistry(log)
	defer registry.Close()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, log)
	customerHandler := handler.NewCustomerHandler(customerService, log)
	opportunityHandler := handler.NewOpportunityHandler(opportunityService, log)
	priceBookHandler := handler.NewPriceBookHandler(priceBookService, log)
	userHandler := handler.NewUserHandler(userService, log)
	metadataHandler := handler.NewMetadataHandler(metadataService, log)
	liveHandler := handler.NewLiveHandler(
		registry,
		customerService,
		opportunityService,
		priceBookService,
		userService,
		cfg.Live.HeartbeatDuration(),
		log,
	)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		store,
		redisClient,
		authMiddleware,
		rateLimiter,
		authHandler,
		customerHandler,
		opportunityHandler,
		priceBookHandler,
		userHandler,
		metadataHandler,
		liveHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterSummaryReconcileJob(
			scheduler,
			summaryService,
			log,
			cfg.Jobs.SummaryReconcileCron,
			true, // reconcile once on startup
		); err != nil {
			log.Error("Failed to register admin summary reconcile job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with admin summary reconcile job",
				zap.String("cron_expr", cfg.Jobs.SummaryReconcileCron),
			)
		}
	} else {
		log.Info("Background jobs disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Live streams never finish on their own; end them before draining
		registry.Close()

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("Error closing Redis connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}

// openStore connects the configured document store backend. SQL backends publish change
// notifications through Redis when it is available so every instance sees every write.
func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			// The Firestore client reads the emulator address from the environment
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, fmt.Errorf("failed to configure firestore emulator: %w", err)
			}
			log.Info("Using Firestore emulator", zap.String("host", cfg.Firestore.EmulatorHost))
		}
		store, err := docstore.NewFirestoreStore(ctx, cfg.Firestore.ProjectID, log, firebaseOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore: %w", err)
		}
		return store, nil

	default:
		db, err := database.NewDatabase(cfg.Store.Backend, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		var broker docstore.Broker
		if redisClient != nil {
			broker = cache.NewRedisBroker(redisClient, cfg.Redis.ChangeChannelPrefix, log)
		} else {
			broker = docstore.NewLocalBroker()
		}

		store := docstore.NewSQLStore(db, broker, log)
		if cfg.Store.AutoMigrate {
			if err := store.AutoMigrate(); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("failed to migrate document table: %w", err)
			}
		}
		return store, nil
	}
}

// firebaseOptions returns the client options for Firestore and Firebase Auth
func firebaseOptions(cfg *config.Config) []option.ClientOption {
	switch {
	case cfg.Firestore.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.Firestore.CredentialsJSON))}
	case cfg.Firestore.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.Firestore.CredentialsFile)}
	default:
		return nil
	}
}

func accessConfig(cfg *config.Config, log *zap.Logger) access.Config {
	var kinds []access.ResourceKind
	for _, name := range cfg.Access.PublicReadable {
		kind := access.ResourceKind(name)
		if !kind.IsValid() {
			log.Warn("Ignoring unknown public-readable resource kind", zap.String("kind", name))
			continue
		}
		kinds = append(kinds, kind)
	}
	return access.Config{PublicReadable: kinds}
}
