package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"lorebook/internal/auth"
	"lorebook/internal/config"
	"lorebook/internal/handler"
	"lorebook/internal/middleware"
	"lorebook/internal/ratelimit"
	"lorebook/internal/repository/postgres"
	"lorebook/internal/repository/postgres/migrations"
	"lorebook/internal/service/markdown"
	"lorebook/internal/service/policy"
	serviceWiki "lorebook/internal/service/wiki"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Apply schema migrations before anything touches the database
	if cfg.TablePrefix == "" {
		if err := migrations.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	} else {
		logger.Warn("table prefix set, skipping bundled migrations; schema must be managed externally")
	}

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	directoryRepo := postgres.NewDirectoryRepository(repoConfig)
	pageRepo := postgres.NewPageRepository(repoConfig)
	grantRepo := postgres.NewGrantRepository(repoConfig)
	identityRepo := postgres.NewIdentityRepository(repoConfig)
	revisionRepo := postgres.NewRevisionRepository(repoConfig)
	lockRepo := postgres.NewEditLockRepository(repoConfig)
	linkRepo := postgres.NewPageLinkRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Policy engine and markdown renderer
	evaluator := policy.NewEvaluator(directoryRepo, grantRepo, identityRepo, logger)
	propagator := policy.NewPropagator(directoryRepo, pageRepo, grantRepo, txManager, logger)
	renderer := markdown.NewService(pageRepo, logger)

	// Wiki services
	pageService := serviceWiki.NewPageService(pageRepo, directoryRepo, grantRepo, revisionRepo, linkRepo, lockRepo, evaluator, renderer, txManager, logger)
	dirService := serviceWiki.NewDirectoryService(directoryRepo, grantRepo, revisionRepo, lockRepo, evaluator, propagator, txManager, logger)
	grantService := serviceWiki.NewGrantService(grantRepo, pageRepo, directoryRepo, evaluator, logger)
	lockService := serviceWiki.NewEditLockService(lockRepo, pageRepo, directoryRepo, evaluator, logger)

	// Rate limit rules (embedded YAML)
	limiter, err := ratelimit.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load rate limit rules: %v", err)
	}

	// Handlers
	pageHandler := handler.NewPageHandler(pageService, logger)
	dirHandler := handler.NewDirectoryHandler(dirService, logger)
	grantHandler := handler.NewGrantHandler(grantService, logger)
	lockHandler := handler.NewLockHandler(lockService, logger)

	logger.Info("services initialized")

	// Expired locks are advisory leftovers; sweep them in the background
	cleanupInterval, err := time.ParseDuration(cfg.LockCleanupInterval)
	if err != nil {
		log.Fatalf("Invalid LOCK_CLEANUP_INTERVAL: %v", err)
	}
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			removed, err := lockService.CleanupExpired(ctx)
			if err != nil {
				logger.Error("lock cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("expired locks removed", "count", removed)
			}
		}
	}()

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	searchLimited := limiter.Middleware("search")
	writeLimited := limiter.Middleware("write")

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Page routes
	mux.Handle("POST /api/pages", writeLimited(http.HandlerFunc(pageHandler.CreatePage)))
	mux.HandleFunc("GET /api/pages", pageHandler.ListPages)
	mux.Handle("GET /api/pages/search", searchLimited(http.HandlerFunc(pageHandler.SearchPages))) // Must come before {id} route
	mux.HandleFunc("GET /api/pages/slug/{slug}", pageHandler.GetPageBySlug)
	mux.HandleFunc("GET /api/pages/{id}", pageHandler.GetPage)
	mux.Handle("PATCH /api/pages/{id}", writeLimited(http.HandlerFunc(pageHandler.UpdatePage)))
	mux.Handle("DELETE /api/pages/{id}", writeLimited(http.HandlerFunc(pageHandler.DeletePage)))
	mux.Handle("POST /api/pages/{id}/move", writeLimited(http.HandlerFunc(pageHandler.MovePage)))
	mux.HandleFunc("GET /api/pages/{id}/rendered", pageHandler.RenderPage)
	mux.HandleFunc("GET /api/pages/{id}/revisions", pageHandler.ListRevisions)
	mux.HandleFunc("GET /api/pages/{id}/backlinks", pageHandler.ListBacklinks)

	// Directory routes
	mux.Handle("POST /api/directories", writeLimited(http.HandlerFunc(dirHandler.CreateDirectory)))
	mux.HandleFunc("GET /api/directories", dirHandler.ListChildren)
	mux.HandleFunc("GET /api/directories/by-path", dirHandler.GetDirectoryByPath) // Must come before {id} route
	mux.HandleFunc("GET /api/directories/{id}", dirHandler.GetDirectory)
	mux.Handle("PATCH /api/directories/{id}", writeLimited(http.HandlerFunc(dirHandler.UpdateDirectory)))
	mux.Handle("DELETE /api/directories/{id}", writeLimited(http.HandlerFunc(dirHandler.DeleteDirectory)))
	mux.Handle("POST /api/directories/{id}/move", writeLimited(http.HandlerFunc(dirHandler.MoveDirectory)))
	mux.HandleFunc("GET /api/directories/{id}/breadcrumbs", dirHandler.Breadcrumbs)
	mux.Handle("POST /api/directories/{id}/apply-permissions", writeLimited(http.HandlerFunc(dirHandler.ApplyPermissions)))

	// Grant routes (subresource of pages and directories)
	mux.HandleFunc("GET /api/pages/{id}/grants", grantHandler.ListPageGrants)
	mux.Handle("POST /api/pages/{id}/grants", writeLimited(http.HandlerFunc(grantHandler.AddPageGrant)))
	mux.HandleFunc("GET /api/directories/{id}/grants", grantHandler.ListDirectoryGrants)
	mux.Handle("POST /api/directories/{id}/grants", writeLimited(http.HandlerFunc(grantHandler.AddDirectoryGrant)))
	mux.Handle("DELETE /api/grants/{id}", writeLimited(http.HandlerFunc(grantHandler.RemoveGrant)))

	// Edit lock routes
	mux.HandleFunc("POST /api/pages/{id}/lock", lockHandler.AcquirePageLock)
	mux.HandleFunc("DELETE /api/pages/{id}/lock", lockHandler.ReleasePageLock)
	mux.HandleFunc("POST /api/directories/{id}/lock", lockHandler.AcquireDirectoryLock)
	mux.HandleFunc("DELETE /api/directories/{id}/lock", lockHandler.ReleaseDirectoryLock)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.Auth(jwtVerifier, identityRepo, logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
