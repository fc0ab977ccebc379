package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"refgraph/internal/auth"
	"refgraph/internal/config"
	"refgraph/internal/handler"
	"refgraph/internal/middleware"
	"refgraph/internal/repository/postgres"
	"refgraph/internal/service"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	// Tee logs to a rotating file when LOG_DIR is set
	var logOut io.Writer = os.Stdout
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		logFile, err := config.SetupLogFile(dir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

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

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	purchaseRepo := postgres.NewPurchaseRepository(repoConfig)
	earningRepo := postgres.NewEarningRepository(repoConfig)
	assignmentRepo := postgres.NewAssignmentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Create services
	userService := service.NewUserService(userRepo, purchaseRepo, earningRepo, logger)
	hierarchyService := service.NewHierarchyService(userRepo, txManager, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, userRepo, txManager, logger)

	// Create handlers
	userHandler := handler.NewUserHandler(userService, cfg, logger)
	treeHandler := handler.NewTreeHandler(hierarchyService, cfg, logger)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)

	logger.Info("services initialized", "platforms", len(cfg.Platforms))

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", userHandler.HealthCheck)

	// User routes. Literal segments (search, roots) take precedence over the
	// {id} wildcard in the 1.22 mux.
	mux.HandleFunc("GET /api/{platform}/users", userHandler.ListUsers)
	mux.HandleFunc("GET /api/{platform}/users/search", userHandler.SearchUsers)
	mux.HandleFunc("GET /api/{platform}/users/roots", treeHandler.ListRoots)
	mux.HandleFunc("GET /api/{platform}/users/{id}", userHandler.GetUser)

	// Hierarchy routes
	mux.HandleFunc("GET /api/{platform}/users/{id}/tree", treeHandler.GetTree)
	mux.HandleFunc("GET /api/{platform}/users/{id}/ancestors", treeHandler.GetAncestors)
	mux.HandleFunc("POST /api/{platform}/users/{id}/reparent", treeHandler.Reparent)

	// Ledger routes
	mux.HandleFunc("GET /api/{platform}/purchases", userHandler.ListPurchases)
	mux.HandleFunc("GET /api/{platform}/earnings", userHandler.ListEarnings)

	// Stats
	mux.HandleFunc("GET /api/{platform}/stats", userHandler.GetStats)

	// Seller assignment routes
	mux.HandleFunc("POST /api/sellers/assignments/claim", assignmentHandler.Claim)
	mux.HandleFunc("POST /api/sellers/assignments/unclaim", assignmentHandler.Unclaim)
	mux.HandleFunc("GET /api/sellers/assignments/mine", assignmentHandler.Mine)
	mux.HandleFunc("GET /api/sellers/assignments/for-user", assignmentHandler.ForUser)
	mux.HandleFunc("GET /api/sellers/assignments/bulk", assignmentHandler.Bulk)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	h = middleware.Auth(jwtVerifier)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
