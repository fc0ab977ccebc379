package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"refgraph/internal/config"
	"refgraph/internal/importer"
	"refgraph/internal/repository/postgres"
)

func main() {
	// Parse command-line flags
	platformFlag := flag.String("platform", "", "Platform to import (default: all configured platforms)")
	dirFlag := flag.String("dir", "data", "Directory containing the CSV exports")
	clearFlag := flag.Bool("clear", false, "Delete the platform's existing rows before importing")
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before importing (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't import any data")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearFlag) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear) in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Resolve which platforms to import
	platforms := cfg.Platforms
	if *platformFlag != "" {
		p, ok := cfg.PlatformByName(*platformFlag)
		if !ok {
			log.Fatalf("Unknown platform %q (configured: %d)", *platformFlag, len(cfg.Platforms))
		}
		platforms = []config.Platform{p}
	}

	// Create repositories and the importer
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	purchaseRepo := postgres.NewPurchaseRepository(repoConfig)
	earningRepo := postgres.NewEarningRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	imp := importer.New(userRepo, purchaseRepo, earningRepo, txManager, logger)

	for _, platform := range platforms {
		log.Printf("🌱 Importing platform %s (environment: %s, prefix: %s)",
			platform.Name, cfg.Environment, cfg.TablePrefix)

		result, err := imp.ImportPlatform(ctx, platform, *dirFlag, *clearFlag)
		if err != nil {
			log.Fatalf("❌ Import failed for %s: %v", platform.Name, err)
		}

		log.Printf("✅ Imported %s: %d users in %d trees, %d purchases, %d earnings",
			platform.Name, result.Users, result.Trees, result.Purchases, result.Earnings)
	}

	log.Println("🎉 Import complete!")
}
