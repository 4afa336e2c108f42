package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"lorebook/internal/config"
	wikiSvc "lorebook/internal/domain/services/wiki"
	"lorebook/internal/repository/postgres"
	"lorebook/internal/repository/postgres/migrations"
	"lorebook/internal/service/markdown"
	"lorebook/internal/service/policy"
	serviceWiki "lorebook/internal/service/wiki"

	"lorebook/internal/domain/models/wiki"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed content")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := migrations.MigrateUp(cfg.DatabaseURL, logger); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Create repositories and services
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
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

	evaluator := policy.NewEvaluator(directoryRepo, grantRepo, identityRepo, logger)
	propagator := policy.NewPropagator(directoryRepo, pageRepo, grantRepo, txManager, logger)
	renderer := markdown.NewService(pageRepo, logger)

	pageService := serviceWiki.NewPageService(pageRepo, directoryRepo, grantRepo, revisionRepo, linkRepo, lockRepo, evaluator, renderer, txManager, logger)
	dirService := serviceWiki.NewDirectoryService(directoryRepo, grantRepo, revisionRepo, lockRepo, evaluator, propagator, txManager, logger)

	// Seed users; the first one becomes the system owner
	log.Println("👤 Seeding users...")
	adminID := "00000000-0000-0000-0000-000000000001"
	writerID := "00000000-0000-0000-0000-000000000002"
	if err := identityRepo.EnsureUser(ctx, adminID, "admin@example.com"); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}
	if err := identityRepo.EnsureUser(ctx, writerID, "writer@example.com"); err != nil {
		log.Fatalf("Failed to seed writer user: %v", err)
	}
	if _, err := identityRepo.SetSystemOwnerIfUnset(ctx, adminID); err != nil {
		log.Fatalf("Failed to set system owner: %v", err)
	}

	groupID, err := identityRepo.EnsureGroup(ctx, "editors")
	if err != nil {
		log.Fatalf("Failed to seed editors group: %v", err)
	}
	if err := identityRepo.AddUserToGroup(ctx, writerID, groupID); err != nil {
		log.Fatalf("Failed to add writer to editors: %v", err)
	}

	admin := wiki.UserPrincipal(adminID)

	// Seed directories and pages through the service layer so slugs,
	// revisions and wiki links all get built the normal way
	log.Println("📁 Seeding directories...")
	public := wiki.VisibilityPublic
	handbook, err := dirService.CreateDirectory(ctx, admin, &wikiSvc.CreateDirectoryRequest{
		Title:       "Handbook",
		Description: "Team handbook and working agreements.",
		Visibility:  &public,
	})
	if err != nil {
		log.Fatalf("Failed to create handbook directory: %v", err)
	}

	private := wiki.VisibilityPrivate
	if _, err := dirService.CreateDirectory(ctx, admin, &wikiSvc.CreateDirectoryRequest{
		Title:      "Drafts",
		Visibility: &private,
	}); err != nil {
		log.Fatalf("Failed to create drafts directory: %v", err)
	}

	log.Println("📝 Seeding pages...")
	pages := []wikiSvc.CreatePageRequest{
		{
			Title:       "Welcome",
			Content:     "# Welcome\n\nStart with the #onboarding guide or browse the handbook.",
			DirectoryID: &handbook.ID,
			Visibility:  &public,
		},
		{
			Title:       "Onboarding",
			Content:     "# Onboarding\n\nYour first week, step by step. See also #welcome.",
			DirectoryID: &handbook.ID,
			Visibility:  &public,
		},
	}
	for i := range pages {
		page, err := pageService.CreatePage(ctx, admin, &pages[i])
		if err != nil {
			log.Printf("❌ Failed to create page '%s': %v", pages[i].Title, err)
			continue
		}
		log.Printf("✅ Created page %d/%d: %s (slug: %s)", i+1, len(pages), page.Title, page.Slug)
	}

	log.Println("🎉 Seeding complete!")
}

// dropAllTables drops everything the migrations create, children first
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	order := []string{
		tables.PageLinks,
		tables.EditLocks,
		tables.DirectoryRevisions,
		tables.PageRevisions,
		tables.Grants,
		tables.Pages,
		tables.Directories,
		tables.SystemConfig,
		tables.GroupMembers,
		tables.Groups,
		tables.Users,
		"schema_migrations",
	}
	for _, table := range order {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
