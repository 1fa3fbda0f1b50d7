package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"zotion/internal/config"
	"zotion/internal/livequery"
	"zotion/internal/repository/postgres"
	"zotion/internal/search"
	"zotion/internal/seed"
	"zotion/internal/service"
)

type CLI struct {
	User       string `required:"" env:"SEED_USER_ID" help:"Owner of the seeded pages."`
	Outline    string `type:"existingfile" help:"YAML outline to seed instead of the bundled sample."`
	DropTables bool   `help:"Drop the documents table before seeding (fresh start)."`
	SchemaOnly bool   `help:"Only set up the schema, don't seed documents."`
	ClearData  bool   `help:"Delete the user's documents and exit."`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("seed"),
		kong.Description("Create the schema and a sample workspace."),
		kong.UsageOnError(),
	)

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (cli.DropTables || cli.ClearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	logger, logCloser := config.NewLogger(cfg)
	defer logCloser.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if cli.DropTables {
		log.Println("🗑️  Dropping tables...")
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}

	if cli.SchemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if err := postgres.ClearUserData(ctx, pool, tables, cli.User); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if cli.ClearData {
		log.Println("✅ Data cleared successfully")
		return
	}

	outline, err := loadOutline(cli.Outline)
	if err != nil {
		log.Fatalf("Failed to load outline: %v", err)
	}

	// Writes go through the service so the search index sees them; no live
	// subscribers exist here, so changes go to an in-process broker.
	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	var index search.Index
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		index = meili
	}
	broker := livequery.NewMemoryBroker()
	defer broker.Close()

	searchService := search.NewService(index, logger)
	docService := service.NewDocumentService(
		postgres.NewDocumentRepository(repoConfig),
		postgres.NewTransactionManager(pool, logger),
		broker,
		searchService,
		logger,
	)

	log.Printf("🌱 Seeding documents for %s (prefix: %q)", cli.User, cfg.TablePrefix)
	created, err := seed.NewDocumentSeeder(docService, logger).Seed(ctx, cli.User, outline)
	if err != nil {
		log.Fatalf("❌ Seeding stopped after %d documents: %v", created, err)
	}

	// Per-document indexing is fire-and-forget; push the whole workspace before exiting.
	docs, err := docService.ListSearchable(ctx, cli.User)
	if err != nil {
		log.Fatalf("Failed to list seeded documents: %v", err)
	}
	searchService.Reindex(docs)

	log.Printf("🎉 Seeding complete! %d documents created", created)
}

func loadOutline(path string) ([]seed.Page, error) {
	if path == "" {
		return seed.DefaultOutline()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return seed.ParseOutline(data)
}
