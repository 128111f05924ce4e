package main

import (
	"context"
	"flag"
	"log"
	"os"

	"notetree/internal/config"
	"notetree/internal/domain/models"
	"notetree/internal/repository"
	"notetree/internal/repository/postgres"
	"notetree/internal/seed"
	"notetree/internal/service/notetree"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	outlinePath := flag.String("file", "", "YAML outline to load (defaults to the built-in outline)")
	dropTables := flag.Bool("drop-tables", false, "Drop the nodes table before seeding (postgres only)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed nodes")
	clearData := flag.Bool("clear-data", false, "Soft-delete every existing node and exit")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	logger := config.NewLogger(cfg.Environment, os.Stdout)
	ctx := context.Background()

	if *dropTables {
		if cfg.StoreDriver != config.DriverPostgres {
			log.Fatalf("--drop-tables requires STORE_DRIVER=postgres (got %s)", cfg.StoreDriver)
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		tables := postgres.NewTableNames(cfg.TablePrefix)
		log.Printf("Dropping %s...", tables.Nodes)
		err = postgres.DropSchema(ctx, pool, tables)
		pool.Close()
		if err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	// Opening the store applies migrations / ensures the schema
	repo, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	services := notetree.Setup(repo, nil, notetree.Options{SortIncrement: cfg.SortIncrement}, logger)
	if _, err := services.Coordinator.Reload(ctx); err != nil {
		log.Fatalf("Failed to load existing nodes: %v", err)
	}
	seeder := seed.NewSeeder(services.Coordinator, logger)

	if *clearData {
		cleared, err := seeder.Clear(ctx, services.Nodes)
		if err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Printf("Cleared %d nodes", cleared)
		return
	}

	items, err := loadOutline(*outlinePath)
	if err != nil {
		log.Fatalf("Failed to load outline: %v", err)
	}

	log.Printf("Seeding %d nodes (environment: %s, store: %s)", seed.Count(items), cfg.Environment, cfg.StoreDriver)
	created, err := seeder.Seed(ctx, models.RootID, items)
	if err != nil {
		log.Fatalf("Seeding stopped after %d nodes: %v", created, err)
	}
	log.Printf("Seeding complete: %d nodes created", created)
}

func loadOutline(path string) ([]seed.Item, error) {
	if path == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return seed.Parse(data)
}
