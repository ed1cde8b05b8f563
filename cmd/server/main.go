package main

import (
	"log"
	"net/http"
	"os"

	"github.com/harborview/taskboard/internal/api"
	"github.com/harborview/taskboard/internal/automigrate"
	"github.com/harborview/taskboard/internal/config"
	"github.com/harborview/taskboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := store.DB()
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := automigrate.Run(db, migrationsDir); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	handler := api.NewRouter(db, cfg)

	log.Printf("Task board listening on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
