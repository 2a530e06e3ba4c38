package main

import (
	"context"
	"log"

	"featuregraph/internal/config"
	"featuregraph/internal/database"
	"featuregraph/internal/migration"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()

	log.Printf("Schema version %s is up to date", migration.NewRunner().Version())
}
