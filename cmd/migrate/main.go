package main

import (
	"flag"
	"log"

	"github.com/seatguard/seatguard/internal/config"
	"github.com/seatguard/seatguard/internal/db"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := db.Migrate(cfg.Database.URL, *direction); err != nil {
		log.Fatalf("Migration %s failed: %v", *direction, err)
	}

	log.Printf("Migration %s completed", *direction)
}
