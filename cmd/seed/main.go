// Command main loads the demo catalog and generated products.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"shopagg/internal/config"
	"shopagg/internal/database"
	"shopagg/internal/seed"
)

func main() {
	fixtures := flag.String("fixtures", "fixtures/catalog.yml", "YAML catalog to load (empty to skip)")
	random := flag.Int("random", 0, "Number of generated products to add")
	seedValue := flag.Int64("seed", time.Now().UnixNano(), "Seed for generated products")
	shouldClean := flag.Bool("clean", false, "Delete the whole catalog before seeding")
	flag.Parse()

	log.Printf("Seeding: fixtures=%q random=%d clean=%v", *fixtures, *random, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, *seedValue)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *fixtures != "" {
		fx, err := seed.LoadFixture(*fixtures)
		if err != nil {
			log.Fatalf("Fixture load failed: %v", err)
		}
		res, err := s.Apply(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("Fixture: %d cities, %d categories, %d users, %d sellers, %d products (%d already present)",
			res.Cities, res.Categories, res.Users, res.Sellers, res.Products, res.Skipped)
	}

	if *random > 0 {
		res, err := s.RandomProducts(ctx, *random)
		if err != nil {
			log.Fatalf("Random seeding failed: %v", err)
		}
		log.Printf("Generated %d products (%d rejected by validation)", res.Products, res.Skipped)
	}

	log.Printf("Done. Seeded accounts use the password %q", seed.DefaultPassword)
}
