package main

import (
	"context"
	"time"

	"beastfood/internal/places"
	"beastfood/internal/search"
	"beastfood/pkg/database"
	"beastfood/pkg/logger"
	"beastfood/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(cfg.Database.Postgres, log)
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	stack, err := search.Build(cfg, db, nil, log)
	if err != nil {
		log.Fatal("search setup failed", "error", err)
	}
	if !stack.Overpass.Enabled() {
		log.Fatal("overpass url not configured")
	}

	// An empty term selects every food amenity in the city area.
	found, err := stack.Overpass.Fetch(ctx, "")
	if err != nil {
		log.Fatal("overpass query failed", "error", err)
	}
	log.Info("overpass elements fetched", "count", len(found), "city", cfg.Search.TargetCity)

	n, err := places.NewMirror(db).SaveOSM(ctx, cfg.Search.TargetCity, found)
	if err != nil {
		log.Fatal("save failed", "error", err)
	}
	log.Info("osm establishments saved", "count", n)
}
