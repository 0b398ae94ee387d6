package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"beastfood/internal/restaurants"
	"beastfood/pkg/database"
	"beastfood/pkg/logger"
	"beastfood/pkg/utils"
)

func main() {
	outPath := flag.String("out", "data/restaurants.csv", "output CSV path")
	flag.Parse()

	cfg, err := utils.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := database.MustOpen(cfg.Database.Postgres, log)
	defer db.Close()

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatal("create output dir failed", "error", err)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal("create output failed", "error", err, "file", *outPath)
	}
	defer f.Close()

	n, err := restaurants.NewRepo(db).ExportCSV(ctx, f)
	if err != nil {
		log.Fatal("export failed", "error", err)
	}
	log.Info("restaurants exported", "file", *outPath, "count", n)
}
