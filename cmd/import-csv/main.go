package main

import (
	"context"
	"flag"
	"os"
	"time"

	"beastfood/internal/restaurants"
	"beastfood/pkg/database"
	"beastfood/pkg/logger"
	"beastfood/pkg/utils"
)

func main() {
	var (
		in     = flag.String("file", "data/restaurants.csv", "input CSV path")
		source = flag.String("source", "import", "source tag stored on imported restaurants")
	)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(cfg.Database.Postgres, log)
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal("open csv failed", "error", err, "file", *in)
	}
	defer f.Close()

	res, err := restaurants.NewRepo(db).ImportCSV(ctx, f, *source)
	if err != nil {
		log.Fatal("import failed", "error", err, "inserted", res.Inserted)
	}
	log.Info("restaurants imported", "file", *in, "inserted", res.Inserted, "duplicates", res.Duplicates, "skipped", res.Skipped)
}
