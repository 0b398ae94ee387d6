package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"beastfood/internal/places"
	"beastfood/internal/search"
	"beastfood/pkg/database"
	"beastfood/pkg/logger"
	"beastfood/pkg/utils"
)

func main() {
	terms := flag.String("terms", strings.Join(places.DefaultTerms, ","), "comma separated search terms")
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
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
	if !stack.Google.Enabled() {
		log.Fatal("google places api key not configured")
	}

	var list []string
	for _, t := range strings.Split(*terms, ",") {
		if t = strings.TrimSpace(t); t != "" {
			list = append(list, t)
		}
	}

	found, err := places.NewCrawler(stack.Google, log).Crawl(ctx, cfg.Search.TargetCity, cfg.Search.TargetState, list)
	if err != nil {
		log.Fatal("crawl failed", "error", err)
	}

	n, err := places.NewMirror(db).SaveGoogle(ctx, found)
	if err != nil {
		log.Fatal("save failed", "error", err)
	}
	log.Info("google establishments saved", "count", n, "terms", len(list))
}
