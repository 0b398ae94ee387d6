package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"beastfood/internal/grpcserver"
	"beastfood/internal/restaurants"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.MustOpen(cfg.Database.Postgres, log)
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	var rdb *redis.Client
	if cfg.Database.Redis.Enabled() {
		if rdb, err = database.NewRedis(ctx, cfg.Database.Redis); err != nil {
			log.Fatal("redis connect failed", "error", err)
		}
		defer rdb.Close()
	}

	stack, err := search.Build(cfg, db, rdb, log)
	if err != nil {
		log.Fatal("search setup failed", "error", err)
	}

	listener, err := net.Listen("tcp", cfg.App.GRPCAddr)
	if err != nil {
		log.Fatal("grpc listen failed", "error", err, "addr", cfg.App.GRPCAddr)
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.UnaryLogger(log)))
	grpcserver.Register(srv, grpcserver.NewServer(stack.Aggregator, restaurants.NewRepo(db)))

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received")
		srv.GracefulStop()
	}()

	log.Info("gRPC server listening", "addr", cfg.App.GRPCAddr)
	if err := srv.Serve(listener); err != nil {
		log.Fatal("grpc server stopped", "error", err)
	}
}
