package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"beastfood/internal/admin"
	"beastfood/internal/auth"
	"beastfood/internal/comments"
	"beastfood/internal/favorites"
	"beastfood/internal/follows"
	"beastfood/internal/likes"
	"beastfood/internal/middleware"
	"beastfood/internal/notify"
	"beastfood/internal/owner"
	"beastfood/internal/pending"
	"beastfood/internal/places"
	"beastfood/internal/posts"
	"beastfood/internal/restaurants"
	"beastfood/internal/search"
	"beastfood/internal/uploads"
	"beastfood/internal/users"
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
		rdb, err = database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			log.Fatal("redis connect failed", "error", err, "address", cfg.Database.Redis.Address)
		}
		defer rdb.Close()
	}

	bus := newBus(cfg, rdb, log)
	if bus != nil {
		defer bus.Close()
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.Metrics(), middleware.CORS(cfg.App.CORSOrigins))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/uploads", cfg.App.UploadsDir)

	// Auth
	authRepo := auth.NewRepo(db)
	tokenSvc := auth.TokenService{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.JWTIssuer,
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
	}
	requireAuth := auth.AuthMiddleware(tokenSvc, authRepo)
	google := auth.GoogleVerifier{UserInfoURL: cfg.Auth.GoogleUserInfoURL}

	api := router.Group("/api")
	auth.NewHandler(authRepo, tokenSvc, google, cfg.Auth.CookieSecure).RegisterRoutes(api.Group("/auth"))

	// Notifications
	registry := notify.NewRegistry(16)
	notifySvc := notify.NewService(notify.NewRepo(db), registry, bus, log)
	notify.NewHandler(notifySvc).RegisterRoutes(api.Group("/notifications"), requireAuth)

	// Domain
	restRepo := restaurants.NewRepo(db)
	pendingRepo := pending.NewRepo(db, restRepo)
	postsRepo := posts.NewRepo(db, pendingRepo)

	restaurants.NewHandler(restRepo).RegisterRoutes(api.Group("/restaurants"), requireAuth)
	users.NewHandler(users.NewRepo(db), postsRepo).RegisterRoutes(api.Group("/users"), requireAuth)
	posts.NewHandler(postsRepo, notifySvc).RegisterRoutes(api.Group("/posts"), requireAuth)
	comments.NewHandler(comments.NewRepo(db), postsRepo, notifySvc).RegisterRoutes(api.Group("/comments"), requireAuth)
	likes.NewHandler(likes.NewRepo(db), postsRepo, notifySvc).RegisterRoutes(api.Group("/likes"), requireAuth)
	favorites.NewHandler(favorites.NewRepo(db)).RegisterRoutes(api.Group("/favorites"), requireAuth)
	follows.NewHandler(follows.NewRepo(db), notifySvc).RegisterRoutes(api.Group("/follows"), requireAuth)
	pending.NewHandler(pendingRepo, notifySvc).RegisterRoutes(api.Group("/pending-restaurants"), requireAuth)
	owner.NewHandler(owner.NewService(restRepo)).RegisterRoutes(api.Group("/restaurant-owner"), requireAuth)
	admin.NewHandler(admin.NewRepo(db), restRepo, registry).RegisterRoutes(api.Group("/admin"), requireAuth)

	// Search and places
	stack, err := search.Build(cfg, db, rdb, log)
	if err != nil {
		log.Fatal("search setup failed", "error", err)
	}
	search.NewHandler(stack.Aggregator, stack.Ingestor).RegisterRoutes(api.Group("/ai-restaurant-search"), requireAuth)

	placesHandler := places.NewHandler(stack.Google, places.NewMirror(db))
	placesHandler.RegisterGoogleRoutes(api.Group("/google-places"))
	placesHandler.RegisterOSMRoutes(api.Group("/osm-estabelecimentos"))

	uploadPrefix := strings.TrimRight(cfg.App.PublicBaseURL, "/") + "/uploads"
	uploads.NewHandler(cfg.App.UploadsDir, uploadPrefix, log).RegisterRoutes(api.Group("/upload"), requireAuth)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
			return
		}
		stats := registry.Stats()
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok", "live": stats})
	})

	httpSrv := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Long-lived streams see the signal through their request context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	httpSrv.RegisterOnShutdown(func() {
		log.Info("closing notification streams", "count", registry.CloseAll())
	})

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySvc.Forward(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("HTTP API server listening", "addr", cfg.App.HTTPAddr, "environment", cfg.App.Environment)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", "error", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}

	wg.Wait()
	log.Info("server stopped")
}

// newBus returns nil when notifications stay instance-local.
func newBus(cfg *utils.Config, rdb *redis.Client, log *logger.Logger) notify.Bus {
	switch strings.ToLower(cfg.Notifications.Bus) {
	case "redis":
		return notify.NewRedisBus(rdb, cfg.Notifications.RedisChannel, log)
	case "kafka":
		host, _ := os.Hostname()
		group := "beastfood-notify-" + host + "-" + uuid.NewString()[:8]
		return notify.NewKafkaBus(cfg.Notifications.KafkaBrokers, cfg.Notifications.KafkaTopic, group, log)
	default:
		return nil
	}
}
