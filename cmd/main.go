package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/cache"
	"github.com/fjod/go_cart/session-cart/internal/catalog"
	"github.com/fjod/go_cart/session-cart/internal/config"
	carthttp "github.com/fjod/go_cart/session-cart/internal/http"
	"github.com/fjod/go_cart/session-cart/internal/identity"
	"github.com/fjod/go_cart/session-cart/internal/invalidation"
	"github.com/fjod/go_cart/session-cart/internal/metrics"
	"github.com/fjod/go_cart/session-cart/internal/poller"
	"github.com/fjod/go_cart/session-cart/internal/pricing"
	"github.com/fjod/go_cart/session-cart/internal/repository"
	"github.com/fjod/go_cart/session-cart/internal/service"
	"github.com/fjod/go_cart/session-cart/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	l, err := logger.New(logger.Options{Service: "session-cart", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.Mongo)
	if err != nil {
		l.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()

	repo := repository.NewMongoRepository(mongoDB)
	if err := repo.CreateIndexes(ctx); err != nil {
		l.Fatal("failed to create cart indexes", zap.Error(err))
	}
	l.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		l.Fatal("failed to open catalog", zap.Error(err))
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.MigrationsPath); err != nil {
		l.Fatal("failed to migrate catalog", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		l.Fatal("redis connection failed", zap.Error(err))
	}

	var notifier invalidation.Notifier = invalidation.LogNotifier{Logger: l}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := invalidation.NewKafkaNotifier(l, cfg.InvalidationTopic, cfg.KafkaBrokers...)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier

		stockPoller := poller.NewPoller(products, l, cfg.StockTopic, cfg.KafkaBrokers...)
		defer stockPoller.Close()
		go stockPoller.Run(ctx)
	} else {
		l.Warn("KAFKA_BROKERS not set, invalidations are only logged and stock is not synced")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cartService := service.NewCartService(
		repo,
		products,
		cache.NewRedisCache(redisClient, cfg.CartCacheTTL),
		notifier,
		service.Options{
			Calculator:  pricing.NewCalculator(cfg.Pricing),
			MaxAttempts: cfg.CartMaxAttempts,
			Metrics:     metrics.NewCartMetrics(reg),
			Logger:      l,
		})

	resolver := identity.NewResolver(identity.ContextSource{}, identity.ContextSource{})
	cartHandler := carthttp.NewCartHandler(cartService, resolver, cfg.RequestTimeout, l)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: carthttp.NewRouter(cartHandler, carthttp.RouterOptions{
			RequestTimeout: cfg.RequestTimeout,
			Metrics:        metrics.Handler(reg),
			Logger:         l,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info("session cart listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	l.Info("shutting down session cart...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
	}
	l.Info("session cart stopped")
}
