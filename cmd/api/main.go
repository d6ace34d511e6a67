package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/commerce/internal/adapters/api"
	"github.com/floroz/commerce/internal/adapters/cache"
	"github.com/floroz/commerce/internal/adapters/database"
	"github.com/floroz/commerce/internal/adapters/web"
	"github.com/floroz/commerce/internal/config"
	"github.com/floroz/commerce/internal/domain/feeds"
	"github.com/floroz/commerce/internal/domain/listings"
	"github.com/floroz/commerce/internal/domain/users"
	"github.com/floroz/commerce/internal/domain/userstats"
	"github.com/floroz/commerce/migrations"
	"github.com/floroz/commerce/pkg/auth"
	pkgdb "github.com/floroz/commerce/pkg/database"
	pkgevents "github.com/floroz/commerce/pkg/events"
	"github.com/floroz/commerce/pkg/metrics"
)

const tokenIssuer = "commerce"

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Postgres
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}
	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	if err := pkgdb.Migrate(ctx, pool, migrations.FS); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	// 2. RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	rabbitPublisher, err := pkgevents.NewRabbitMQPublisher(amqpConn)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", "error", err)
		os.Exit(1)
	}
	defer rabbitPublisher.Close()

	// 3. Redis (optional: categories fall back to Postgres, sessions live until expiry)
	var (
		listingCache listings.CategoryCache
		feedCache    feeds.CategoryCache
		revocations  users.RevocationStore
	)
	if cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed (running without cache)", "error", err)
		} else {
			defer rdb.Close()
			categoryCache := cache.NewCategoryCache(rdb, cfg.CategoryCacheTTL)
			listingCache, feedCache = categoryCache, categoryCache
			revocations = cache.NewRevocationStore(rdb)
			logger.Info("Redis Connected")
		}
	}

	// 4. Session signer
	signer, err := loadSigner(cfg)
	if err != nil {
		logger.Error("Failed to load signing keys", "error", err)
		os.Exit(1)
	}

	// 5. Repositories
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	listingRepo := database.NewPostgresListingRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	commentRepo := database.NewPostgresCommentRepository(pool)
	watchlistRepo := database.NewPostgresWatchlistRepository(pool)
	feedRepo := database.NewPostgresFeedRepository(pool)
	userRepo := database.NewPostgresUserRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)
	statsRepo := database.NewUserStatsRepository(pool)

	// 6. Services
	listingService := listings.NewService(txManager, listingRepo, bidRepo, commentRepo, watchlistRepo, outboxRepo, listingCache, logger)
	feedService := feeds.NewService(feedRepo, watchlistRepo, listingRepo, feedCache, logger)
	userService := users.NewService(userRepo, revocations, signer, cfg.SessionTTL)
	statsService := userstats.NewService(statsRepo, txManager)

	// 7. HTTP: gin pages with the catalog RPC mounted alongside
	m := metrics.New()
	webHandler := web.NewHandler(listingService, feedService, userService, m, logger, web.Options{
		CookieSecure: cfg.CookieSecure,
		AuthRate:     web.DefaultOptions().AuthRate,
		AuthBurst:    web.DefaultOptions().AuthBurst,
	})
	router, err := webHandler.Router()
	if err != nil {
		logger.Error("Failed to build router", "error", err)
		os.Exit(1)
	}

	catalogPath, catalogHandler := api.NewCatalogServiceMux(
		api.NewCatalogServiceHandler(feedService, statsService, userService),
		userService,
	)

	mux := http.NewServeMux()
	mux.Handle(catalogPath, catalogHandler)
	mux.Handle("/", router)

	// Use h2c for HTTP/2 without TLS so connect clients can use gRPC
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	outboxRelay := pkgevents.NewOutboxRelay(
		outboxRepo,
		rabbitPublisher,
		txManager,
		10,          // batch size
		time.Second, // interval
		pkgevents.ExchangeAuctionEvents,
		logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return outboxRelay.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting commerce server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func loadSigner(cfg *config.Config) (*auth.Signer, error) {
	if cfg.PrivateKeyPath == "" || cfg.PublicKeyPath == "" {
		return nil, errors.New("AUTH_PRIVATE_KEY_PATH and AUTH_PUBLIC_KEY_PATH must be set")
	}
	privPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	pubPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}
	return auth.NewSigner(privPEM, pubPEM, tokenIssuer)
}
