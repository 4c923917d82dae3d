package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ukydev/fleet-rental/internal/auth"
	"github.com/ukydev/fleet-rental/internal/config"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/db/memory"
	"github.com/ukydev/fleet-rental/internal/handlers"
	"github.com/ukydev/fleet-rental/internal/lock"
	"github.com/ukydev/fleet-rental/internal/metrics"
	"github.com/ukydev/fleet-rental/internal/middleware"
	"github.com/ukydev/fleet-rental/internal/notify"
	"github.com/ukydev/fleet-rental/internal/reports"
	"github.com/ukydev/fleet-rental/internal/reservation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server terminated")
	}
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (db.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("Using the in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}
	store := db.NewMongoStore(client, cfg.MongoDB)
	if err := store.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return store, closeFn, nil
}

// openRedis returns nil when REDIS_ADDR is unset.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

func newLocker(cfg *config.Config, rdb *redis.Client) lock.Locker {
	if rdb != nil {
		return lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)
	}
	return lock.NewLocalLocker(cfg.LockWait)
}

func newLimiter(cfg *config.Config, rdb *redis.Client) middleware.Limiter {
	if !cfg.RateLimitEnabled {
		return nil
	}
	if rdb != nil {
		return middleware.NewRedisTokenBucket(rdb, cfg.RateLimitCapacity, cfg.RateLimitRefillInterval)
	}
	return middleware.NewRateLimitMiddleware(cfg.RateLimitCapacity, cfg.RateLimitRefillInterval)
}

func newNotifier(cfg *config.Config, logger *log.Logger) (notify.Notifier, error) {
	switch cfg.NotifyDriver {
	case config.NotifyAMQP:
		return notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPQueue), nil
	case config.NotifyMQTT:
		return notify.NewMQTTNotifier(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
	case config.NotifyNone:
		return notify.Nop{}, nil
	}
	return notify.LogNotifier{Logger: logger}, nil
}

// run wires the service and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyQueueSize, logger)
	dispatcher.Start(ctx)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close notifier")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tokens := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if tokens.UsesDefaultSecret() {
		logger.Warn("JWT_SECRET is not set; using the development secret")
	}

	engine := reservation.New(store,
		reservation.WithLogger(logger),
		reservation.WithDispatcher(dispatcher),
		reservation.WithMetrics(m),
		reservation.WithLocker(newLocker(cfg, rdb)),
		reservation.WithCodeRetries(cfg.CodeRetries),
	)
	h := handlers.NewHandler(store, engine, reports.New(store), middleware.NewAuthMiddleware(tokens, logger),
		handlers.WithLogger(logger),
		handlers.WithMetrics(m, reg),
		handlers.WithRateLimit(newLimiter(cfg, rdb)),
		handlers.WithProduction(cfg.IsProduction()),
	)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(log.Fields{
			"addr":   server.Addr,
			"store":  cfg.StoreDriver,
			"notify": cfg.NotifyDriver,
			"redis":  rdb != nil,
		}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})
	return g.Wait()
}
