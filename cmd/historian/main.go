// cmd/historian drains the audit queue from Redis into PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/flip/internal/cache"
	"github.com/jason-s-yu/flip/internal/config"
	"github.com/jason-s-yu/flip/internal/database"
	"github.com/jason-s-yu/flip/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = database.DSN(
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			os.Getenv("PG_HOST"),
			os.Getenv("PG_PORT"),
			os.Getenv("PG_DATABASE"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, redisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("redis")
	}
	queue := cache.NewAuditQueue(rdb, cfg.AuditQueue)
	defer queue.Close()

	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		logger.WithError(err).Fatal("postgres")
	}
	defer pool.Close()

	store := database.NewAuditStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("audit schema")
	}

	svc := historian.New(queue, store, historian.Options{
		BatchSize:  cfg.HistorianBatch,
		FlushDelay: cfg.HistorianFlush,
		Inactivity: cfg.HistorianIdleGame,
	}, logger)
	svc.Run(ctx)
}
