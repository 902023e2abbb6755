// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/flip/internal/auth"
	"github.com/jason-s-yu/flip/internal/cache"
	"github.com/jason-s-yu/flip/internal/config"
	"github.com/jason-s-yu/flip/internal/game"
	"github.com/jason-s-yu/flip/internal/handlers"
	"github.com/jason-s-yu/flip/internal/middleware"
	"github.com/jason-s-yu/flip/internal/session"
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

	admin, err := auth.NewAdminVerifier(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		logger.WithError(err).Fatal("admin credentials")
	}
	tokens, err := auth.NewSeatTokens(cfg.SeatTokenTTL)
	if err != nil {
		logger.WithError(err).Fatal("seat token keys")
	}

	rules := game.DefaultHouseRules()
	if err := rules.Update(cfg.RulesOverrides()); err != nil {
		logger.WithError(err).Fatal("house rules from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []session.Option{session.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("redis")
		}
		queue := cache.NewAuditQueue(rdb, cfg.AuditQueue)
		defer queue.Close()
		opts = append(opts, session.WithPublisher(queue))
		logger.WithField("queue", cfg.AuditQueue).Info("audit trail enabled")
	}

	g := game.NewFlipGame(game.WithHouseRules(rules), game.WithLogger(logger))
	coord := session.NewCoordinator(g, admin, tokens, opts...)
	coordDone := make(chan struct{})
	go func() {
		coord.Run(ctx)
		close(coordDone)
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", handlers.GameWSHandler(logger, coord, cfg.MessagesPerSec, cfg.MessageBurst))
	mux.HandleFunc("/healthz", handlers.HealthHandler)
	mux.Handle("/state", handlers.StateHandler(logger, coord))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.LogMiddleware(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	<-coordDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
}
