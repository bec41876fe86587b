package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore/internal/book"
	"bookstore/internal/config"
	"bookstore/internal/httpx"
	"bookstore/internal/logger"
	"bookstore/internal/permission"
	"bookstore/internal/platform/postgres"
	"bookstore/internal/rating"
	"bookstore/internal/relation"
	"bookstore/internal/user"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logg := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.Open(ctx, cfg.DatabaseDSN, 2*time.Second)
	if err != nil {
		logg.Fatal().Err(err).Msg("cannot open database")
	}
	defer dbPool.Close()
	logg.Info().Str("dsn", postgres.RedactDSN(cfg.DatabaseDSN)).Msg("database connection OK")

	userService := user.NewService(user.NewPostgresRepo(dbPool, cfg.DatabaseTimeout))
	bookService := book.NewService(book.NewPostgresRepo(dbPool, cfg.DatabaseTimeout), permission.OwnerOrStaffOrReadOnly{})
	relationService := relation.NewService(relation.NewPostgresRepo(dbPool, cfg.DatabaseTimeout), rating.NewAggregator())

	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Close()

	router := newRouter(routerDeps{
		cfg:         cfg,
		logger:      logg,
		users:       userService,
		books:       book.NewHTTPHandler(bookService),
		relations:   relation.NewHTTPHandler(relationService),
		rateLimiter: rateLimiter,
		ready:       dbPool.Ping,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info().Str("addr", cfg.Addr).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Fatal().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	logg.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error().Err(err).Msg("graceful shutdown failed")
	}
}
