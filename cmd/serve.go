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
	"github.com/spf13/cobra"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/config"
	"github.com/onlinecourse/catalog/internal/handler"
	"github.com/onlinecourse/catalog/internal/metrics"
	"github.com/onlinecourse/catalog/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx, config.Config.Validate)
		if err != nil {
			return err
		}
		defer rt.Close()
		return serve(ctx, rt)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, rt *app) error {
	log := rt.log

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var limiter *handler.RateLimiter
	if rt.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: rt.cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable; login rate limit fails open until it recovers")
		} else {
			log.WithField("addr", rt.cfg.RedisAddr).Info("connected to Redis")
		}
		limiter = handler.NewRateLimiter(rdb, log)
	} else {
		log.Info("REDIS_ADDR not set; login rate limit disabled")
	}

	tokens := auth.NewTokenManager(rt.cfg.JWTSecret, rt.cfg.JWTIssuer, rt.cfg.TokenTTL)
	catalog := service.NewCatalogService(rt.store, log, m)
	accounts := service.NewAccountService(rt.store, tokens, log)

	router := handler.NewRouter(handler.RouterConfig{
		Lectures:       handler.NewLectureHandler(catalog, log),
		Accounts:       handler.NewAccountHandler(accounts, log),
		Tokens:         tokens,
		Limiter:        limiter,
		LoginLimit:     rt.cfg.LoginRateLimit,
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: rt.cfg.Origins(),
		Log:            log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", rt.cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server listening on :%s", rt.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
