// Command catalog serves the lecture catalog API and its operator tasks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/onlinecourse/catalog/internal/config"
	"github.com/onlinecourse/catalog/internal/database"
	"github.com/onlinecourse/catalog/internal/logger"
	"github.com/onlinecourse/catalog/internal/repository"
	"github.com/onlinecourse/catalog/internal/repository/memstore"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "catalog",
	Short:         "Lecture catalog service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing app.env")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the pieces every subcommand needs.
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	store repository.Store
	pool  *pgxpool.Pool
}

func (rt *app) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}

// setup loads config, runs checks, builds the logger and opens the
// configured store. Checks run before any connection attempt.
func setup(ctx context.Context, checks ...func(config.Config) error) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return nil, err
		}
	}
	log := logger.New(cfg)
	rt := &app{cfg: cfg, log: log}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		rt.store = memstore.New()
	default:
		pool, err := database.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		log.Info("connected to PostgreSQL")
		rt.pool = pool
		rt.store = repository.NewPostgresStore(pool)
	}
	return rt, nil
}
