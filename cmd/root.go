package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/photark/photark/internal/catalog/postgres"
	"github.com/photark/photark/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "photark",
	Short: "Asset catalog and search engine for a personal photo backend",
	Long: `Photark manages the asset catalog of a personal photo/video backend:
metadata search, smart (embedding) search, duplicate detection, timeline
buckets and device sync, all backed by PostgreSQL with pgvector.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLogger builds the CLI logger from the configured level.
func newLogger(cfg *config.Config) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openPool loads config, connects, migrates and verifies schema version.
func openPool() (*config.Config, *postgres.Pool, *zap.Logger, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	logger := newLogger(cfg)

	pool, err := postgres.Initialize(&cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cfg, pool, logger, nil
}
