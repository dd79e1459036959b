package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"webshop/internal/cli"
	"webshop/internal/commons"
	"webshop/internal/config"
	"webshop/internal/infrastructure/logger"
	"webshop/internal/infrastructure/mysql"
	"webshop/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, open); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// open resolves configuration and connects to the database.
func open(configPath string) (*cli.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if configPath != "" {
		if cfg, err = commons.LoadConfig(configPath, cfg); err != nil {
			return nil, err
		}
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := mysql.NewManager(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Error("connecting to database", zap.Error(err))
		_ = zapLogger.Sync()
		return nil, err
	}

	return &cli.Session{
		Store:  repository.NewDefault(db, zapLogger),
		Retry:  cfg.Retry,
		Logger: zapLogger,
		Close: func() error {
			defer zapLogger.Sync()
			return db.Close()
		},
	}, nil
}
