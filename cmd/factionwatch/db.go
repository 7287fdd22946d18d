package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"factionwatch/internal/config"
	"factionwatch/internal/goal"
	"factionwatch/internal/logging"
	"factionwatch/internal/store"
	"factionwatch/internal/store/postgres"
	"factionwatch/internal/store/sqlite"
)

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := strings.TrimSpace(cfg.Database.DSN)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.New(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database dsn scheme: %s", dsn)
	}
}

// env is what every command that touches the store needs.
type env struct {
	cfg    *config.ProjectConfig
	logger *zap.Logger
	db     store.Store
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) Close(ctx context.Context) {
	_ = e.db.Close(ctx)
	_ = e.logger.Sync()
}

func (e *env) defaultGoal() goal.Goal {
	if e.cfg.Goals.Default == "" {
		return goal.Default
	}
	g, err := goal.Lookup(e.cfg.Goals.Default)
	if err != nil {
		return goal.Default
	}
	return g
}
