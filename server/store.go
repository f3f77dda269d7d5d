package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/cmdflow"
	"github.com/meikuraledutech/cmdflow/config"
	"github.com/meikuraledutech/cmdflow/memory"
	"github.com/meikuraledutech/cmdflow/postgres"
	"github.com/meikuraledutech/cmdflow/redis"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (cmdflow.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		log.Info("using postgres store")
		return postgres.New(pool), pool.Close, nil

	case config.BackendRedis:
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		log.Info("using redis store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn("closing redis", "error", err)
			}
		}, nil

	case config.BackendMemory:
		log.Warn("using in-memory store, commands are lost on exit")
		return memory.NewStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
