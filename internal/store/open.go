package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuchen-w/fangnote/internal/config"
)

// Open creates the KV backend selected by the configuration.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (KV, error) {
	switch cfg.Store {
	case config.StoreFile, "":
		return NewFileKV(cfg.DataDir)
	case config.StoreRedis:
		return NewRedisKV(ctx, cfg)
	case config.StoreSurreal:
		return NewSurrealKV(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
