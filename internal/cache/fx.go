package cache

import (
	"context"

	"github.com/lumafi/lumafi/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideCache(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Cache, error) {
	if cfg.RedisAddr == "" {
		log.Info("cache disabled, using noop implementation")
		return NewNoop(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})

	log.Info("cache enabled", zap.String("addr", cfg.RedisAddr))
	return NewRedis(client)
}

// Module provides the cache capability, backed by redis when configured.
var Module = fx.Module("cache",
	fx.Provide(provideCache),
)
