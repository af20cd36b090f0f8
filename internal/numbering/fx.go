package numbering

import (
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/docflow/internal/config"
	"github.com/smallbiznis/docflow/internal/numbering/domain"
	"github.com/smallbiznis/docflow/internal/numbering/redisstore"
	"github.com/smallbiznis/docflow/internal/numbering/repository"
	"github.com/smallbiznis/docflow/internal/numbering/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("numbering.service",
	fx.Provide(repository.NewStore),
	fx.Provide(redisstore.NewClient),
	fx.Provide(provideStore),
	fx.Provide(service.NewService),
)

type storeParams struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	SQL    *repository.Store
	Client *redis.Client
}

func provideStore(p storeParams) (domain.Store, error) {
	if p.Cfg.Numbering.Backend != config.NumberingBackendRedis {
		return p.SQL, nil
	}
	if p.Client == nil {
		return nil, errors.New("numbering backend redis requires REDIS_ADDR")
	}
	p.Log.Info("numbering uses redis counters", zap.String("redis_addr", p.Cfg.Redis.Addr))
	return redisstore.New(p.Client, p.SQL), nil
}
