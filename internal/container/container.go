package container

import (
	"log/slog"
	"time"

	"prizedrop/internal/archive"
	"prizedrop/internal/config"
	"prizedrop/internal/datastore"
	"prizedrop/internal/logger"
	"prizedrop/internal/pkg/caching"
	"prizedrop/internal/pkg/limiter"
	"prizedrop/internal/pkg/locker"
	"prizedrop/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

const (
	lockExpiry     = 30 * time.Second
	localCacheSize = 1000
)

// NewContainer wires infrastructure and services. Without a redis URL the
// lock, cache and limiter fall back to in-process implementations.
func NewContainer(cfg *config.Config) *do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger.New(cfg.LogLevel, cfg.LogJSON))
	do.ProvideNamedValue(injector, services.PRIVILEGE_PREDICATE, cfg.IsAdmin())

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		if cfg.DBDriver == "sqlite" {
			return datastore.NewSQLite(cfg.DBDSN)
		}
		return datastore.NewPostgres(cfg.DBDSN, cfg.DBPassword), nil
	})

	do.Provide(injector, func(i *do.Injector) (archive.Archive, error) {
		return archive.NewFileArchive(cfg.ArchiveRoot)
	})

	do.Provide(injector, func(i *do.Injector) (redis.UniversalClient, error) {
		if cfg.RedisClusterURL != "" {
			clusterOpts, err := redis.ParseClusterURL(cfg.RedisClusterURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}
		return db.InitRedis(&db.RedisConfig{
			URL: cfg.RedisURL,
		})
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		if !hasRedis(cfg) {
			return caching.NewCacheLocal(localCacheSize, services.CACHE_TTL_15_SECONDS), nil
		}

		dbRedis, err := do.Invoke[redis.UniversalClient](i)
		if err != nil {
			return nil, err
		}
		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (limiter.Limiter, error) {
		if !hasRedis(cfg) {
			return limiter.Unlimited{}, nil
		}

		dbRedis, err := do.Invoke[redis.UniversalClient](i)
		if err != nil {
			return nil, err
		}
		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (locker.Locker, error) {
		if !hasRedis(cfg) {
			return locker.NewLocalLocker(), nil
		}

		dbRedis, err := do.Invoke[redis.UniversalClient](i)
		if err != nil {
			return nil, err
		}
		rs := redsync.New(goredis.NewPool(dbRedis))
		return locker.NewRedsyncLocker(rs, lockExpiry), nil
	})

	do.Provide(injector, func(i *do.Injector) (services.Notifier, error) {
		if cfg.BotToken == "" {
			log := do.MustInvoke[*slog.Logger](i)
			return &services.LogNotifier{Logger: log}, nil
		}
		return do.Invoke[*services.Bot](i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.Bot, error) {
		arc, err := do.Invoke[archive.Archive](i)
		if err != nil {
			return nil, err
		}
		return services.NewBot(cfg.BotToken, arc)
	})

	ProvideServices(injector)
	return injector
}

// ProvideServices registers the service layer on an injector that already
// holds its infrastructure.
func ProvideServices(injector *do.Injector) {
	do.Provide(injector, services.NewAuthentication)
	do.Provide(injector, services.NewServiceConfig)
	do.Provide(injector, services.NewServiceUser)
	do.Provide(injector, services.NewServicePrize)
	do.Provide(injector, services.NewServiceLeaderboard)
	do.Provide(injector, services.NewServiceClaim)
	do.Provide(injector, services.NewServiceDispatcher)
	do.Provide(injector, services.NewServiceCollage)
	do.Provide(injector, services.NewServiceAdmin)
}

func hasRedis(cfg *config.Config) bool {
	return cfg.RedisURL != "" || cfg.RedisClusterURL != ""
}
