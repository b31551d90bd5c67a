package services

import (
	"context"
	"errors"
	"strconv"

	"prizedrop/internal/datastore"
	"prizedrop/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceConfig struct {
	container  *do.Injector
	postgresDB *bun.DB
	cache      caching.Cache
}

func NewServiceConfig(container *do.Injector) (*ServiceConfig, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{container, postgresDB, cache}, nil
}

func (service *ServiceConfig) GetStringConfig(ctx context.Context, key string, defaultValue string) (string, error) {
	callback := func() (string, error) {
		config, err := datastore.GetConfigByKey(ctx, service.postgresDB, key)
		if errors.Is(err, datastore.ErrConfigNotFound) {
			return defaultValue, nil
		}
		if err != nil {
			return defaultValue, err
		}
		return config.Value, nil
	}

	value, err := caching.UseCache(ctx, service.cache, DBKeyConfig(key), CACHE_TTL_5_MINS, callback)
	if err != nil {
		return defaultValue, err
	}

	return value, nil
}

func (service *ServiceConfig) GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error) {
	value, err := service.GetStringConfig(ctx, key, strconv.Itoa(defaultValue))
	if err != nil {
		return defaultValue, err
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, err
	}

	return intValue, nil
}

// RefreshIntConfig drops the cached copy of key before reading it, so values
// written by other processes are seen.
func (service *ServiceConfig) RefreshIntConfig(ctx context.Context, key string, defaultValue int) (int, error) {
	if err := service.cache.Delete(ctx, DBKeyConfig(key)); err != nil {
		return defaultValue, err
	}

	return service.GetIntConfig(ctx, key, defaultValue)
}

func (service *ServiceConfig) SetConfig(ctx context.Context, key string, value string) error {
	if _, err := datastore.UpsertConfig(ctx, service.postgresDB, key, value); err != nil {
		return err
	}

	return service.cache.Delete(ctx, DBKeyConfig(key))
}
