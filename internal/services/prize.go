package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"prizedrop/internal/archive"
	"prizedrop/internal/datastore"
	"prizedrop/internal/models"
	"prizedrop/internal/pkg/imagekit"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServicePrize struct {
	container  *do.Injector
	postgresDB *bun.DB
	archive    archive.Archive
	logger     *slog.Logger
}

func NewServicePrize(container *do.Injector) (*ServicePrize, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	arc, err := do.Invoke[archive.Archive](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*slog.Logger](container)
	if err != nil {
		return nil, err
	}

	return &ServicePrize{container, postgresDB, arc, logger}, nil
}

// Obscure renders the teaser of an original image and stores it under the
// same key in the teaser namespace.
func (service *ServicePrize) Obscure(ctx context.Context, imageKey string) (string, error) {
	_, err := service.obscure(ctx, imageKey)
	if err != nil {
		return "", err
	}
	return imageKey, nil
}

func (service *ServicePrize) obscure(ctx context.Context, imageKey string) ([]byte, error) {
	original, err := service.Original(ctx, imageKey)
	if err != nil {
		return nil, err
	}

	img, err := imagekit.Decode(original)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceImageMissing, imageKey, err)
	}

	teaser, err := imagekit.Obscure(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceImageMissing, imageKey, err)
	}

	data, err := imagekit.Encode(teaser, imageKey)
	if err != nil {
		return nil, fmt.Errorf("encode teaser %s: %w", imageKey, err)
	}

	if err := service.archive.Put(ctx, archive.Teasers, imageKey, data); err != nil {
		return nil, err
	}

	return data, nil
}

// Original returns the source image bytes of a prize.
func (service *ServicePrize) Original(ctx context.Context, imageKey string) ([]byte, error) {
	data, err := service.archive.Get(ctx, archive.Originals, imageKey)
	if errors.Is(err, archive.ErrNotFound) || errors.Is(err, archive.ErrInvalidKey) {
		return nil, fmt.Errorf("%w: %s", ErrSourceImageMissing, imageKey)
	}
	if err != nil {
		return nil, err
	}

	return data, nil
}

// Teaser returns the stored teaser, rendering it first when missing.
func (service *ServicePrize) Teaser(ctx context.Context, imageKey string) ([]byte, error) {
	data, err := service.archive.Get(ctx, archive.Teasers, imageKey)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, archive.ErrNotFound) {
		return nil, err
	}

	return service.obscure(ctx, imageKey)
}

// AddPrize registers an image already present in the originals namespace.
func (service *ServicePrize) AddPrize(ctx context.Context, imageKey string) (*models.Prize, error) {
	exists, err := service.archive.Exists(ctx, archive.Originals, imageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSourceImageMissing, imageKey)
	}

	n, err := datastore.AddPrizes(ctx, service.postgresDB, []string{imageKey})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePrize, imageKey)
	}

	return datastore.FindPrizeByImageKey(ctx, service.postgresDB, imageKey)
}

// LoadPrizes turns every original not yet known as a prize into one. Keys a
// concurrent load inserted first are not counted.
func (service *ServicePrize) LoadPrizes(ctx context.Context) (int, error) {
	keys, err := service.archive.List(ctx, archive.Originals)
	if err != nil {
		return 0, err
	}

	prizes, err := datastore.ListPrizes(ctx, service.postgresDB)
	if err != nil {
		return 0, err
	}

	known := make(map[string]struct{}, len(prizes))
	for _, prize := range prizes {
		known[prize.ImageKey] = struct{}{}
	}

	var fresh []string
	for _, key := range keys {
		if _, ok := known[key]; ok {
			continue
		}
		fresh = append(fresh, key)
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	n, err := datastore.AddPrizes(ctx, service.postgresDB, fresh)
	if err != nil {
		return 0, err
	}

	service.logger.Info("prizes loaded", "count", n)
	return n, nil
}
