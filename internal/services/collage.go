package services

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"prizedrop/internal/archive"
	"prizedrop/internal/datastore"
	"prizedrop/internal/pkg/imagekit"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceCollage struct {
	container    *do.Injector
	postgresDB   *bun.DB
	archive      archive.Archive
	logger       *slog.Logger
	servicePrize *ServicePrize
	isPrivileged func(callerID int64) bool
}

func NewServiceCollage(container *do.Injector) (*ServiceCollage, error) {
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

	servicePrize, err := do.Invoke[*ServicePrize](container)
	if err != nil {
		return nil, err
	}

	isPrivileged, err := do.InvokeNamed[func(int64) bool](container, PRIVILEGE_PREDICATE)
	if err != nil {
		return nil, err
	}

	return &ServiceCollage{container, postgresDB, arc, logger, servicePrize, isPrivileged}, nil
}

// CollageFor renders the collage of userID on behalf of callerID. Only the
// user and privileged callers may see it, since it reveals won originals.
func (service *ServiceCollage) CollageFor(ctx context.Context, callerID int64, userID int64) (string, []byte, error) {
	if callerID != userID && !service.isPrivileged(callerID) {
		return "", nil, ErrNotPrivileged
	}

	return service.UserCollage(ctx, userID)
}

// UserCollage lays out every prize, showing the originals the user won and
// the teasers of the rest, and stores the result as <userID>_collage.png.
func (service *ServiceCollage) UserCollage(ctx context.Context, userID int64) (string, []byte, error) {
	wins, err := datastore.WinsForUser(ctx, service.postgresDB, userID)
	if err != nil {
		return "", nil, err
	}
	if len(wins) == 0 {
		return "", nil, ErrNoWins
	}

	won := make(map[string]struct{}, len(wins))
	for _, key := range wins {
		won[key] = struct{}{}
	}

	prizes, err := datastore.ListPrizes(ctx, service.postgresDB)
	if err != nil {
		return "", nil, err
	}

	images := make([]image.Image, 0, len(prizes))
	for _, prize := range prizes {
		var data []byte
		if _, ok := won[prize.ImageKey]; ok {
			data, err = service.servicePrize.Original(ctx, prize.ImageKey)
		} else {
			data, err = service.servicePrize.Teaser(ctx, prize.ImageKey)
		}
		if err != nil {
			return "", nil, err
		}

		img, err := imagekit.Decode(data)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", ErrSourceImageMissing, prize.ImageKey, err)
		}
		images = append(images, img)
	}

	collage, err := imagekit.Compose(images)
	if err != nil {
		return "", nil, err
	}

	key := CollageKey(userID)
	data, err := imagekit.Encode(collage, key)
	if err != nil {
		return "", nil, err
	}

	if err := service.archive.Put(ctx, archive.Collages, key, data); err != nil {
		return "", nil, err
	}

	service.logger.Debug("collage rendered", "user_id", userID, "tiles", len(images))
	return key, data, nil
}
