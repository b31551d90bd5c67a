package services

import (
	"context"
	"time"

	"prizedrop/internal/archive"
	"prizedrop/internal/models"

	"github.com/samber/do"
)

// ServiceAdmin guards every operation with the injected privilege predicate.
type ServiceAdmin struct {
	container         *do.Injector
	isPrivileged      func(callerID int64) bool
	archive           archive.Archive
	servicePrize      *ServicePrize
	serviceUser       *ServiceUser
	serviceDispatcher *ServiceDispatcher
}

func NewServiceAdmin(container *do.Injector) (*ServiceAdmin, error) {
	isPrivileged, err := do.InvokeNamed[func(int64) bool](container, PRIVILEGE_PREDICATE)
	if err != nil {
		return nil, err
	}

	arc, err := do.Invoke[archive.Archive](container)
	if err != nil {
		return nil, err
	}

	servicePrize, err := do.Invoke[*ServicePrize](container)
	if err != nil {
		return nil, err
	}

	serviceUser, err := do.Invoke[*ServiceUser](container)
	if err != nil {
		return nil, err
	}

	serviceDispatcher, err := do.Invoke[*ServiceDispatcher](container)
	if err != nil {
		return nil, err
	}

	return &ServiceAdmin{container, isPrivileged, arc, servicePrize, serviceUser, serviceDispatcher}, nil
}

func (service *ServiceAdmin) authorize(callerID int64) error {
	if !service.isPrivileged(callerID) {
		return ErrNotPrivileged
	}
	return nil
}

// AddPrize stores data as a new original when given, then registers the
// image as an unused prize.
func (service *ServiceAdmin) AddPrize(ctx context.Context, callerID int64, imageKey string, data []byte) (*models.Prize, error) {
	if err := service.authorize(callerID); err != nil {
		return nil, err
	}

	if len(data) > 0 {
		if err := service.archive.Put(ctx, archive.Originals, imageKey, data); err != nil {
			return nil, err
		}
	}

	return service.servicePrize.AddPrize(ctx, imageKey)
}

func (service *ServiceAdmin) SetDispatchInterval(ctx context.Context, callerID int64, minutes int) error {
	if err := service.authorize(callerID); err != nil {
		return err
	}
	if minutes < 1 {
		return ErrInvalidInterval
	}

	return service.serviceDispatcher.SetInterval(ctx, time.Duration(minutes)*time.Minute)
}

func (service *ServiceAdmin) GrantBonus(ctx context.Context, callerID int64, userID int64, points int) (int, error) {
	if err := service.authorize(callerID); err != nil {
		return 0, err
	}

	return service.serviceUser.AddBonus(ctx, userID, points)
}

func (service *ServiceAdmin) LoadPrizes(ctx context.Context, callerID int64) (int, error) {
	if err := service.authorize(callerID); err != nil {
		return 0, err
	}

	return service.servicePrize.LoadPrizes(ctx)
}
