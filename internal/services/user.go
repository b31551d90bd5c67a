package services

import (
	"context"

	"prizedrop/internal/datastore"
	"prizedrop/internal/models"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceUser struct {
	container  *do.Injector
	postgresDB *bun.DB
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, postgresDB}, nil
}

func (service *ServiceUser) Register(ctx context.Context, userID int64, name string) (*models.User, error) {
	return datastore.RegisterUser(ctx, service.postgresDB, userID, name)
}

func (service *ServiceUser) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return datastore.FindUserByID(ctx, service.postgresDB, userID)
}

func (service *ServiceUser) Bonus(ctx context.Context, userID int64) (int, error) {
	user, err := datastore.FindUserByID(ctx, service.postgresDB, userID)
	if err != nil {
		return 0, err
	}
	return user.Bonus, nil
}

// SpendBonus takes points off the balance and returns what is left.
func (service *ServiceUser) SpendBonus(ctx context.Context, userID int64, points int) (int, error) {
	if points <= 0 {
		return 0, ErrInvalidPoints
	}
	return datastore.AdjustBonus(ctx, service.postgresDB, userID, -points)
}

func (service *ServiceUser) AddBonus(ctx context.Context, userID int64, points int) (int, error) {
	if points <= 0 {
		return 0, ErrInvalidPoints
	}
	return datastore.AdjustBonus(ctx, service.postgresDB, userID, points)
}
