package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"prizedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUser(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func RegisterUser(ctx context.Context, db bun.IDB, userID int64, name string) (*models.User, error) {
	user := &models.User{
		ID:        userID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	res, err := db.NewInsert().Model(user).On("CONFLICT (id) DO NOTHING").Returning("NULL").Exec(ctx)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrDuplicateUser
	}

	return user, nil
}

func FindUserByID(ctx context.Context, db bun.IDB, userID int64) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func CheckUserExists(ctx context.Context, db bun.IDB, userID int64) (bool, error) {
	return db.NewSelect().Model((*models.User)(nil)).Where("id = ?", userID).Exists(ctx)
}

// ListUserIDs returns every registered id in registration order.
func ListUserIDs(ctx context.Context, db bun.IDB) ([]int64, error) {
	var ids []int64
	err := db.NewSelect().Model((*models.User)(nil)).
		Column("id").
		Order("created_at ASC", "id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func CountUsers(ctx context.Context, db bun.IDB) (int, error) {
	return db.NewSelect().Model((*models.User)(nil)).Count(ctx)
}

// AdjustBonus adds delta (possibly negative) to the user's balance and returns
// the new balance. The balance never drops below zero.
func AdjustBonus(ctx context.Context, db bun.IDB, userID int64, delta int) (int, error) {
	res, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("bonus = bonus + ?", delta).
		Where("id = ?", userID).
		Where("bonus + ? >= 0", delta).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if n == 0 {
		exists, err := CheckUserExists(ctx, db, userID)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrUserNotFound
		}
		return 0, ErrInsufficientBonus
	}

	user, err := FindUserByID(ctx, db, userID)
	if err != nil {
		return 0, err
	}

	return user.Bonus, nil
}
