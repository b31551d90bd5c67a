package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"prizedrop/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// takeAttempts bounds the retries of TakeRandomUnusedPrize on SQLite when a
// concurrent caller marks the picked row first.
const takeAttempts = 5

func CreateTablePrize(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.Prize)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Prize)(nil)).Index("index_prize_used").IfNotExists().Column("used").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Prize)(nil)).Index("index_prize_image_key").Unique().IfNotExists().Column("image_key").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// AddPrizes inserts one prize per image key and returns how many rows were
// created. Keys that already have a prize are skipped.
func AddPrizes(ctx context.Context, db bun.IDB, imageKeys []string) (int, error) {
	if len(imageKeys) == 0 {
		return 0, nil
	}

	now := time.Now()
	prizes := make([]*models.Prize, 0, len(imageKeys))
	for _, key := range imageKeys {
		prizes = append(prizes, &models.Prize{
			ImageKey:  key,
			CreatedAt: now,
		})
	}

	res, err := db.NewInsert().Model(&prizes).On("CONFLICT (image_key) DO NOTHING").Returning("NULL").Exec(ctx)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(n), nil
}

func FindPrizeByImageKey(ctx context.Context, db bun.IDB, imageKey string) (*models.Prize, error) {
	var prize models.Prize
	err := db.NewSelect().Model(&prize).Where("image_key = ?", imageKey).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrizeNotFound
	}
	if err != nil {
		return nil, err
	}

	return &prize, nil
}

func FindPrizeByID(ctx context.Context, db bun.IDB, prizeID int64) (*models.Prize, error) {
	var prize models.Prize
	err := db.NewSelect().Model(&prize).Where("id = ?", prizeID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrizeNotFound
	}
	if err != nil {
		return nil, err
	}

	return &prize, nil
}

func ListPrizes(ctx context.Context, db bun.IDB) ([]*models.Prize, error) {
	var prizes []*models.Prize
	err := db.NewSelect().Model(&prizes).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	return prizes, nil
}

func CountUnusedPrizes(ctx context.Context, db bun.IDB) (int, error) {
	return db.NewSelect().Model((*models.Prize)(nil)).Where("used = ?", false).Count(ctx)
}

func PickRandomUnusedPrize(ctx context.Context, db bun.IDB) (*models.Prize, error) {
	var prize models.Prize
	err := db.NewSelect().Model(&prize).
		Where("used = ?", false).
		OrderExpr("RANDOM()").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPrizeAvailable
	}
	if err != nil {
		return nil, err
	}

	return &prize, nil
}

func MarkPrizeUsed(ctx context.Context, db bun.IDB, prizeID int64) error {
	res, err := db.NewUpdate().
		Model((*models.Prize)(nil)).
		Set("used = ?", true).
		Where("id = ?", prizeID).
		Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPrizeNotFound
	}

	return nil
}

// TakeRandomUnusedPrize picks a random unused prize and marks it used, so a
// prize is handed to at most one caller. On Postgres the pick locks the row
// and skips rows other transactions hold; on SQLite the update is conditional
// on the row still being unused and the pick is retried when it loses.
func TakeRandomUnusedPrize(ctx context.Context, db *bun.DB) (*models.Prize, error) {
	if db.Dialect().Name() == dialect.PG {
		return takeRandomUnusedPrizeLocked(ctx, db)
	}

	for attempt := 0; attempt < takeAttempts; attempt++ {
		prize, err := PickRandomUnusedPrize(ctx, db)
		if err != nil {
			return nil, err
		}

		res, err := db.NewUpdate().
			Model((*models.Prize)(nil)).
			Set("used = ?", true).
			Where("id = ?", prize.ID).
			Where("used = ?", false).
			Exec(ctx)
		if err != nil {
			return nil, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 1 {
			prize.Used = true
			return prize, nil
		}
	}

	return nil, ErrNoPrizeAvailable
}

func takeRandomUnusedPrizeLocked(ctx context.Context, db *bun.DB) (*models.Prize, error) {
	var prize models.Prize
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&prize).
			Where("used = ?", false).
			OrderExpr("RANDOM()").
			Limit(1).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoPrizeAvailable
		}
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Prize)(nil)).
			Set("used = ?", true).
			Where("id = ?", prize.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	prize.Used = true
	return &prize, nil
}
