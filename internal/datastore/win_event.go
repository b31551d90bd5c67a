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

const defaultLeaderboardLimit = 10

func CreateTableWinEvent(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.WinEvent)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.WinEvent)(nil)).Index("index_win_event_user_id_prize_id").IfNotExists().Unique().Column("user_id", "prize_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.WinEvent)(nil)).Index("index_win_event_prize_id").IfNotExists().Column("prize_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// RecordWin registers userID as a winner of prizeID and credits bonus points,
// all in one transaction. The prize row is locked first (FOR UPDATE on
// Postgres; SQLite serializes writers already), so the winner count read
// below cannot change before the insert commits.
func RecordWin(ctx context.Context, db *bun.DB, userID int64, prizeID int64, bonus int) (*models.Prize, error) {
	var prize models.Prize
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&prize).Where("id = ?", prizeID)
		if tx.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPrizeNotFound
			}
			return err
		}

		count, err := tx.NewSelect().Model((*models.WinEvent)(nil)).Where("prize_id = ?", prizeID).Count(ctx)
		if err != nil {
			return err
		}
		if count >= MaxWinnersPerPrize {
			return ErrPrizeExhausted
		}

		win := &models.WinEvent{
			UserID:  userID,
			PrizeID: prizeID,
			WonAt:   time.Now(),
		}
		res, err := tx.NewInsert().Model(win).On("CONFLICT (user_id, prize_id) DO NOTHING").Returning("NULL").Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyClaimed
		}

		res, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("bonus = bonus + ?", bonus).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &prize, nil
}

func WinnerCountForPrize(ctx context.Context, db bun.IDB, prizeID int64) (int, error) {
	return db.NewSelect().Model((*models.WinEvent)(nil)).Where("prize_id = ?", prizeID).Count(ctx)
}

func HasWon(ctx context.Context, db bun.IDB, userID int64, prizeID int64) (bool, error) {
	return db.NewSelect().Model((*models.WinEvent)(nil)).
		Where("user_id = ?", userID).
		Where("prize_id = ?", prizeID).
		Exists(ctx)
}

// WinsForUser returns the image keys the user has won, oldest win first.
func WinsForUser(ctx context.Context, db bun.IDB, userID int64) ([]string, error) {
	var keys []string
	err := db.NewSelect().
		TableExpr("win_event AS w").
		ColumnExpr("p.image_key").
		Join("JOIN prize AS p ON p.id = w.prize_id").
		Where("w.user_id = ?", userID).
		OrderExpr("w.id ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func GetWinEventsByPrize(ctx context.Context, db bun.IDB, prizeID int64) ([]*models.WinEvent, error) {
	var wins []*models.WinEvent
	err := db.NewSelect().Model(&wins).Where("prize_id = ?", prizeID).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	return wins, nil
}

// Leaderboard ranks users by number of wins; ties keep registration order.
func Leaderboard(ctx context.Context, db bun.IDB, limit int) ([]*models.LeaderboardItem, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	var items []*models.LeaderboardItem
	err := db.NewSelect().
		TableExpr("? AS u", bun.Ident("user")).
		ColumnExpr("u.id AS user_id, u.name AS name, COUNT(w.id) AS wins").
		Join("LEFT JOIN win_event AS w ON w.user_id = u.id").
		GroupExpr("u.id, u.name, u.created_at").
		OrderExpr("wins DESC, u.created_at ASC, u.id ASC").
		Limit(limit).
		Scan(ctx, &items)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		item.Rank = i + 1
	}

	return items, nil
}
