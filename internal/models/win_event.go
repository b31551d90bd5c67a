package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WinEvent struct {
	bun.BaseModel `bun:"table:win_event"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id,notnull" json:"user_id"`
	PrizeID       int64     `bun:"prize_id,notnull" json:"prize_id"`
	WonAt         time.Time `bun:"won_at,notnull" json:"won_at"`
}

type ClaimResult struct {
	PrizeID  int64  `json:"prize_id"`
	UserID   int64  `json:"user_id"`
	ImageKey string `json:"image_key"`
	Bonus    int    `json:"bonus"`
}
