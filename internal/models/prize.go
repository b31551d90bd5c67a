package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Prize struct {
	bun.BaseModel `bun:"table:prize"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ImageKey      string    `bun:"image_key,notnull" json:"image_key"`
	Used          bool      `bun:"used,notnull,default:false" json:"used"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Delivery is what a user receives on a dispatch tick: the claim token and
// the teaser to show next to the claim button.
type Delivery struct {
	UserID    int64  `json:"user_id"`
	PrizeID   int64  `json:"prize_id"`
	TeaserKey string `json:"teaser_key"`
}
