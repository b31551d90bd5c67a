package models

type LeaderboardItem struct {
	UserID int64  `bun:"user_id" json:"user_id" msgpack:"user_id"`
	Name   string `bun:"name" json:"name" msgpack:"name"`
	Wins   int    `bun:"wins" json:"wins" msgpack:"wins"`
	Rank   int    `bun:"-" json:"rank" msgpack:"rank"`
}
