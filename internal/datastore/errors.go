package datastore

import "errors"

var (
	ErrDuplicateUser     = errors.New("user already registered")
	ErrUserNotFound      = errors.New("user not found")
	ErrNoPrizeAvailable  = errors.New("no prize available")
	ErrPrizeNotFound     = errors.New("prize not found")
	ErrPrizeExhausted    = errors.New("prize already has all its winners")
	ErrAlreadyClaimed    = errors.New("prize already claimed by this user")
	ErrInsufficientBonus = errors.New("insufficient bonus points")
	ErrConfigNotFound    = errors.New("config not found")
)

// MaxWinnersPerPrize is the claim quota of every prize.
const MaxWinnersPerPrize = 3
