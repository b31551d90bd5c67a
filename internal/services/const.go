package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"prizedrop/internal/datastore"
	"prizedrop/internal/pkg/imagekit"
	"prizedrop/internal/pkg/limiter"
)

var (
	ErrSourceImageMissing = errors.New("source image missing")
	ErrNoWins             = errors.New("no wins yet")
	ErrUnavailable        = errors.New("temporarily unavailable")
	ErrNotPrivileged      = errors.New("not privileged")
	ErrInvalidInterval    = errors.New("dispatch interval must be at least one minute")
	ErrInvalidPoints      = errors.New("points must be positive")
	ErrDuplicatePrize     = errors.New("prize already registered for this image")
)

// store and image errors surface unchanged through the services
var (
	ErrDuplicateUser        = datastore.ErrDuplicateUser
	ErrUserNotFound         = datastore.ErrUserNotFound
	ErrNoPrizeAvailable     = datastore.ErrNoPrizeAvailable
	ErrPrizeNotFound        = datastore.ErrPrizeNotFound
	ErrPrizeExhausted       = datastore.ErrPrizeExhausted
	ErrAlreadyClaimed       = datastore.ErrAlreadyClaimed
	ErrInsufficientBonus    = datastore.ErrInsufficientBonus
	ErrEmptyImageSet        = imagekit.ErrEmptyImageSet
	ErrNonUniformDimensions = imagekit.ErrNonUniformDimensions
	ErrRateLimited          = limiter.ErrRateLimited
)

const (
	CONFIG_DISPATCH_INTERVAL_MINUTES = "DISPATCH_INTERVAL_MINUTES"

	BonusPerClaim = 10

	LEADERBOARD_DEFAULT_LIMIT = 10
	LEADERBOARD_CACHED_SIZE   = 100

	MIN_DISPATCH_INTERVAL     = time.Minute
	DEFAULT_DISPATCH_INTERVAL = time.Minute
	DEFAULT_STORE_TIMEOUT     = 5 * time.Second
	DEFAULT_DISPATCH_WORKERS  = 8

	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_5_MINS     = 5 * time.Minute

	PRIVILEGE_PREDICATE = "is-privileged"
)

func LockKeyPrizeClaim(prizeID int64) string {
	return fmt.Sprintf("lock:prize-claim:%d", prizeID)
}

func LimitKeyUserClaim(userID int64) string {
	return fmt.Sprintf("limit:user-claim:%d", userID)
}

// db
func DBKeyLeaderboard() string {
	return "leaderboard:top"
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func CollageKey(userID int64) string {
	return fmt.Sprintf("%d_collage.png", userID)
}
