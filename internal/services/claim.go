package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prizedrop/internal/config"
	"prizedrop/internal/datastore"
	"prizedrop/internal/metrics"
	"prizedrop/internal/models"
	"prizedrop/internal/pkg/limiter"
	"prizedrop/internal/pkg/locker"

	"github.com/go-redis/redis_rate/v10"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServiceClaim decides which claim attempts win a prize. Attempts on the
// same prize are serialized by the locker and the store transaction.
type ServiceClaim struct {
	container          *do.Injector
	postgresDB         *bun.DB
	locker             locker.Locker
	limiter            limiter.Limiter
	logger             *slog.Logger
	serviceLeaderboard *ServiceLeaderboard

	storeTimeout    time.Duration
	claimsPerMinute int

	mu       sync.RWMutex
	draining bool
	inflight sync.WaitGroup
}

func NewServiceClaim(container *do.Injector) (*ServiceClaim, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	lk, err := do.Invoke[locker.Locker](container)
	if err != nil {
		return nil, err
	}

	lm, err := do.Invoke[limiter.Limiter](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*slog.Logger](container)
	if err != nil {
		return nil, err
	}

	cfg, err := do.Invoke[*config.Config](container)
	if err != nil {
		return nil, err
	}

	serviceLeaderboard, err := do.Invoke[*ServiceLeaderboard](container)
	if err != nil {
		return nil, err
	}

	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = DEFAULT_STORE_TIMEOUT
	}

	return &ServiceClaim{
		container:          container,
		postgresDB:         postgresDB,
		locker:             lk,
		limiter:            lm,
		logger:             logger,
		serviceLeaderboard: serviceLeaderboard,
		storeTimeout:       storeTimeout,
		claimsPerMinute:    cfg.ClaimsPerMinute,
	}, nil
}

func (service *ServiceClaim) AttemptClaim(ctx context.Context, userID int64, prizeID int64) (*models.ClaimResult, error) {
	service.mu.RLock()
	if service.draining {
		service.mu.RUnlock()
		return nil, ErrUnavailable
	}
	service.inflight.Add(1)
	service.mu.RUnlock()
	defer service.inflight.Done()

	result, err := service.attempt(ctx, userID, prizeID)
	metrics.ClaimAttempts.WithLabelValues(claimOutcome(err)).Inc()
	return result, err
}

func (service *ServiceClaim) attempt(ctx context.Context, userID int64, prizeID int64) (*models.ClaimResult, error) {
	if service.claimsPerMinute > 0 {
		err := service.limiter.Allow(ctx, LimitKeyUserClaim(userID), redis_rate.PerMinute(service.claimsPerMinute))
		if err != nil {
			return nil, err
		}
	}

	countCtx, cancel := context.WithTimeout(ctx, service.storeTimeout)
	count, err := datastore.WinnerCountForPrize(countCtx, service.postgresDB, prizeID)
	err = service.storeError(countCtx, err)
	cancel()
	if err != nil {
		return nil, err
	}
	if count >= datastore.MaxWinnersPerPrize {
		return nil, ErrPrizeExhausted
	}

	lockCtx, cancelLock := context.WithTimeout(ctx, service.storeTimeout)
	defer cancelLock()

	unlock, err := service.locker.Lock(lockCtx, LockKeyPrizeClaim(prizeID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer unlock()

	storeCtx, cancelStore := context.WithTimeout(ctx, service.storeTimeout)
	defer cancelStore()

	prize, err := datastore.RecordWin(storeCtx, service.postgresDB, userID, prizeID, BonusPerClaim)
	if err != nil {
		return nil, service.storeError(storeCtx, err)
	}

	if err := service.serviceLeaderboard.Invalidate(ctx); err != nil {
		service.logger.Warn("leaderboard invalidation failed", "error", err)
	}

	service.logger.Info("prize claimed", "user_id", userID, "prize_id", prizeID)
	return &models.ClaimResult{
		PrizeID:  prize.ID,
		UserID:   userID,
		ImageKey: prize.ImageKey,
		Bonus:    BonusPerClaim,
	}, nil
}

// storeError marks err retryable when the store call ran out of time. It must
// be called before ctx is cancelled.
func (service *ServiceClaim) storeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// Drain refuses new attempts and waits for the running ones.
func (service *ServiceClaim) Drain(ctx context.Context) error {
	service.mu.Lock()
	service.draining = true
	service.mu.Unlock()

	done := make(chan struct{})
	go func() {
		service.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrPrizeExhausted):
		return "exhausted"
	case errors.Is(err, ErrAlreadyClaimed):
		return "duplicate"
	case errors.Is(err, ErrPrizeNotFound):
		return "unknown_prize"
	case errors.Is(err, ErrUserNotFound):
		return "unknown_user"
	case errors.Is(err, limiter.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
