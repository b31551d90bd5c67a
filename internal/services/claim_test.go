package services

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"prizedrop/internal/datastore"
	"prizedrop/internal/pkg/locker"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{R: 255, A: 255}

func TestAttemptClaimConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	prizeID := env.addPrize(t, "cat.png", red)
	for id := int64(1); id <= 10; id++ {
		env.registerUsers(t, id)
	}

	serviceClaim := do.MustInvoke[*ServiceClaim](env.injector)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  []int64
		exhausted int
	)
	for id := int64(1); id <= 10; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := serviceClaim.AttemptClaim(ctx, id, prizeID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrPrizeExhausted)
				exhausted++
				return
			}
			assert.Equal(t, "cat.png", result.ImageKey)
			assert.Equal(t, BonusPerClaim, result.Bonus)
			accepted = append(accepted, id)
		}()
	}
	wg.Wait()

	assert.Len(t, accepted, 3)
	assert.Equal(t, 7, exhausted)

	count, err := datastore.WinnerCountForPrize(ctx, env.db, prizeID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for _, id := range accepted {
		user, err := datastore.FindUserByID(ctx, env.db, id)
		require.NoError(t, err)
		assert.Equal(t, BonusPerClaim, user.Bonus)
	}
}

func TestAttemptClaimRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	prizeID := env.addPrize(t, "cat.png", red)
	env.registerUsers(t, 1)
	serviceClaim := do.MustInvoke[*ServiceClaim](env.injector)

	t.Run("same user twice", func(t *testing.T) {
		_, err := serviceClaim.AttemptClaim(ctx, 1, prizeID)
		require.NoError(t, err)

		_, err = serviceClaim.AttemptClaim(ctx, 1, prizeID)
		assert.ErrorIs(t, err, ErrAlreadyClaimed)

		bonus, err := do.MustInvoke[*ServiceUser](env.injector).Bonus(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, BonusPerClaim, bonus)
	})

	t.Run("unknown prize", func(t *testing.T) {
		_, err := serviceClaim.AttemptClaim(ctx, 1, 9999)
		assert.ErrorIs(t, err, ErrPrizeNotFound)
	})

	t.Run("unregistered user", func(t *testing.T) {
		_, err := serviceClaim.AttemptClaim(ctx, 42, prizeID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestAttemptClaimUpdatesLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	prizeID := env.addPrize(t, "cat.png", red)
	env.registerUsers(t, 1, 2)

	serviceLeaderboard := do.MustInvoke[*ServiceLeaderboard](env.injector)
	items, err := serviceLeaderboard.Top(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Zero(t, items[0].Wins)

	_, err = do.MustInvoke[*ServiceClaim](env.injector).AttemptClaim(ctx, 2, prizeID)
	require.NoError(t, err)

	items, err = serviceLeaderboard.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].UserID)
	assert.Equal(t, 1, items[0].Wins)
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string) (locker.Unlock, error) {
	return nil, errors.New("lock backend down")
}

func TestAttemptClaimLockFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	do.OverrideValue[locker.Locker](env.injector, failingLocker{})

	prizeID := env.addPrize(t, "cat.png", red)
	env.registerUsers(t, 1)

	_, err := do.MustInvoke[*ServiceClaim](env.injector).AttemptClaim(ctx, 1, prizeID)
	assert.ErrorIs(t, err, ErrUnavailable)

	count, err := datastore.WinnerCountForPrize(ctx, env.db, prizeID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAttemptClaimStoreErrors(t *testing.T) {
	t.Run("expired deadline is retryable", func(t *testing.T) {
		env := newTestEnv(t)
		prizeID := env.addPrize(t, "cat.png", red)
		env.registerUsers(t, 1)

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		_, err := do.MustInvoke[*ServiceClaim](env.injector).AttemptClaim(ctx, 1, prizeID)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("broken store is not retryable", func(t *testing.T) {
		env := newTestEnv(t)
		prizeID := env.addPrize(t, "cat.png", red)
		env.registerUsers(t, 1)

		serviceClaim := do.MustInvoke[*ServiceClaim](env.injector)
		require.NoError(t, env.db.Close())

		_, err := serviceClaim.AttemptClaim(context.Background(), 1, prizeID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	})
}

func TestDrain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	prizeID := env.addPrize(t, "cat.png", red)
	env.registerUsers(t, 1)

	serviceClaim := do.MustInvoke[*ServiceClaim](env.injector)
	require.NoError(t, serviceClaim.Drain(ctx))

	_, err := serviceClaim.AttemptClaim(ctx, 1, prizeID)
	assert.ErrorIs(t, err, ErrUnavailable)
}
