package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"prizedrop/internal/archive"
	"prizedrop/internal/datastore"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObscure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servicePrize := do.MustInvoke[*ServicePrize](env.injector)

	original := solidPNG(t, red, 40, 40)
	require.NoError(t, env.archive.Put(ctx, archive.Originals, "cat.png", original))

	t.Run("writes the teaser and keeps the original", func(t *testing.T) {
		key, err := servicePrize.Obscure(ctx, "cat.png")
		require.NoError(t, err)
		assert.Equal(t, "cat.png", key)

		teaser, err := env.archive.Get(ctx, archive.Teasers, key)
		require.NoError(t, err)
		assert.NotEmpty(t, teaser)

		stored, err := env.archive.Get(ctx, archive.Originals, "cat.png")
		require.NoError(t, err)
		assert.Equal(t, original, stored)
	})

	t.Run("is deterministic", func(t *testing.T) {
		first, err := env.archive.Get(ctx, archive.Teasers, "cat.png")
		require.NoError(t, err)

		_, err = servicePrize.Obscure(ctx, "cat.png")
		require.NoError(t, err)

		second, err := env.archive.Get(ctx, archive.Teasers, "cat.png")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := servicePrize.Obscure(ctx, "nope.png")
		assert.ErrorIs(t, err, ErrSourceImageMissing)
	})

	t.Run("undecodable source", func(t *testing.T) {
		require.NoError(t, env.archive.Put(ctx, archive.Originals, "junk.png", []byte("not an image")))

		_, err := servicePrize.Obscure(ctx, "junk.png")
		assert.ErrorIs(t, err, ErrSourceImageMissing)
	})
}

func TestAddPrizeRejectsKnownImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servicePrize := do.MustInvoke[*ServicePrize](env.injector)

	require.NoError(t, env.archive.Put(ctx, archive.Originals, "cat.png", solidPNG(t, red, 10, 10)))

	prize, err := servicePrize.AddPrize(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", prize.ImageKey)
	assert.NotZero(t, prize.ID)

	_, err = servicePrize.AddPrize(ctx, "cat.png")
	assert.ErrorIs(t, err, ErrDuplicatePrize)

	_, err = servicePrize.AddPrize(ctx, "dog.png")
	assert.ErrorIs(t, err, ErrSourceImageMissing)
}

func TestLoadPrizesConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	servicePrize := do.MustInvoke[*ServicePrize](env.injector)

	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("img%d.png", i)
		require.NoError(t, env.archive.Put(ctx, archive.Originals, key, solidPNG(t, red, 10, 10)))
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := servicePrize.LoadPrizes(ctx)
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, total)

	prizes, err := datastore.ListPrizes(ctx, env.db)
	require.NoError(t, err)
	assert.Len(t, prizes, 8)

	n, err := servicePrize.LoadPrizes(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
