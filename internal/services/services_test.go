package services

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"prizedrop/internal/archive"
	"prizedrop/internal/config"
	"prizedrop/internal/datastore"
	"prizedrop/internal/logger"
	"prizedrop/internal/models"
	"prizedrop/internal/pkg/caching"
	"prizedrop/internal/pkg/imagekit"
	"prizedrop/internal/pkg/limiter"
	"prizedrop/internal/pkg/locker"

	"github.com/samber/do"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const testAdminID = 1000

type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []models.Delivery
	failFor    map[int64]error
}

func (n *recordingNotifier) Notify(ctx context.Context, delivery models.Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[delivery.UserID]; ok {
		return err
	}
	n.deliveries = append(n.deliveries, delivery)
	return nil
}

func (n *recordingNotifier) Deliveries() []models.Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Delivery(nil), n.deliveries...)
}

type testEnv struct {
	injector *do.Injector
	db       *bun.DB
	archive  *archive.MemoryArchive
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := datastore.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, datastore.CreateTables(context.Background(), db))

	return newTestEnvWithDB(t, db)
}

// newTestEnvWithDB builds a second process view over a shared database: own
// caches, locks and notifier, same rows.
func newTestEnvWithDB(t *testing.T, db *bun.DB) *testEnv {
	t.Helper()

	env := &testEnv{
		injector: do.New(),
		db:       db,
		archive:  archive.NewMemoryArchive(),
		notifier: &recordingNotifier{failFor: map[int64]error{}},
	}

	cfg := &config.Config{
		DispatchInterval: time.Minute,
		DispatchWorkers:  4,
		StoreTimeout:     5 * time.Second,
		AdminIDs:         []int64{testAdminID},
	}

	do.ProvideValue(env.injector, cfg)
	do.ProvideValue(env.injector, logger.Discard())
	do.ProvideValue(env.injector, db)
	do.ProvideValue[archive.Archive](env.injector, env.archive)
	do.ProvideValue[caching.Cache](env.injector, caching.NewCacheLocal(100, time.Minute))
	do.ProvideValue[limiter.Limiter](env.injector, limiter.Unlimited{})
	do.ProvideValue[locker.Locker](env.injector, locker.NewLocalLocker())
	do.ProvideValue[Notifier](env.injector, env.notifier)
	do.ProvideNamedValue(env.injector, PRIVILEGE_PREDICATE, cfg.IsAdmin())

	do.Provide(env.injector, NewAuthentication)
	do.Provide(env.injector, NewServiceConfig)
	do.Provide(env.injector, NewServiceUser)
	do.Provide(env.injector, NewServicePrize)
	do.Provide(env.injector, NewServiceLeaderboard)
	do.Provide(env.injector, NewServiceClaim)
	do.Provide(env.injector, NewServiceDispatcher)
	do.Provide(env.injector, NewServiceCollage)
	do.Provide(env.injector, NewServiceAdmin)

	return env
}

func solidPNG(t *testing.T, c color.NRGBA, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	data, err := imagekit.Encode(img, "solid.png")
	require.NoError(t, err)
	return data
}

// addPrize stores an original and registers it as a prize.
func (env *testEnv) addPrize(t *testing.T, key string, c color.NRGBA) int64 {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, env.archive.Put(ctx, archive.Originals, key, solidPNG(t, c, 10, 10)))
	_, err := datastore.AddPrizes(ctx, env.db, []string{key})
	require.NoError(t, err)

	prizes, err := datastore.ListPrizes(ctx, env.db)
	require.NoError(t, err)
	for _, prize := range prizes {
		if prize.ImageKey == key {
			return prize.ID
		}
	}
	t.Fatalf("prize %s not found", key)
	return 0
}

func (env *testEnv) registerUsers(t *testing.T, ids ...int64) {
	t.Helper()

	for _, id := range ids {
		_, err := datastore.RegisterUser(context.Background(), env.db, id, "user")
		require.NoError(t, err)
	}
}
