package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"prizedrop/internal/config"
	"prizedrop/internal/datastore"
	"prizedrop/internal/metrics"
	"prizedrop/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// Notifier delivers a teaser and its claim button to one participant.
type Notifier interface {
	Notify(ctx context.Context, delivery models.Delivery) error
}

// ServiceDispatcher hands out one unused prize per registered user on every
// tick. A prize is marked used before it is sent and never sent again.
type ServiceDispatcher struct {
	container     *do.Injector
	postgresDB    *bun.DB
	notifier      Notifier
	logger        *slog.Logger
	servicePrize  *ServicePrize
	serviceConfig *ServiceConfig

	defaultInterval time.Duration
	workers         int
	storeTimeout    time.Duration

	mu       sync.Mutex
	runner   *cron.Cron
	entryID  cron.EntryID
	interval time.Duration

	// held for the length of a scheduled tick; a rescheduled entry must not
	// overlap the tick of the entry it replaced
	ticking sync.Mutex
}

func NewServiceDispatcher(container *do.Injector) (*ServiceDispatcher, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	notifier, err := do.Invoke[Notifier](container)
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

	servicePrize, err := do.Invoke[*ServicePrize](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	service := &ServiceDispatcher{
		container:       container,
		postgresDB:      postgresDB,
		notifier:        notifier,
		logger:          logger.With("component", "dispatcher"),
		servicePrize:    servicePrize,
		serviceConfig:   serviceConfig,
		defaultInterval: cfg.DispatchInterval,
		workers:         cfg.DispatchWorkers,
		storeTimeout:    cfg.StoreTimeout,
	}
	if service.defaultInterval < MIN_DISPATCH_INTERVAL {
		service.defaultInterval = DEFAULT_DISPATCH_INTERVAL
	}
	if service.workers <= 0 {
		service.workers = DEFAULT_DISPATCH_WORKERS
	}
	if service.storeTimeout <= 0 {
		service.storeTimeout = DEFAULT_STORE_TIMEOUT
	}

	return service, nil
}

// Interval reads the persisted period, falling back to the configured one.
func (service *ServiceDispatcher) Interval(ctx context.Context) time.Duration {
	return service.readInterval(ctx, service.serviceConfig.GetIntConfig)
}

// ScheduledInterval is the period the local runner currently ticks at.
func (service *ServiceDispatcher) ScheduledInterval() time.Duration {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.interval
}

func (service *ServiceDispatcher) readInterval(ctx context.Context, get func(context.Context, string, int) (int, error)) time.Duration {
	fallback := int(service.defaultInterval / time.Minute)
	minutes, err := get(ctx, CONFIG_DISPATCH_INTERVAL_MINUTES, fallback)
	if err != nil {
		service.logger.Warn("invalid dispatch interval config", "error", err)
	}
	if minutes < 1 {
		return service.defaultInterval
	}
	return time.Duration(minutes) * time.Minute
}

func (service *ServiceDispatcher) Running() bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.runner != nil
}

func (service *ServiceDispatcher) Start(ctx context.Context) {
	interval := service.readInterval(ctx, service.serviceConfig.RefreshIntConfig)

	service.mu.Lock()
	defer service.mu.Unlock()
	if service.runner != nil {
		return
	}

	logger := cronLogger{service.logger}
	service.runner = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	service.schedule(interval)
	service.runner.Start()

	service.logger.Info("dispatcher started", "interval", interval)
}

// Stop waits for a running tick to finish or ctx to expire.
func (service *ServiceDispatcher) Stop(ctx context.Context) error {
	service.mu.Lock()
	runner := service.runner
	service.runner = nil
	service.entryID = 0
	service.mu.Unlock()

	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
		service.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetInterval persists the period and reschedules a running dispatcher.
func (service *ServiceDispatcher) SetInterval(ctx context.Context, interval time.Duration) error {
	if interval < MIN_DISPATCH_INTERVAL {
		return ErrInvalidInterval
	}

	minutes := int(interval / time.Minute)
	err := service.serviceConfig.SetConfig(ctx, CONFIG_DISPATCH_INTERVAL_MINUTES, strconv.Itoa(minutes))
	if err != nil {
		return err
	}
	interval = time.Duration(minutes) * time.Minute

	service.mu.Lock()
	defer service.mu.Unlock()
	service.interval = interval
	if service.runner != nil {
		service.schedule(interval)
	}

	service.logger.Info("dispatch interval changed", "interval", interval)
	return nil
}

// schedule replaces the tick entry of the runner. mu must be held.
func (service *ServiceDispatcher) schedule(interval time.Duration) {
	if service.entryID != 0 {
		service.runner.Remove(service.entryID)
	}
	service.interval = interval
	service.entryID = service.runner.Schedule(cron.Every(interval), cron.FuncJob(service.scheduledTick))
}

// syncInterval picks up a period persisted by another process and
// reschedules the local runner when it differs.
func (service *ServiceDispatcher) syncInterval(ctx context.Context) {
	interval := service.readInterval(ctx, service.serviceConfig.RefreshIntConfig)

	service.mu.Lock()
	defer service.mu.Unlock()
	if service.runner == nil || interval == service.interval {
		return
	}

	service.schedule(interval)
	service.logger.Info("dispatch interval picked up", "interval", interval)
}

func (service *ServiceDispatcher) scheduledTick() {
	if !service.ticking.TryLock() {
		service.logger.Info("dispatch tick skipped, previous tick still running")
		return
	}
	defer service.ticking.Unlock()

	ctx := context.Background()
	service.syncInterval(ctx)

	start := time.Now()
	delivered, err := service.Tick(ctx)
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		service.logger.Error("dispatch tick failed", "error", err)
		return
	}
	service.logger.Info("dispatch tick done", "delivered", delivered, "took", time.Since(start))
}

// Tick sends one prize to every registered user and reports how many were
// delivered. Failures for a single user never abort the tick.
func (service *ServiceDispatcher) Tick(ctx context.Context) (int, error) {
	listCtx, cancel := context.WithTimeout(ctx, service.storeTimeout)
	userIDs, err := datastore.ListUserIDs(listCtx, service.postgresDB)
	cancel()
	if err != nil {
		return 0, err
	}

	var (
		mu        sync.Mutex
		delivered int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(service.workers)
	for _, userID := range userIDs {
		g.Go(func() error {
			outcome := service.deliver(gCtx, userID)
			metrics.Deliveries.WithLabelValues(outcome).Inc()
			if outcome == "delivered" {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
			return nil
		})
	}

	return delivered, g.Wait()
}

func (service *ServiceDispatcher) deliver(ctx context.Context, userID int64) string {
	storeCtx, cancel := context.WithTimeout(ctx, service.storeTimeout)
	prize, err := datastore.TakeRandomUnusedPrize(storeCtx, service.postgresDB)
	cancel()
	if errors.Is(err, ErrNoPrizeAvailable) {
		return "empty"
	}
	if err != nil {
		service.logger.Warn("take prize failed", "user_id", userID, "error", err)
		return "store_error"
	}

	teaserKey, err := service.servicePrize.Obscure(ctx, prize.ImageKey)
	if err != nil {
		service.logger.Warn("obscure failed", "user_id", userID, "prize_id", prize.ID, "error", err)
		return "missing_image"
	}

	err = service.notifier.Notify(ctx, models.Delivery{
		UserID:    userID,
		PrizeID:   prize.ID,
		TeaserKey: teaserKey,
	})
	if err != nil {
		service.logger.Warn("notify failed", "user_id", userID, "prize_id", prize.ID, "error", err)
		return "notify_failed"
	}

	return "delivered"
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
