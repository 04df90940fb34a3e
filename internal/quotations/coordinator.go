package quotations

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ViewInvalidator is the capability the coordinator needs from the cache.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Scheduler runs deferred work off the critical path of the triggering
// request. Production uses DeferredScheduler; tests inject SyncScheduler
// so invalidation settles before assertions run.
type Scheduler interface {
	Schedule(fn func())
}

// DeferredScheduler hands work to its own goroutine, so the request
// goroutine never waits on cache refresh.
type DeferredScheduler struct{}

func (DeferredScheduler) Schedule(fn func()) {
	go fn()
}

// SyncScheduler runs work inline. Test use only.
type SyncScheduler struct{}

func (SyncScheduler) Schedule(fn func()) {
	fn()
}

// Coordinator keeps the cached views of the quotation collection coherent
// after writes. It invalidates every view a mutation could have affected:
// the unfiltered list, each per-status list, any extra named views, and
// the touched quotation's item view. Individual refresh failures are
// logged and swallowed; a cache miss must never fail the user-visible
// mutation that is already committed.
type Coordinator struct {
	views      ViewInvalidator
	scheduler  Scheduler
	logger     *slog.Logger
	timeout    time.Duration
	extraViews []string
	metrics    InvalidationCounter
}

// InvalidationCounter observes invalidation outcomes, typically backed by
// the observability package.
type InvalidationCounter interface {
	CountInvalidation(outcome string)
}

// NewCoordinator wires the coordinator. extraViews allows registering
// additional named filter views that should be dropped on every mutation.
func NewCoordinator(views ViewInvalidator, scheduler Scheduler, logger *slog.Logger, extraViews ...string) *Coordinator {
	if scheduler == nil {
		scheduler = DeferredScheduler{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		views:      views,
		scheduler:  scheduler,
		logger:     logger,
		timeout:    10 * time.Second,
		extraViews: extraViews,
	}
}

// WithMetrics attaches an outcome counter and returns the coordinator.
func (c *Coordinator) WithMetrics(m InvalidationCounter) *Coordinator {
	c.metrics = m
	return c
}

// AffectedKeys returns every view key a mutation of the given quotation
// could have left stale. touchedID <= 0 means no single-item view is
// known (e.g. a delete that already dropped the record).
func (c *Coordinator) AffectedKeys(touchedID int64) []string {
	keys := []string{KeyListAll()}
	for _, s := range AllStatuses {
		keys = append(keys, KeyListStatus(s))
	}
	keys = append(keys, c.extraViews...)
	if touchedID > 0 {
		keys = append(keys, KeyItem(touchedID))
	}
	return keys
}

// AfterMutation schedules invalidation of every affected view and returns
// a channel closed when all invalidations have settled. The caller is not
// expected to wait; the channel exists so tests and shutdown paths can
// observe settlement. All invalidations for one call are issued
// concurrently, and a failure in one view never prevents the others.
func (c *Coordinator) AfterMutation(touchedID int64) <-chan struct{} {
	keys := c.AffectedKeys(touchedID)
	done := make(chan struct{})
	c.scheduler.Schedule(func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		for _, key := range keys {
			key := key
			g.Go(func() error {
				if err := c.views.Invalidate(ctx, key); err != nil {
					c.logger.Warn("view invalidation failed",
						slog.String("key", key),
						slog.Any("error", err),
					)
					if c.metrics != nil {
						c.metrics.CountInvalidation("error")
					}
					// Errors are absorbed so sibling invalidations run to
					// completion and the committed mutation is never failed.
					return nil
				}
				if c.metrics != nil {
					c.metrics.CountInvalidation("ok")
				}
				return nil
			})
		}
		_ = g.Wait()
	})
	return done
}
