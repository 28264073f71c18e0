package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"livingcost/internal/amqp"
	"livingcost/internal/log"
	"livingcost/internal/metrics"
	"livingcost/internal/prices"
)

const (
	DefaultMinRows   = 40
	DefaultRetention = 30
	DefaultSchedule  = "@daily"
)

var ErrTooFewRows = errors.New("price table has too few rows")

// SnapshotStore persists refreshed tables.
type SnapshotStore interface {
	SaveTable(ctx context.Context, t prices.Table) (int64, error)
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

// Publisher announces new snapshots to running servers.
type Publisher interface {
	PublishPriceRefresh(ctx context.Context, msg *amqp.PriceTableRefreshedMessage) error
}

type Options struct {
	MinRows   int
	Retention int
	Schedule  string
}

// RefreshWorker copies the upstream price table into SQLite snapshots.
type RefreshWorker struct {
	source    prices.TableReader
	store     SnapshotStore
	publisher Publisher
	logger    *log.Logger
	structLog *log.StructuredLogger
	opts      Options

	// mu keeps a scheduled run from overlapping the startup run.
	mu sync.Mutex
}

// NewRefreshWorker builds a worker. publisher may be nil, in which case
// servers only see the snapshot once their cached table expires.
func NewRefreshWorker(source prices.TableReader, store SnapshotStore, publisher Publisher, logger *log.Logger, opts Options) *RefreshWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentWorker)
	if opts.MinRows <= 0 {
		opts.MinRows = DefaultMinRows
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	return &RefreshWorker{
		source:    source,
		store:     store,
		publisher: publisher,
		logger:    logger,
		structLog: log.NewStructuredLogger(logger),
		opts:      opts,
	}
}

// Refresh reads the upstream table, stores it and announces the snapshot.
// A failed publish is logged but does not fail the refresh.
func (w *RefreshWorker) Refresh(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, err := w.source.ReadTable(ctx)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return 0, fmt.Errorf("read upstream table: %w", err)
	}
	if t.Len() < w.opts.MinRows {
		metrics.RefreshesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return 0, fmt.Errorf("%w: %d from %s, need %d", ErrTooFewRows, t.Len(), t.Source, w.opts.MinRows)
	}

	id, err := w.store.SaveTable(ctx, t)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	metrics.RefreshesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	w.structLog.LogRefresh(ctx, t.Source, id, t.Len())

	if pruned, err := w.store.PruneSnapshots(ctx, w.opts.Retention); err != nil {
		w.logger.WarnContext(ctx, "Failed to prune old snapshots", log.FieldError, err)
	} else if pruned > 0 {
		w.logger.InfoContext(ctx, "Pruned old snapshots", "count", pruned, "keep", w.opts.Retention)
	}

	if w.publisher != nil {
		msg := amqp.NewPriceTableRefreshedMessage(id, t.Source, t.Len())
		if err := w.publisher.PublishPriceRefresh(ctx, msg); err != nil {
			w.logger.ErrorContext(ctx, "Failed to publish refresh event",
				log.FieldError, err, log.FieldSnapshotID, id)
		}
	}
	return id, nil
}

// Run refreshes once, then on the cron schedule until ctx is done.
func (w *RefreshWorker) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.opts.Schedule, func() { w.refreshLogged(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", w.opts.Schedule, err)
	}

	w.logger.InfoContext(ctx, "Performing startup refresh...")
	w.refreshLogged(ctx)

	c.Start()
	w.logger.InfoContext(ctx, "Refresh worker scheduled", "schedule", w.opts.Schedule)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return ctx.Err()
}

func (w *RefreshWorker) refreshLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.Refresh(ctx); err != nil {
		w.structLog.LogError(ctx, "Price table refresh failed", err, log.ComponentWorker, log.OpRefresh, nil)
	}
}
