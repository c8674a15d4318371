package journal

import (
	"context"
	"errors"
	"time"

	"tradegateway/internal/session"
	"tradegateway/pkg/storage/postgres"

	"go.uber.org/zap"
)

const (
	defaultBufferSize    = 1024
	defaultPruneInterval = time.Hour
	insertTimeout        = 2 * time.Second
	pruneTimeout         = 30 * time.Second
)

// Store persists journal records.
type Store interface {
	InsertClosedOrder(ctx context.Context, record *postgres.ClosedOrderRecord) error
	DeleteClosedOrdersBefore(ctx context.Context, before time.Time) (int64, error)
}

type Options struct {
	BufferSize int
	// Retention prunes records closed longer ago than this. Zero disables pruning.
	Retention     time.Duration
	PruneInterval time.Duration
}

// Source delivers close notifications.
type Source interface {
	SubscribeClose(fn func(session.CloseNotification)) (unsubscribe func())
}

type entry struct {
	notification session.CloseNotification
	closedAt     time.Time
}

// Recorder writes close notifications to the journal from a single worker.
// Recording never blocks the caller; entries are dropped when the queue is full.
type Recorder struct {
	store  Store
	logger *zap.Logger
	opts   Options
	queue  chan entry
	now    func() time.Time
}

func NewRecorder(store Store, logger *zap.Logger, opts Options) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = defaultPruneInterval
	}
	return &Recorder{
		store:  store,
		logger: logger,
		opts:   opts,
		queue:  make(chan entry, opts.BufferSize),
		now:    time.Now,
	}
}

// Attach subscribes the recorder to src.
func (r *Recorder) Attach(src Source) (detach func()) {
	return src.SubscribeClose(func(n session.CloseNotification) {
		r.Record(n)
	})
}

// Record enqueues n and reports whether it was accepted.
func (r *Recorder) Record(n session.CloseNotification) bool {
	select {
	case r.queue <- entry{notification: n, closedAt: r.now().UTC()}:
		return true
	default:
		r.logger.Warn("journal queue full, dropping close notification", zap.Int64("ticket", n.Ticket))
		return false
	}
}

// Run drains the queue until ctx is cancelled. With a retention set it also
// prunes old records, once at start and then every PruneInterval.
func (r *Recorder) Run(ctx context.Context) error {
	var prune <-chan time.Time
	if r.opts.Retention > 0 {
		r.prune(ctx)
		ticker := time.NewTicker(r.opts.PruneInterval)
		defer ticker.Stop()
		prune = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-r.queue:
			r.write(ctx, e)
		case <-prune:
			r.prune(ctx)
		}
	}
}

func (r *Recorder) prune(ctx context.Context) {
	before := r.now().UTC().Add(-r.opts.Retention)

	dbCtx, cancel := context.WithTimeout(ctx, pruneTimeout)
	deleted, err := r.store.DeleteClosedOrdersBefore(dbCtx, before)
	cancel()
	if err != nil {
		r.logger.Warn("failed to prune journal", zap.Time("before", before), zap.Error(err))
		return
	}
	if deleted > 0 {
		r.logger.Info("pruned journal", zap.Int64("deleted", deleted), zap.Time("before", before))
	}
}

func (r *Recorder) write(ctx context.Context, e entry) {
	record := &postgres.ClosedOrderRecord{
		ExternalID: e.notification.Ticket,
		ClosePrice: e.notification.ClosePrice,
		Volume:     e.notification.Volume,
		ClosedAt:   e.closedAt,
	}

	dbCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	err := r.store.InsertClosedOrder(dbCtx, record)
	cancel()

	switch {
	case err == nil:
		r.logger.Debug("journaled close", zap.Int64("ticket", record.ExternalID))
	case errors.Is(err, postgres.ErrDuplicateClosedOrder):
		r.logger.Debug("close already journaled", zap.Int64("ticket", record.ExternalID))
	default:
		r.logger.Warn("failed to journal close", zap.Int64("ticket", record.ExternalID), zap.Error(err))
	}
}
