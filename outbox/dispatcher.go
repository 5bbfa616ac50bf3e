package outbox

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ewallet/events"
	"ewallet/metrics"

	"go.uber.org/zap"
)

const (
	DefaultMaxBatchBytes = 256 * 1024
	DefaultInterval      = 2 * time.Second
	idlePoll             = 100 * time.Millisecond
)

type Publisher interface {
	PublishTransactionRequestCreate(ctx context.Context, msg events.TransactionRequestCreate) error
}

// Dispatcher drains an Outbox into a Publisher. A batch goes out once it
// reaches MaxBatchBytes or has waited Interval, whichever comes first.
type Dispatcher struct {
	Outbox        *Outbox
	Publisher     Publisher
	MaxBatchBytes int
	Interval      time.Duration

	logger  *zap.Logger
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

func NewDispatcher(ob *Outbox, pub Publisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Outbox:        ob,
		Publisher:     pub,
		MaxBatchBytes: DefaultMaxBatchBytes,
		Interval:      DefaultInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Flush publishes one snapshot in order and removes what was sent. It stops
// at the first failure so later requests never overtake an earlier one.
func (d *Dispatcher) Flush(ctx context.Context) (int, error) {
	snap := d.Outbox.SnapshotUntilSize(d.MaxBatchBytes)

	sent := 0
	for _, id := range snap.RequestIDs {
		msg, ok := d.Outbox.Get(id)
		if !ok {
			continue
		}
		if err := d.Publisher.PublishTransactionRequestCreate(ctx, msg); err != nil {
			metrics.Dispatched.WithLabelValues("error").Inc()
			return sent, err
		}
		metrics.Dispatched.WithLabelValues("ok").Inc()
		d.Outbox.Remove(id)
		sent++
	}
	return sent, nil
}

// Start runs the dispatch loop in a goroutine until ctx is done or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	d.logger.Info("dispatcher started",
		zap.Duration("interval", d.Interval),
		zap.Int("max_batch_bytes", d.MaxBatchBytes))

	go func() {
		defer close(d.done)

		ticker := time.NewTicker(idlePoll)
		defer ticker.Stop()

		batchStart := time.Now()

		for {
			select {
			case <-ctx.Done():
				d.logger.Info("dispatcher stopped", zap.Error(ctx.Err()))
				return
			case <-d.stopCh:
				d.logger.Info("dispatcher stopped")
				return

			case <-ticker.C:
				snap := d.Outbox.SnapshotUntilSize(d.MaxBatchBytes)
				if len(snap.RequestIDs) == 0 {
					batchStart = time.Now()
					continue
				}

				if snap.Size < d.MaxBatchBytes &&
					time.Since(batchStart) < d.Interval {
					continue
				}

				sent, err := d.Flush(ctx)
				if err != nil {
					d.logger.Warn("dispatch failed, will retry",
						zap.Int("sent", sent),
						zap.Int("pending", d.Outbox.Len()),
						zap.Error(err))
				} else {
					d.logger.Debug("dispatched batch", zap.Int("sent", sent))
				}
				batchStart = time.Now()
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stopCh) })
	if d.started.Load() {
		<-d.done
	}
}
