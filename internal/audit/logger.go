package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huddle-app/huddle/internal/platform/database"
)

// LoggerConfig configures the async audit logger.
type LoggerConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// AsyncLogger implements Logger with a buffered channel and one background
// worker that writes batches.
type AsyncLogger struct {
	events  chan Event
	store   *Store
	db      database.Querier
	cfg     LoggerConfig
	dropped atomic.Int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
	closed sync.Once
}

// NewAsyncLogger creates and starts an async audit logger.
func NewAsyncLogger(db database.Querier, store *Store, cfg LoggerConfig) *AsyncLogger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &AsyncLogger{
		events: make(chan Event, cfg.BufferSize),
		store:  store,
		db:     db,
		cfg:    cfg,
		cancel: cancel,
	}

	l.wg.Add(1)
	go l.run(ctx)

	return l
}

// Log enqueues an audit event. It never blocks; events are dropped when the
// buffer is full.
func (l *AsyncLogger) Log(_ context.Context, event Event) {
	select {
	case l.events <- event:
	default:
		l.dropped.Add(1)
		slog.Warn("audit buffer full, dropping event", "action", event.Action)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (l *AsyncLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes buffered events and stops the worker. Safe to call twice.
func (l *AsyncLogger) Close() error {
	l.closed.Do(func() {
		l.cancel()
		l.wg.Wait()
		l.flush(l.drain(nil))
	})
	return nil
}

func (l *AsyncLogger) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, l.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			l.flush(l.drain(batch))
			return

		case e := <-l.events:
			batch = append(batch, e)
			if len(batch) >= l.cfg.BatchSize {
				l.flush(batch)
				batch = make([]Event, 0, l.cfg.BatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = make([]Event, 0, l.cfg.BatchSize)
			}
		}
	}
}

func (l *AsyncLogger) flush(events []Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.InsertBatch(ctx, l.db, events); err != nil {
		slog.Error("audit flush failed", "error", err, "count", len(events))
	}
}

// drain appends everything currently buffered to batch without blocking.
func (l *AsyncLogger) drain(batch []Event) []Event {
	for {
		select {
		case e := <-l.events:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}
