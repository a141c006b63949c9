package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mediapack/internal/logging"
)

// Recorder accepts the hashes issued in one packing session. Implementations
// must never fail the caller.
type Recorder interface {
	Record(subject string, at time.Time, hashes ...string)
}

// Inserter is the part of Store an AsyncRecorder writes through.
type Inserter interface {
	InsertBatch(ctx context.Context, recs []Record) error
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(string, time.Time, ...string) {}

const (
	// DefaultQueueSize is used when NewAsync is given a non-positive size.
	// It counts sessions, not hashes.
	DefaultQueueSize = 64
	// DefaultEnqueueTimeout bounds how long Record waits for queue space.
	DefaultEnqueueTimeout = 2 * time.Second
)

// AsyncRecorder hands each session's hashes to a background writer as one
// batch. Record waits up to EnqueueTimeout for queue space and drops the
// batch only when the writer stays stalled that long.
type AsyncRecorder struct {
	sink   Inserter
	logger *slog.Logger
	queue  chan []Record
	done   chan struct{}

	// EnqueueTimeout may be changed before the first Record call.
	EnqueueTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsync starts the background writer.
func NewAsync(sink Inserter, queueSize int, logger *slog.Logger) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &AsyncRecorder{
		sink:           sink,
		logger:         logging.NewComponentLogger(logger, "audit"),
		queue:          make(chan []Record, queueSize),
		done:           make(chan struct{}),
		EnqueueTimeout: DefaultEnqueueTimeout,
	}
	go r.run()
	return r
}

// Record queues one batch for hashes.
func (r *AsyncRecorder) Record(subject string, at time.Time, hashes ...string) {
	if len(hashes) == 0 {
		return
	}
	batch := make([]Record, len(hashes))
	for i, hash := range hashes {
		batch[i] = Record{HashValue: hash, Subject: subject, Timestamp: at}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(batch, "recorder closed")
		return
	}
	select {
	case r.queue <- batch:
		return
	default:
	}
	timer := time.NewTimer(r.EnqueueTimeout)
	defer timer.Stop()
	select {
	case r.queue <- batch:
	case <-timer.C:
		r.drop(batch, "writer stalled")
	}
}

func (r *AsyncRecorder) drop(batch []Record, reason string) {
	r.dropped.Add(int64(len(batch)))
	logging.WarnWithContext(r.logger, "audit records dropped", "audit_dropped",
		logging.Int("hashes", len(batch)),
		logging.String("subject", batch[0].Subject),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "hashes missing from local audit history"),
	)
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for batch := range r.queue {
		if err := r.sink.InsertBatch(context.Background(), batch); err != nil {
			r.failed.Add(int64(len(batch)))
			logging.WarnWithContext(r.logger, "audit insert failed", "audit_insert_failed",
				logging.Int("hashes", len(batch)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check audit_db path and permissions"),
				logging.String(logging.FieldImpact, "hashes missing from local audit history"),
			)
		}
	}
}

// Close stops accepting records and waits for queued ones to be written or
// for ctx to end, whichever comes first. After a ctx error the writer may
// still be running; use Done to learn when it has finished.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the background writer has exited.
func (r *AsyncRecorder) Done() <-chan struct{} { return r.done }

// Dropped reports how many hashes never reached the writer.
func (r *AsyncRecorder) Dropped() int64 { return r.dropped.Load() }

// Failed reports how many hashes the writer could not store.
func (r *AsyncRecorder) Failed() int64 { return r.failed.Load() }
