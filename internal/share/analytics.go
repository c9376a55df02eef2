package share

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"

	"github.com/sundayezeilo/linkgate/internal/errx"
)

// AccessRecorder accepts access records for persistence. Record must not
// block the read path.
type AccessRecorder interface {
	Record(rec AccessRecord)
}

const (
	DefaultAnalyticsQueueSize    = 1024
	DefaultAnalyticsWorkers      = 2
	DefaultAnalyticsWriteTimeout = 2 * time.Second
	DefaultAnalyticsMaxAttempts  = 3
)

// RecorderConfig holds configuration for the analytics recorder.
type RecorderConfig struct {
	Store        AccessRecordStore
	Logger       *slog.Logger
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
	MaxAttempts  int
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

// Recorder writes access records on a bounded queue drained by a fixed
// pool of workers. A full queue drops the record; failed writes are retried
// with exponential backoff and then dropped. Analytics loss never fails a
// read.
type Recorder struct {
	store        AccessRecordStore
	logger       *slog.Logger
	queue        chan AccessRecord
	writeTimeout time.Duration
	maxAttempts  int
	minBackoff   time.Duration
	maxBackoff   time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// abortCtx bounds every store call; cancelled when Close gives up.
	abortCtx context.Context
	abort    context.CancelFunc

	written atomic.Int64
	dropped atomic.Int64
}

// NewRecorder starts the worker pool.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultAnalyticsQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultAnalyticsWorkers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultAnalyticsWriteTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultAnalyticsMaxAttempts
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 50 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = time.Second
	}

	abortCtx, abort := context.WithCancel(context.Background())
	r := &Recorder{
		store:        cfg.Store,
		logger:       cfg.Logger,
		queue:        make(chan AccessRecord, cfg.QueueSize),
		writeTimeout: cfg.WriteTimeout,
		maxAttempts:  cfg.MaxAttempts,
		minBackoff:   cfg.MinBackoff,
		maxBackoff:   cfg.MaxBackoff,
		abortCtx:     abortCtx,
		abort:        abort,
	}

	r.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go r.work()
	}
	return r
}

// Record enqueues rec without blocking.
func (r *Recorder) Record(rec AccessRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.queue <- rec:
	default:
		r.dropped.Add(1)
		r.logger.Warn("analytics queue full, dropping access record",
			"link_id", rec.LinkID.String(),
		)
	}
}

// Close stops accepting records and waits for queued ones to be written.
// If ctx ends first, in-flight writes are cancelled, the rest of the queue is
// counted as dropped and ctx.Err is returned once every worker has exited.
// No store call starts after Close returns.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.abort()
		return nil
	case <-ctx.Done():
		r.abort()
		<-done
		return ctx.Err()
	}
}

// Written reports how many records were persisted.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Dropped reports how many records were discarded.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) work() {
	defer r.wg.Done()
	for rec := range r.queue {
		if r.abortCtx.Err() != nil {
			r.dropped.Add(1)
			continue
		}
		r.write(rec)
	}
}

func (r *Recorder) write(rec AccessRecord) {
	b := &backoff.Backoff{
		Min:    r.minBackoff,
		Max:    r.maxBackoff,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(r.abortCtx, r.writeTimeout)
		err := r.store.InsertAccessRecord(ctx, rec)
		cancel()

		if err == nil {
			r.written.Add(1)
			return
		}

		if r.abortCtx.Err() != nil {
			r.dropped.Add(1)
			return
		}

		// The link was deleted after the read; nothing to attach the record to.
		if errx.Is(err, errx.NotFound) {
			r.dropped.Add(1)
			r.logger.Debug("access record dropped for deleted link",
				"link_id", rec.LinkID.String(),
			)
			return
		}

		if attempt >= r.maxAttempts {
			r.dropped.Add(1)
			r.logger.Error("failed to write access record",
				"link_id", rec.LinkID.String(),
				"attempts", attempt,
				"error", err,
			)
			return
		}

		select {
		case <-time.After(b.Duration()):
		case <-r.abortCtx.Done():
			r.dropped.Add(1)
			return
		}
	}
}
