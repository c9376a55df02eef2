package share

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkgate/internal/errx"
)

/***************
 * Mocks
 ***************/

type mockRecordStore struct {
	mu         sync.Mutex
	insertFunc func(ctx context.Context, rec AccessRecord) error
	inserted   []AccessRecord
	calls      int
}

func (m *mockRecordStore) InsertAccessRecord(ctx context.Context, rec AccessRecord) error {
	m.mu.Lock()
	m.calls++
	fn := m.insertFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, rec); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.inserted = append(m.inserted, rec)
	m.mu.Unlock()
	return nil
}

func (m *mockRecordStore) ListAccessRecords(context.Context, uuid.UUID) ([]AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AccessRecord(nil), m.inserted...), nil
}

func (m *mockRecordStore) snapshot() (calls, inserted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, len(m.inserted)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func closeRecorder(t *testing.T, r *Recorder) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
}

/***************
 * Tests
 ***************/

func TestRecorder_WritesRecords(t *testing.T) {
	store := &mockRecordStore{}
	r := NewRecorder(RecorderConfig{Store: store, Logger: discardLogger(), Workers: 3})

	for range 25 {
		r.Record(AccessRecord{LinkID: uuid.New(), ViewedAt: testNow})
	}
	closeRecorder(t, r)

	if _, inserted := store.snapshot(); inserted != 25 {
		t.Errorf("inserted = %d, want 25", inserted)
	}
	if r.Written() != 25 || r.Dropped() != 0 {
		t.Errorf("Written=%d Dropped=%d, want 25/0", r.Written(), r.Dropped())
	}
}

func TestRecorder_RetriesTransientFailures(t *testing.T) {
	failures := 2
	store := &mockRecordStore{}
	store.insertFunc = func(context.Context, AccessRecord) error {
		if failures > 0 {
			failures--
			return errx.E("mock", errx.Unavailable, errors.New("connection reset"))
		}
		return nil
	}

	r := NewRecorder(RecorderConfig{
		Store:       store,
		Logger:      discardLogger(),
		Workers:     1,
		MaxAttempts: 3,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	})
	r.Record(AccessRecord{LinkID: uuid.New()})
	closeRecorder(t, r)

	calls, inserted := store.snapshot()
	if calls != 3 || inserted != 1 {
		t.Errorf("calls=%d inserted=%d, want 3/1", calls, inserted)
	}
}

func TestRecorder_GivesUpAfterMaxAttempts(t *testing.T) {
	store := &mockRecordStore{}
	store.insertFunc = func(context.Context, AccessRecord) error {
		return errx.E("mock", errx.Unavailable, errors.New("down"))
	}

	r := NewRecorder(RecorderConfig{
		Store:       store,
		Logger:      discardLogger(),
		Workers:     1,
		MaxAttempts: 2,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  time.Millisecond,
	})
	r.Record(AccessRecord{LinkID: uuid.New()})
	closeRecorder(t, r)

	if calls, _ := store.snapshot(); calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", r.Dropped())
	}
}

func TestRecorder_DeletedLinkIsNotRetried(t *testing.T) {
	store := &mockRecordStore{}
	store.insertFunc = func(context.Context, AccessRecord) error {
		return errx.E("mock", errx.NotFound, ErrLinkNotFound)
	}

	r := NewRecorder(RecorderConfig{Store: store, Logger: discardLogger(), Workers: 1, MaxAttempts: 5})
	r.Record(AccessRecord{LinkID: uuid.New()})
	closeRecorder(t, r)

	if calls, _ := store.snapshot(); calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRecorder_WriteTimeout(t *testing.T) {
	store := &mockRecordStore{}
	store.insertFunc = func(ctx context.Context, _ AccessRecord) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("insert context has no deadline")
		}
		return nil
	}

	r := NewRecorder(RecorderConfig{Store: store, Logger: discardLogger(), WriteTimeout: time.Second})
	r.Record(AccessRecord{LinkID: uuid.New()})
	closeRecorder(t, r)
}

func TestRecorder_FullQueueDropsWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	store := &mockRecordStore{}
	store.insertFunc = func(context.Context, AccessRecord) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}

	r := NewRecorder(RecorderConfig{Store: store, Logger: discardLogger(), Workers: 1, QueueSize: 2})

	// First record occupies the worker; wait until it is being written.
	r.Record(AccessRecord{LinkID: uuid.New()})
	<-started

	done := make(chan struct{})
	go func() {
		for range 10 {
			r.Record(AccessRecord{LinkID: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record() blocked on a full queue")
	}

	if r.Dropped() != 8 {
		t.Errorf("Dropped() = %d, want 8", r.Dropped())
	}

	close(release)
	closeRecorder(t, r)
	if r.Written() != 3 {
		t.Errorf("Written() = %d, want 3", r.Written())
	}
}

func TestRecorder_Close(t *testing.T) {
	t.Run("records after close are dropped", func(t *testing.T) {
		store := &mockRecordStore{}
		r := NewRecorder(RecorderConfig{Store: store, Logger: discardLogger()})
		closeRecorder(t, r)

		r.Record(AccessRecord{LinkID: uuid.New()})
		if r.Dropped() != 1 {
			t.Errorf("Dropped() = %d, want 1", r.Dropped())
		}
		if calls, _ := store.snapshot(); calls != 0 {
			t.Errorf("calls = %d, want 0", calls)
		}
	})

	t.Run("second close is a no-op", func(t *testing.T) {
		r := NewRecorder(RecorderConfig{Store: &mockRecordStore{}, Logger: discardLogger()})
		closeRecorder(t, r)
		closeRecorder(t, r)
	})

	t.Run("deadline abandons pending retries", func(t *testing.T) {
		store := &mockRecordStore{}
		store.insertFunc = func(context.Context, AccessRecord) error {
			return errx.E("mock", errx.Unavailable, errors.New("down"))
		}
		r := NewRecorder(RecorderConfig{
			Store:       store,
			Logger:      discardLogger(),
			Workers:     1,
			MaxAttempts: 100,
			MinBackoff:  time.Hour,
			MaxBackoff:  time.Hour,
		})
		r.Record(AccessRecord{LinkID: uuid.New()})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if err := r.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Close() error = %v, want DeadlineExceeded", err)
		}
	})
	t.Run("deadline stops workers before returning", func(t *testing.T) {
		store := &mockRecordStore{}
		store.insertFunc = func(ctx context.Context, _ AccessRecord) error {
			select {
			case <-time.After(50 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		r := NewRecorder(RecorderConfig{Store: store, Logger: discardLogger(), Workers: 1, QueueSize: 32})
		for range 20 {
			r.Record(AccessRecord{LinkID: uuid.New()})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()
		if err := r.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Close() error = %v, want DeadlineExceeded", err)
		}
		callsAtClose, insertedAtClose := store.snapshot()

		time.Sleep(200 * time.Millisecond)

		calls, inserted := store.snapshot()
		if calls != callsAtClose || inserted != insertedAtClose {
			t.Errorf("store used after Close: calls %d -> %d, inserted %d -> %d",
				callsAtClose, calls, insertedAtClose, inserted)
		}
		if callsAtClose >= 20 {
			t.Errorf("calls = %d, want the queue abandoned", callsAtClose)
		}
		if got := r.Written() + r.Dropped(); got != 20 {
			t.Errorf("Written+Dropped = %d, want 20", got)
		}
	})
}
