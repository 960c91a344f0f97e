package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/infra"
)

// snapshotWriter saves the snapshots of one run in order on its own goroutine,
// so transitions never wait for the store. Only the latest unsaved snapshot is
// kept; an older pending one is superseded.
type snapshotWriter struct {
	store   domain.RunRepository
	timeout time.Duration
	logger  *infra.Logger

	mu      sync.Mutex
	pending *Snapshot
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newSnapshotWriter(store domain.RunRepository, timeout time.Duration, logger *infra.Logger) *snapshotWriter {
	w := &snapshotWriter{
		store:   store,
		timeout: timeout,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// enqueue never blocks.
func (w *snapshotWriter) enqueue(rec Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = &rec
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// close flushes the pending snapshot and stops the writer.
func (w *snapshotWriter) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.wake)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *snapshotWriter) loop() {
	defer close(w.done)
	for range w.wake {
		w.flush()
	}
	w.flush()
}

func (w *snapshotWriter) flush() {
	w.mu.Lock()
	rec := w.pending
	w.pending = nil
	w.mu.Unlock()
	if rec == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.store.Save(ctx, *rec); err != nil {
		w.logger.Warn().Err(err).Str("run_id", rec.ID).Msg("workflow: save snapshot failed")
	}
}
