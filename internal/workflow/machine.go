package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

// ErrStale is returned for transitions issued by a run attempt that was reset.
var ErrStale = errors.New("workflow: stale run generation")

// Observer is notified after every applied transition. It runs while the
// machine is locked and must not call back into it.
type Observer func(s State, changed time.Time)

// Machine owns the state of one run. Every Start opens a new generation;
// transitions carrying an older generation are discarded.
type Machine struct {
	mu       sync.Mutex
	state    State
	gen      uint64
	cancel   context.CancelFunc
	changed  time.Time
	now      func() time.Time
	observer Observer
}

// NewMachine returns an idle machine.
func NewMachine(observer Observer) *Machine {
	return &Machine{
		state:    Idle{},
		now:      time.Now,
		observer: observer,
		changed:  time.Now().UTC(),
	}
}

// State returns the current state and when it last changed.
func (m *Machine) State() (State, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.changed
}

// Start moves idle to processing and returns the context and generation of the
// new attempt. The context is canceled by Reset.
func (m *Machine) Start(parent context.Context) (context.Context, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch status := m.state.Status(); {
	case status == domain.RunStatusProcessing:
		return nil, 0, domain.ErrRunBusy
	case status.Terminal():
		return nil, 0, fmt.Errorf("%w: %s -> %s, reset first", domain.ErrInvalidTransition, status, domain.RunStatusProcessing)
	}
	ctx, cancel := context.WithCancel(parent)
	m.gen++
	m.cancel = cancel
	m.set(Processing{})
	return ctx, m.gen, nil
}

// Advance raises the progress of attempt gen. Lower values are ignored so the
// reported progress never goes backwards.
func (m *Machine) Advance(gen uint64, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := m.processing(gen)
	if err != nil {
		return err
	}
	progress = min(max(progress, 0), 100)
	if progress <= cur.Progress {
		return nil
	}
	m.set(Processing{Progress: progress})
	return nil
}

// Complete finishes attempt gen with res.
func (m *Machine) Complete(gen uint64, res domain.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.processing(gen); err != nil {
		return err
	}
	done, err := NewCompleted(res)
	if err != nil {
		return err
	}
	m.release()
	m.set(done)
	return nil
}

// Fail finishes attempt gen with the classification of cause.
func (m *Machine) Fail(gen uint64, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.processing(gen); err != nil {
		return err
	}
	m.release()
	m.set(FailedFrom(cause))
	return nil
}

// Reset returns to idle from any state, canceling an in-flight attempt.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.release()
	m.gen++
	m.set(Idle{})
}

func (m *Machine) processing(gen uint64) (Processing, error) {
	if gen != m.gen {
		return Processing{}, ErrStale
	}
	cur, ok := m.state.(Processing)
	if !ok {
		return Processing{}, fmt.Errorf("%w: run is %s", domain.ErrInvalidTransition, m.state.Status())
	}
	return cur, nil
}

func (m *Machine) release() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Machine) set(s State) {
	m.state = s
	m.changed = m.now().UTC()
	if m.observer != nil {
		m.observer(s, m.changed)
	}
}
