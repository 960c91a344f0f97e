package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/events"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/infra"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/tools"
)

// Snapshot is the JSON view of a run.
type Snapshot = domain.RunRecord

// Request describes one start of a run.
type Request struct {
	Tool     string
	Preset   string
	Settings []byte
	Files    []domain.UploadFile
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Registry *tools.Registry
	Runner   *Runner
	Store    domain.RunRepository
	Logger   *infra.Logger
	// TTL is how long finished or idle runs are kept before Prune drops them.
	TTL time.Duration
	// EventBuffer bounds the event history of each run.
	EventBuffer int
	// SaveTimeout bounds each snapshot write.
	SaveTimeout time.Duration
}

// Manager owns every live run of the process. Each run has its own machine,
// so concurrent runs never share progress or results.
type Manager struct {
	mu          sync.RWMutex
	runs        map[string]*run
	registry    *tools.Registry
	runner      *Runner
	store       domain.RunRepository
	logger      *infra.Logger
	ttl         time.Duration
	eventBuffer int
	saveTimeout time.Duration
	baseCtx     context.Context
	stop        context.CancelFunc
	inflight    sync.WaitGroup
}

type run struct {
	id        string
	tool      tools.Tool
	createdAt time.Time
	machine   *Machine
	bus       *events.Bus
	writer    *snapshotWriter
}

// release stops the run's event stream and flushes its last snapshot.
func (r *run) release() {
	r.bus.Close()
	if r.writer != nil {
		r.writer.close()
	}
}

// NewManager constructs a manager. Runs execute on a background context that
// is canceled by Shutdown.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	registry := opts.Registry
	if registry == nil {
		registry = tools.DefaultRegistry()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	saveTimeout := opts.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = 5 * time.Second
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		runs:        make(map[string]*run),
		registry:    registry,
		runner:      opts.Runner,
		store:       opts.Store,
		logger:      logger,
		ttl:         ttl,
		eventBuffer: opts.EventBuffer,
		saveTimeout: saveTimeout,
		baseCtx:     ctx,
		stop:        stop,
	}
}

// Registry exposes the tool catalog.
func (m *Manager) Registry() *tools.Registry {
	return m.registry
}

// Create validates req, registers a new run and starts it in the background.
// Validation failures return domain.ValidationErrors and create nothing.
func (m *Manager) Create(req Request) (Snapshot, error) {
	tool, settings, err := m.prepare(req.Tool, req)
	if err != nil {
		return Snapshot{}, err
	}
	r := &run{
		id:        uuid.NewString(),
		tool:      tool,
		createdAt: time.Now().UTC(),
		bus:       events.NewBus(m.eventBuffer),
	}
	if m.store != nil {
		r.writer = newSnapshotWriter(m.store, m.saveTimeout, m.logger)
	}
	r.machine = NewMachine(m.observe(r))

	if err := m.launch(r, settings, req.Files); err != nil {
		r.release()
		return Snapshot{}, err
	}

	m.mu.Lock()
	m.runs[r.id] = r
	m.mu.Unlock()
	return m.snapshot(r), nil
}

// Start restarts an idle run, e.g. after a reset, with new files and settings.
// The tool of the run cannot change.
func (m *Manager) Start(id string, req Request) (Snapshot, error) {
	r, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	if req.Tool != "" && req.Tool != r.tool.Name {
		return Snapshot{}, domain.ValidationErrors{{Field: "tool", Message: fmt.Sprintf("run belongs to %s", r.tool.Name)}}
	}
	_, settings, err := m.prepare(r.tool.Name, req)
	if err != nil {
		return Snapshot{}, err
	}
	if err := m.launch(r, settings, req.Files); err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(r), nil
}

// Reset returns a run to idle from any state. An in-flight attempt is canceled
// and its late results are discarded.
func (m *Manager) Reset(id string) (Snapshot, error) {
	r, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	r.machine.Reset()
	m.logger.Info().Str("run_id", r.id).Str("tool", r.tool.Name).Msg("workflow: run reset")
	return m.snapshot(r), nil
}

// Get returns the live snapshot of a run, falling back to the store for runs
// owned by another process or finished before a restart.
func (m *Manager) Get(ctx context.Context, id string) (Snapshot, error) {
	if r, err := m.lookup(id); err == nil {
		return m.snapshot(r), nil
	}
	if m.store == nil {
		return Snapshot{}, domain.ErrNotFound
	}
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return *rec, nil
}

// Events returns the buffered events of a live run after seq.
func (m *Manager) Events(id string, since int64) ([]events.Event, error) {
	r, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return r.bus.Since(since), nil
}

// Subscribe streams the events of a live run.
func (m *Manager) Subscribe(id string) (<-chan events.Event, func(), error) {
	r, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := r.bus.Subscribe(0)
	return ch, cancel, nil
}

// Prune drops live runs that are not processing and were last changed before
// the TTL, and removes expired snapshots from the store.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-m.ttl)
	var expired []*run

	m.mu.Lock()
	for id, r := range m.runs {
		state, changed := r.machine.State()
		if state.Status() == domain.RunStatusProcessing || changed.After(cutoff) {
			continue
		}
		expired = append(expired, r)
		delete(m.runs, id)
	}
	m.mu.Unlock()

	for _, r := range expired {
		r.release()
		if m.store != nil {
			if err := m.store.Delete(ctx, r.id); err != nil && !errors.Is(err, domain.ErrNotFound) {
				m.logger.Warn().Err(err).Str("run_id", r.id).Msg("workflow: delete snapshot failed")
			}
		}
	}
	removed := len(expired)
	if m.store == nil {
		return removed, nil
	}
	n, err := m.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("workflow: prune store: %w", err)
	}
	if total := removed + n; total > 0 {
		m.logger.Info().Int("live", removed).Int("stored", n).Msg("workflow: pruned expired runs")
	}
	return removed + n, nil
}

// Wait blocks until every in-flight run settled or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every in-flight run, waits for them to settle and flushes
// their last snapshots.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()
	if err := m.Wait(ctx); err != nil {
		return err
	}
	m.mu.RLock()
	runs := make([]*run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.RUnlock()
	for _, r := range runs {
		if r.writer != nil {
			r.writer.close()
		}
	}
	return nil
}

func (m *Manager) prepare(name string, req Request) (tools.Tool, tools.Settings, error) {
	tool, err := m.registry.Lookup(name)
	if err != nil {
		return tools.Tool{}, nil, err
	}
	settings, err := m.registry.Resolve(tool, req.Preset, req.Settings)
	if err != nil {
		return tools.Tool{}, nil, err
	}
	if err := Validate(tool, settings, req.Files).Err(); err != nil {
		return tools.Tool{}, nil, err
	}
	return tool, settings, nil
}

func (m *Manager) launch(r *run, settings tools.Settings, files []domain.UploadFile) error {
	if m.runner == nil {
		return errors.New("workflow: no runner configured")
	}
	ctx, gen, err := r.machine.Start(m.baseCtx)
	if err != nil {
		return err
	}
	m.logger.Info().
		Str("run_id", r.id).
		Str("tool", r.tool.Name).
		Int("files", len(files)).
		Msg("workflow: run started")

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		res, err := m.runner.Execute(ctx, r.tool, settings, files, func(p int) {
			_ = r.machine.Advance(gen, p)
		})
		if err != nil {
			err = r.machine.Fail(gen, err)
		} else {
			err = r.machine.Complete(gen, res)
		}
		if errors.Is(err, ErrStale) {
			m.logger.Debug().Str("run_id", r.id).Msg("workflow: discarded result of reset run")
		} else if err != nil {
			m.logger.Error().Err(err).Str("run_id", r.id).Msg("workflow: finish run")
		}
	}()
	return nil
}

func (m *Manager) lookup(id string) (*run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (m *Manager) snapshot(r *run) Snapshot {
	state, changed := r.machine.State()
	return record(r, state, changed)
}

func record(r *run, state State, changed time.Time) Snapshot {
	rec := Snapshot{
		ID:        r.id,
		Tool:      r.tool.Name,
		Status:    state.Status(),
		Progress:  ProgressOf(state),
		CreatedAt: r.createdAt,
		UpdatedAt: changed,
	}
	switch st := state.(type) {
	case Completed:
		res := st.Result()
		rec.Result = &res
	case Failed:
		rec.Error = st.Message
		rec.ErrorKind = st.Kind
	}
	return rec
}

// observe publishes every transition of r and hands its snapshot to the
// run's writer. It runs under the machine lock and never touches the store.
func (m *Manager) observe(r *run) Observer {
	return func(state State, changed time.Time) {
		rec := record(r, state, changed)
		ev := events.Event{
			RunID:    r.id,
			Status:   rec.Status,
			Progress: rec.Progress,
		}
		switch state.(type) {
		case Processing:
			ev.Type = events.TypeProgress
			if rec.Progress == 0 {
				ev.Type = events.TypeStatus
			}
		case Completed:
			ev.Type = events.TypeResult
			ev.Result = rec.Result
			m.logger.Info().Str("run_id", r.id).Str("tool", r.tool.Name).Str("url", rec.Result.URL).Msg("workflow: run completed")
		case Failed:
			ev.Type = events.TypeError
			ev.Message = rec.Error
			ev.ErrorKind = rec.ErrorKind
			m.logger.Warn().Str("run_id", r.id).Str("tool", r.tool.Name).Str("kind", string(rec.ErrorKind)).Msg("workflow: run failed: " + rec.Error)
		default:
			ev.Type = events.TypeStatus
		}
		r.bus.Publish(ev)

		if r.writer != nil {
			r.writer.enqueue(rec)
		}
	}
}
