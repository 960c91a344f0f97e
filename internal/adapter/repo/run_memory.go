package repo

import (
	"context"
	"sync"
	"time"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

// RunRepositoryMemory keeps run snapshots in process memory.
type RunRepositoryMemory struct {
	mu   sync.RWMutex
	runs map[string]domain.RunRecord
}

// NewRunRepositoryMemory constructs an empty store.
func NewRunRepositoryMemory() *RunRepositoryMemory {
	return &RunRepositoryMemory{runs: make(map[string]domain.RunRecord)}
}

// Save stores rec unless a newer snapshot of the same run is already present.
func (r *RunRepositoryMemory) Save(_ context.Context, rec domain.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.runs[rec.ID]; ok && cur.UpdatedAt.After(rec.UpdatedAt) {
		return nil
	}
	r.runs[rec.ID] = cloneRecord(rec)
	return nil
}

// Get returns the snapshot of id.
func (r *RunRepositoryMemory) Get(_ context.Context, id string) (*domain.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

// Delete removes the snapshot of id.
func (r *RunRepositoryMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.runs, id)
	return nil
}

// PruneBefore removes snapshots last updated before cutoff.
func (r *RunRepositoryMemory) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.runs {
		if rec.UpdatedAt.Before(cutoff) {
			delete(r.runs, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored snapshots.
func (r *RunRepositoryMemory) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func cloneRecord(rec domain.RunRecord) domain.RunRecord {
	if rec.Result != nil {
		res := *rec.Result
		if rec.Result.Variants != nil {
			res.Variants = make(map[string]string, len(rec.Result.Variants))
			for k, v := range rec.Result.Variants {
				res.Variants[k] = v
			}
		}
		rec.Result = &res
	}
	return rec
}

var _ domain.RunRepository = (*RunRepositoryMemory)(nil)
