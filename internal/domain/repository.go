package domain

import (
	"context"
	"time"
)

// RunRepository persists run snapshots so they can be read back by any
// replica and outlive the in-process state machine.
type RunRepository interface {
	Save(ctx context.Context, rec RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
	Delete(ctx context.Context, id string) error
	// PruneBefore removes snapshots last updated before cutoff and returns
	// how many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}
