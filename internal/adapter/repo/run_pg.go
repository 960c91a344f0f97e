package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/infra"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/sqlinline"
)

// RunRepositoryPG implements domain.RunRepository on the media_runs table.
type RunRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRunRepositoryPG constructs the repository.
func NewRunRepositoryPG(sql infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{sql: sql}
}

// EnsureSchema creates the table and its index when missing.
func (r *RunRepositoryPG) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{sqlinline.QCreateRunsTable, sqlinline.QCreateRunsUpdatedIndex} {
		if _, err := r.sql.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure media_runs schema: %w", err)
		}
	}
	return nil
}

// Save upserts rec. Older snapshots never overwrite newer ones.
func (r *RunRepositoryPG) Save(ctx context.Context, rec domain.RunRecord) error {
	var result []byte
	if rec.Result != nil {
		var err error
		if result, err = json.Marshal(rec.Result); err != nil {
			return fmt.Errorf("marshal run result: %w", err)
		}
	}
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertRun,
		rec.ID,
		rec.Tool,
		string(rec.Status),
		rec.Progress,
		nullableBytes(result),
		rec.Error,
		string(rec.ErrorKind),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

// Get fetches a run snapshot by id.
func (r *RunRepositoryPG) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	var (
		rec    domain.RunRecord
		status string
		kind   string
		result []byte
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectRun, id).Scan(
		&rec.ID,
		&rec.Tool,
		&status,
		&rec.Progress,
		&result,
		&rec.Error,
		&kind,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if infra.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Status = domain.RunStatus(status)
	rec.ErrorKind = domain.ErrorKind(kind)
	if len(result) > 0 {
		var res domain.Result
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, fmt.Errorf("unmarshal run result: %w", err)
		}
		rec.Result = &res
	}
	return &rec, nil
}

// Delete removes a run snapshot.
func (r *RunRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteRun, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PruneBefore deletes snapshots last updated before cutoff.
func (r *RunRepositoryPG) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QPruneRuns, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)
