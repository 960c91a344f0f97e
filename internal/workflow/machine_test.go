package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

func TestMachineLifecycle(t *testing.T) {
	var seen []domain.RunStatus
	m := NewMachine(func(s State, _ time.Time) { seen = append(seen, s.Status()) })

	ctx, gen, err := m.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Advance(gen, 40))
	require.NoError(t, m.Advance(gen, 20))
	state, _ := m.State()
	assert.Equal(t, Processing{Progress: 40}, state)

	_, _, err = m.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunBusy)

	require.NoError(t, m.Complete(gen, domain.Result{URL: "https://example.com/x.png"}))
	assert.Error(t, ctx.Err(), "finishing releases the attempt context")
	state, _ = m.State()
	done, ok := state.(Completed)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/x.png", done.Result().URL)
	assert.Equal(t, 100, ProgressOf(state))

	_, _, err = m.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	m.Reset()
	assert.Equal(t, []domain.RunStatus{
		domain.RunStatusProcessing, domain.RunStatusProcessing,
		domain.RunStatusCompleted, domain.RunStatusIdle,
	}, seen)
}

func TestMachineRejectsEmptyResult(t *testing.T) {
	m := NewMachine(nil)
	_, gen, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Error(t, m.Complete(gen, domain.Result{}))
	state, _ := m.State()
	assert.Equal(t, domain.RunStatusProcessing, state.Status())

	_, err = NewCompleted(domain.Result{Variants: map[string]string{"master": " "}})
	assert.Error(t, err)
}

func TestMachineIgnoresStaleGeneration(t *testing.T) {
	m := NewMachine(nil)
	ctx, stale, err := m.Start(context.Background())
	require.NoError(t, err)
	m.Reset()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	_, fresh, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, m.Fail(stale, errors.New("late")), ErrStale)
	assert.ErrorIs(t, m.Advance(stale, 90), ErrStale)

	state, _ := m.State()
	assert.Equal(t, Processing{}, state)

	require.NoError(t, m.Fail(fresh, &domain.UploadError{File: "a.jpg", StatusCode: 502}))
	state, _ = m.State()
	failed, ok := state.(Failed)
	require.True(t, ok)
	assert.Equal(t, domain.ErrorKindUpload, failed.Kind)
	assert.Equal(t, "upload of a.jpg failed: media host responded with status 502", failed.Message)
}

func TestMachineFailFromCancellation(t *testing.T) {
	m := NewMachine(nil)
	_, gen, err := m.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Fail(gen, context.Canceled))
	state, _ := m.State()
	assert.Equal(t, Failed{Kind: domain.ErrorKindCanceled, Message: "run was canceled"}, state)
}
