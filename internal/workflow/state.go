// Package workflow runs a tool end to end: validate, upload every input, wait
// for all uploads, compose the transformation URL and publish the result.
package workflow

import (
	"errors"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

// State is one of Idle, Processing, Completed or Failed.
type State interface {
	Status() domain.RunStatus
	sealed()
}

// Idle accepts a start.
type Idle struct{}

// Processing has uploads or composition in flight.
type Processing struct {
	Progress int
}

// Completed holds a non-empty result. Build it with NewCompleted.
type Completed struct {
	result domain.Result
}

// Failed holds the message of the first failure of the run.
type Failed struct {
	Kind    domain.ErrorKind
	Message string
}

func (Idle) Status() domain.RunStatus       { return domain.RunStatusIdle }
func (Processing) Status() domain.RunStatus { return domain.RunStatusProcessing }
func (Completed) Status() domain.RunStatus  { return domain.RunStatusCompleted }
func (Failed) Status() domain.RunStatus     { return domain.RunStatusError }

func (Idle) sealed()       {}
func (Processing) sealed() {}
func (Completed) sealed()  {}
func (Failed) sealed()     {}

var errEmptyResult = errors.New("workflow: completed state requires a result url")

// NewCompleted rejects results without any URL.
func NewCompleted(res domain.Result) (Completed, error) {
	if res.Empty() {
		return Completed{}, errEmptyResult
	}
	return Completed{result: res}, nil
}

// Result returns the composed output.
func (c Completed) Result() domain.Result {
	return c.result
}

// ProgressOf reports the percentage shown for s.
func ProgressOf(s State) int {
	switch st := s.(type) {
	case Processing:
		return st.Progress
	case Completed:
		return 100
	default:
		return 0
	}
}

// FailedFrom classifies err into a Failed state.
func FailedFrom(err error) Failed {
	return Failed{Kind: domain.KindOf(err), Message: domain.MessageOf(err)}
}
