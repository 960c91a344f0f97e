package domain

import "time"

// RunStatus enumerates the workflow lifecycle states.
type RunStatus string

const (
	RunStatusIdle       RunStatus = "idle"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusError      RunStatus = "error"
)

// Terminal reports whether no further progress can happen without a reset.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusError
}

// RunRecord is the persisted snapshot of one workflow run.
type RunRecord struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Status    RunStatus `json:"status"`
	Progress  int       `json:"progress"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
