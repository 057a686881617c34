// Package state records verify runs in a SQLite database. Each run keeps
// the rendered fragment, the check query and the values or error of every
// operation, so results can be compared across targets and plan revisions.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when no recorded run matches an ID.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the overall outcome of a verify run.
type RunStatus string

// Run statuses.
const (
	RunStatusPassed RunStatus = "passed"
	RunStatusFailed RunStatus = "failed"
)

// Run is one recorded verify invocation.
type Run struct {
	ID        string        `json:"id"`
	PlanPath  string        `json:"plan"`
	Dialect   string        `json:"dialect"`
	Target    string        `json:"target"`
	Status    RunStatus     `json:"status"`
	Total     int           `json:"total"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// ShortID is the first eight characters of the run ID.
func (r *Run) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Check is the recorded outcome of one operation within a run.
type Check struct {
	Name   string   `json:"name"`
	Dtype  string   `json:"dtype"`
	SQL    string   `json:"sql"`
	Query  string   `json:"query"`
	Values []string `json:"values,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Store persists verify runs.
type Store interface {
	Open(path string) error
	Close() error

	// SaveRun stores run and its checks in one transaction. An empty
	// run.ID is replaced by a generated one.
	SaveRun(ctx context.Context, run *Run, checks []Check) error
	// ListRuns returns the most recent runs first, at most limit of them.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	// GetRun resolves a full run ID or a unique prefix of one.
	GetRun(ctx context.Context, id string) (*Run, error)
	// GetChecks returns the checks of a run in plan order.
	GetChecks(ctx context.Context, runID string) ([]Check, error)
}
