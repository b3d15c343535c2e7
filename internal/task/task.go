// Package task holds the per-job state of the analysis pipeline: the
// mutable Record, the replayable event Channel, and the Manager that maps
// task identities to both. Exactly one pipeline engine writes to a given
// Record and Channel; any number of sequentially attached consumers read.
package task

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benjamin1108/reinvent-insight/internal/domain"
)

// Status represents the lifecycle state of a task.
type Status string

// Possible task status values. Completed and Error are terminal.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether the status is a terminal sink.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Record is the mutable state object for one submitted job. It is written
// only by the pipeline engine executing the task and becomes immutable once
// a terminal status is reached; writes after that are ignored.
type Record struct {
	mu sync.RWMutex

	id           uuid.UUID
	taskType     string
	status       Status
	progress     int
	logs         []string
	result       *domain.Report
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
}

// Snapshot is an immutable copy of a Record's state.
type Snapshot struct {
	ID           uuid.UUID      `json:"id"`
	TaskType     string         `json:"task_type"`
	Status       Status         `json:"status"`
	Progress     int            `json:"progress"`
	Logs         []string       `json:"logs"`
	Result       *domain.Report `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewRecord creates a pending Record with a fresh identity.
func NewRecord(taskType string) *Record {
	now := time.Now().UTC()
	return &Record{
		id:        uuid.New(),
		taskType:  taskType,
		status:    StatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the task's caller-visible identity.
func (r *Record) ID() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id
}

// Status returns the current lifecycle status.
func (r *Record) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// SetRunning transitions pending → running. No-op in any other state.
func (r *Record) SetRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPending {
		return
	}
	r.status = StatusRunning
	r.updatedAt = time.Now().UTC()
}

// SetProgress raises the progress percentage. Progress is monotone while
// running: a lower value, or any write after a terminal state, is ignored.
func (r *Record) SetProgress(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() || percent <= r.progress {
		return
	}
	if percent > 100 {
		percent = 100
	}
	r.progress = percent
	r.updatedAt = time.Now().UTC()
}

// AppendLog appends one human-readable log line.
func (r *Record) AppendLog(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() {
		return
	}
	r.logs = append(r.logs, line)
	r.updatedAt = time.Now().UTC()
}

// Complete transitions to the completed terminal state with the final
// report. Ignored if already terminal.
func (r *Record) Complete(report *domain.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() {
		return
	}
	r.status = StatusCompleted
	r.progress = 100
	r.result = report
	r.updatedAt = time.Now().UTC()
}

// Fail transitions to the error terminal state with a message. Ignored if
// already terminal.
func (r *Record) Fail(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() {
		return
	}
	r.status = StatusError
	r.errorMessage = message
	r.updatedAt = time.Now().UTC()
}

// Snapshot returns a consistent copy of the record's state.
func (r *Record) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := make([]string, len(r.logs))
	copy(logs, r.logs)

	return Snapshot{
		ID:           r.id,
		TaskType:     r.taskType,
		Status:       r.status,
		Progress:     r.progress,
		Logs:         logs,
		Result:       r.result,
		ErrorMessage: r.errorMessage,
		CreatedAt:    r.createdAt,
		UpdatedAt:    r.updatedAt,
	}
}
