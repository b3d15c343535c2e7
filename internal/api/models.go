package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/benjamin1108/reinvent-insight/internal/domain"
	"github.com/benjamin1108/reinvent-insight/internal/task"
)

// Common request/response structures

// CreateAnalysisRequest defines the payload for submitting a new analysis.
type CreateAnalysisRequest struct {
	// TaskType selects the provider route. Defaults to "deep-summary".
	TaskType string `json:"task_type" validate:"omitempty,min=1,max=64"`

	// SourceKind is the shape of the submitted source. Defaults to "transcript".
	SourceKind string `json:"kind" validate:"omitempty,oneof=transcript document"`

	// SourceRef is the transcript text or document reference to analyze.
	SourceRef string `json:"source" validate:"required,min=1"`
}

// AnalysisCreatedResponse defines the response for a submitted analysis.
// Processing happens asynchronously; the task ID is the handle for status
// polling and the event stream.
type AnalysisCreatedResponse struct {
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status"`
}

// AnalysisResponse defines the status response for an analysis task.
type AnalysisResponse struct {
	TaskID       uuid.UUID      `json:"task_id"`
	TaskType     string         `json:"task_type"`
	Status       string         `json:"status"`
	Progress     int            `json:"progress"`
	Logs         []string       `json:"logs,omitempty"`
	Result       *domain.Report `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// snapshotToResponse converts a task.Snapshot to an AnalysisResponse
func snapshotToResponse(snap task.Snapshot) AnalysisResponse {
	return AnalysisResponse{
		TaskID:       snap.ID,
		TaskType:     snap.TaskType,
		Status:       string(snap.Status),
		Progress:     snap.Progress,
		Logs:         snap.Logs,
		Result:       snap.Result,
		ErrorMessage: snap.ErrorMessage,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}
}
