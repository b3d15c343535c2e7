package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/benjamin1108/reinvent-insight/internal/api/shared"
	"github.com/benjamin1108/reinvent-insight/internal/llm"
	"github.com/benjamin1108/reinvent-insight/internal/pipeline"
	"github.com/benjamin1108/reinvent-insight/internal/source"
	"github.com/benjamin1108/reinvent-insight/internal/task"
)

// DefaultTaskType is used when a submission does not name a task type.
const DefaultTaskType = "deep-summary"

// AnalysisHandler handles analysis-related HTTP requests
type AnalysisHandler struct {
	manager   *task.Manager
	engine    *pipeline.Engine
	registry  *llm.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(
	manager *task.Manager,
	engine *pipeline.Engine,
	registry *llm.Registry,
	logger *slog.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		manager:   manager,
		engine:    engine,
		registry:  registry,
		validator: validator.New(),
		logger:    logger.With("component", "analysis_handler"),
	}
}

// CreateAnalysis handles POST /api/analyses requests
func (h *AnalysisHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if req.TaskType == "" {
		req.TaskType = DefaultTaskType
	}
	if req.SourceKind == "" {
		req.SourceKind = string(source.KindTranscript)
	}

	// Reject unroutable task types synchronously rather than letting the
	// task fail after submission.
	if _, err := h.registry.Resolve(req.TaskType); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job := pipeline.Job{
		TaskType:   req.TaskType,
		SourceKind: source.Kind(req.SourceKind),
		SourceRef:  req.SourceRef,
	}

	id, err := h.manager.Submit(job.TaskType, h.engine.Runner(job))
	if err != nil {
		h.logger.Error("failed to submit analysis task", "error", err, "task_type", job.TaskType)
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.Info("analysis task submitted",
		"task_id", id,
		"task_type", job.TaskType,
		"source_kind", job.SourceKind)

	// Processing happens asynchronously
	shared.RespondWithJSON(w, r, http.StatusAccepted, AnalysisCreatedResponse{
		TaskID: id,
		Status: string(task.StatusPending),
	})
}

// GetAnalysis handles GET /api/analyses/{id} requests
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	snap, err := h.manager.Status(id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(snap))
}

// CancelAnalysis handles DELETE /api/analyses/{id} requests. Cancellation is
// cooperative: the task stops picking up new work and ends in an error state,
// which is observable through the status endpoint and the event stream.
func (h *AnalysisHandler) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Cancel(id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.Info("analysis task cancellation requested", "task_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// pathTaskID extracts and parses the {id} path parameter. It writes the error
// response itself when the parameter is missing or malformed.
func (h *AnalysisHandler) pathTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID has invalid format")
		return uuid.Nil, false
	}

	return id, true
}
