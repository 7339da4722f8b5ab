package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediagen/internal/domain"
	"mediagen/internal/provider"
)

type createTaskRequest struct {
	Service string          `json:"service"`
	Model   string          `json:"model"`
	Input   json.RawMessage `json:"input"`
}

type createTaskResponse struct {
	TaskID         string `json:"task_id"`
	ExternalTaskID string `json:"external_task_id"`
	Status         string `json:"status"`
}

type taskResponse struct {
	TaskID         string     `json:"task_id"`
	Service        string     `json:"service"`
	Model          string     `json:"model"`
	ExternalTaskID string     `json:"external_task_id"`
	Status         string     `json:"status"`
	ResultURLs     []string   `json:"result_urls,omitempty"`
	FailureCode    string     `json:"failure_code,omitempty"`
	FailureMessage string     `json:"failure_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// CreateTask submits the generation to the provider, persists the PENDING
// row, then starts the detached polling loop. The response never waits for
// completion; callers observe it by re-reading the task.
func (a *App) CreateTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "")
		return
	}

	req, err := domain.DecodeRequest(body.Service, body.Model, body.Input)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedModel) {
			a.error(w, r, http.StatusBadRequest, "unsupported_model", "")
			return
		}
		a.error(w, r, http.StatusBadRequest, "bad_request", "")
		return
	}

	externalID, err := a.Creator.CreateTask(r.Context(), req)
	if err != nil {
		a.providerError(w, r, err)
		return
	}

	task := domain.NewGenerationTask(req.Ref(), externalID)
	if err := a.Tasks.Create(r.Context(), task); err != nil {
		a.Logger.Error().Err(err).Str("external_task_id", externalID).Msg("persist task failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	a.Poller.Start(task.ID, req.Ref(), externalID)

	a.json(w, http.StatusAccepted, createTaskResponse{
		TaskID:         task.ID,
		ExternalTaskID: externalID,
		Status:         string(task.Status),
	})
}

// GetTask returns the persisted task state, including result URLs or the
// failure code once a terminal state was written.
func (a *App) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "")
		return
	}

	task, err := a.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, r, http.StatusNotFound, "not_found", "")
			return
		}
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("load task failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "")
		return
	}

	resp := taskResponse{
		TaskID:         task.ID,
		Service:        task.Service,
		Model:          task.Model,
		ExternalTaskID: task.ExternalTaskID,
		Status:         string(task.Status),
		FailureCode:    task.FailureCode,
		FailureMessage: task.FailureMessage,
		CreatedAt:      task.CreatedAt,
		CompletedAt:    task.CompletedAt,
	}
	if task.Status == domain.TaskStatusSuccess && len(task.ResultJSON) > 0 {
		if err := json.Unmarshal(task.ResultJSON, &resp.ResultURLs); err != nil {
			a.Logger.Error().Err(err).Str("task_id", taskID).Msg("decode result payload failed")
		}
	}
	a.json(w, http.StatusOK, resp)
}

// providerError maps transport errors onto HTTP statuses. Terminal provider
// statuses surface verbatim with their original status; everything else is a
// gateway failure.
func (a *App) providerError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusPaymentRequired,
			http.StatusUnprocessableEntity, http.StatusTooManyRequests:
			a.error(w, r, apiErr.Status, "provider_error", apiErr.Message)
			return
		}
	}
	a.Logger.Error().Err(err).Msg("provider create task failed")
	a.error(w, r, http.StatusBadGateway, "provider_error", "")
}
