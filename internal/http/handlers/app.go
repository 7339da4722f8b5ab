package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/middleware"
)

// TaskCreator submits a generation request to the provider and returns the
// external task id.
type TaskCreator interface {
	CreateTask(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// PollStarter launches a detached polling loop for a persisted task.
type PollStarter interface {
	Start(taskID string, ref domain.ModelRef, externalTaskID string)
}

// App bundles the dependencies shared by the HTTP handlers.
type App struct {
	Logger  infra.Logger
	Tasks   domain.TaskRepository
	Creator TaskCreator
	Poller  PollStarter
}

func NewApp(logger infra.Logger, tasks domain.TaskRepository, creator TaskCreator, poller PollStarter) *App {
	return &App{Logger: logger, Tasks: tasks, Creator: creator, Poller: poller}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// error writes a localized error body. An explicit message overrides the
// localized one, so provider errors can surface verbatim.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if message == "" {
		message = localizedMessage(middleware.LocaleFromContext(r.Context()), code)
	}
	a.json(w, status, errorBody{Error: code, Message: message})
}
