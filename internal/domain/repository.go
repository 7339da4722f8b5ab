package domain

import (
	"context"
	"time"
)

// TaskFinish carries the single terminal update applied to a task.
type TaskFinish struct {
	Status         TaskStatus
	ResultJSON     []byte
	FailureCode    string
	FailureMessage string
	CompletedAt    time.Time
}

// TaskRepository defines persistence for generation tasks. Finish is called
// exactly once per task; implementations must refuse a second terminal write.
type TaskRepository interface {
	Create(ctx context.Context, task *GenerationTask) error
	Finish(ctx context.Context, taskID string, fin TaskFinish) error
	GetByID(ctx context.Context, taskID string) (*GenerationTask, error)
	ListPending(ctx context.Context, limit int) ([]GenerationTask, error)
}
