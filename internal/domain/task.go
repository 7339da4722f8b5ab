package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus enumerates generation task lifecycle states.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailed  TaskStatus = "FAILED"
)

// FailureCodePollTimeout marks tasks whose polling budget ran out before the
// provider reported a terminal state. Distinct from provider-reported codes.
const FailureCodePollTimeout = "POLL_TIMEOUT"

// GenerationTask is the persisted record of one provider generation job. The
// external task id is assigned by the provider at creation time and never
// changes; status moves from PENDING to exactly one terminal state.
type GenerationTask struct {
	ID             string
	Service        string
	Model          string
	ExternalTaskID string
	Status         TaskStatus
	ResultJSON     []byte
	FailureCode    string
	FailureMessage string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// NewGenerationTask builds a PENDING task for the given model with a fresh
// internal identifier.
func NewGenerationTask(ref ModelRef, externalTaskID string) *GenerationTask {
	return &GenerationTask{
		ID:             uuid.NewString(),
		Service:        ref.Service,
		Model:          ref.Model,
		ExternalTaskID: externalTaskID,
		Status:         TaskStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// Terminal reports whether the task has reached SUCCESS or FAILED.
func (t *GenerationTask) Terminal() bool {
	return t.Status == TaskStatusSuccess || t.Status == TaskStatusFailed
}
