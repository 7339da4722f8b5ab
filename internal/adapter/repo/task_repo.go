package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediagen/internal/domain"
)

// TaskRepositoryPG implements domain.TaskRepository on PostgreSQL.
type TaskRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a task repository backed by the given pool.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepositoryPG {
	return &TaskRepositoryPG{pool: pool}
}

// Create inserts a new PENDING task row.
func (r *TaskRepositoryPG) Create(ctx context.Context, task *domain.GenerationTask) error {
	query := `
INSERT INTO generation_tasks (id, service, model, external_task_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Service,
		task.Model,
		task.ExternalTaskID,
		task.Status,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Finish applies the terminal update. The status guard makes the transition
// monotonic: a second terminal write, or a write against a missing row,
// affects nothing and returns ErrAlreadyFinished.
func (r *TaskRepositoryPG) Finish(ctx context.Context, taskID string, fin domain.TaskFinish) error {
	query := `
UPDATE generation_tasks
SET status = $2,
    result_json = $3,
    failure_code = NULLIF($4, ''),
    failure_message = NULLIF($5, ''),
    completed_at = $6
WHERE id = $1 AND status = 'PENDING';
`
	tag, err := r.pool.Exec(ctx, query,
		taskID,
		fin.Status,
		nullableBytes(fin.ResultJSON),
		fin.FailureCode,
		fin.FailureMessage,
		fin.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinished
	}
	return nil
}

// GetByID fetches a task by its internal identifier.
func (r *TaskRepositoryPG) GetByID(ctx context.Context, taskID string) (*domain.GenerationTask, error) {
	query := `
SELECT id, service, model, external_task_id, status,
       COALESCE(result_json, ''::bytea),
       COALESCE(failure_code, ''),
       COALESCE(failure_message, ''),
       created_at, completed_at
FROM generation_tasks
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, taskID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListPending returns PENDING tasks oldest first, for poller resumption.
func (r *TaskRepositoryPG) ListPending(ctx context.Context, limit int) ([]domain.GenerationTask, error) {
	query := `
SELECT id, service, model, external_task_id, status,
       COALESCE(result_json, ''::bytea),
       COALESCE(failure_code, ''),
       COALESCE(failure_message, ''),
       created_at, completed_at
FROM generation_tasks
WHERE status = 'PENDING'
ORDER BY created_at
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.GenerationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*domain.GenerationTask, error) {
	var task domain.GenerationTask
	if err := row.Scan(
		&task.ID,
		&task.Service,
		&task.Model,
		&task.ExternalTaskID,
		&task.Status,
		&task.ResultJSON,
		&task.FailureCode,
		&task.FailureMessage,
		&task.CreatedAt,
		&task.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(task.ResultJSON) == 0 {
		task.ResultJSON = nil
	}
	return &task, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
