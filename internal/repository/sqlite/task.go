package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

var _ repository.TaskRepository = (*TaskDB)(nil)

// TaskDB stores task boards in the tasks table.
type TaskDB struct {
	conn *sql.DB
}

const taskColumns = `id, user_id, title, description, status, created_at`

func (t *TaskDB) Create(ctx context.Context, task *model.Task) error {
	task.ID = xid.New().String()
	task.CreatedAt = time.Now().UTC()
	if task.Status == "" {
		task.Status = model.TaskTodo
	}

	_, err := t.conn.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		string(task.Status),
		task.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("userId", "unknown user "+task.UserID)
		}
		return fmt.Errorf("sqlite: creating task: %w", err)
	}
	return nil
}

func (t *TaskDB) GetByID(ctx context.Context, id string) (*model.Task, error) {
	row := t.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}
	return task, nil
}

// ListByUser returns the user's board in creation order.
func (t *TaskDB) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := t.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks for %s: %w", userID, err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}
	return tasks, nil
}

func (t *TaskDB) UpdateStatus(ctx context.Context, id string, status model.TaskStatus) error {
	result, err := t.conn.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %s: %w", id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("task", id) })
}

func (t *TaskDB) Delete(ctx context.Context, id string) error {
	result, err := t.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %s: %w", id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("task", id) })
}

func scanTask(s scanner) (*model.Task, error) {
	var (
		task   model.Task
		status string
	)
	if err := s.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&status,
		&task.CreatedAt,
	); err != nil {
		return nil, err
	}
	task.Status = model.TaskStatus(status)
	return &task, nil
}
