package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

var _ flux.TaskBackend = (*TaskService)(nil)

// TaskService manages each user's task board.
type TaskService struct {
	tasks  repository.TaskRepository
	logger *slog.Logger
}

func NewTaskService(tasks repository.TaskRepository, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: tasks, logger: orDiscard(logger)}
}

// Create stores a new task on task.UserID's board. The status defaults to
// todo.
func (s *TaskService) Create(ctx context.Context, task model.Task) (*model.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	task.Description = strings.TrimSpace(task.Description)

	switch {
	case strings.TrimSpace(task.UserID) == "":
		return nil, apperror.ValidationFailed("userId", "you must be signed in to manage tasks")
	case task.Title == "":
		return nil, apperror.ValidationFailed("title", "task title is required")
	case utf8.RuneCountInString(task.Title) > MaxTaskTitleLength:
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("task title must be %d characters or less", MaxTaskTitleLength))
	case utf8.RuneCountInString(task.Description) > MaxTaskDescription:
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("task description must be %d characters or less", MaxTaskDescription))
	}

	if task.Status == "" {
		task.Status = model.TaskTodo
	}
	if !task.Status.Valid() {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown task status %s", task.Status))
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, fmt.Errorf("service/task: creating task: %w", err)
	}

	s.logger.Info("task created", slog.String("id", task.ID), slog.String("userID", task.UserID))
	return &task, nil
}

// List returns userID's tasks, oldest first.
func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.ValidationFailed("userId", "you must be signed in to manage tasks")
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/task: listing tasks for %s: %w", userID, err)
	}
	return tasks, nil
}

// Update moves a task to another column on behalf of actorID and returns the
// updated task. A patch without a status returns the task unchanged. Boards
// are private, so only the task's owner may change it.
func (s *TaskService) Update(ctx context.Context, actorID, id string, patch model.TaskPatch) (*model.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "task id is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown task status %s", *patch.Status))
	}

	task, err := s.owned(ctx, actorID, id, "you can only change your own tasks")
	if err != nil {
		return nil, err
	}
	if patch.Status == nil {
		return task, nil
	}

	if err := s.tasks.UpdateStatus(ctx, id, *patch.Status); err != nil {
		return nil, fmt.Errorf("service/task: updating task %s: %w", id, err)
	}
	s.logger.Info("task moved", slog.String("id", id), slog.String("status", string(*patch.Status)))
	task.Status = *patch.Status
	return task, nil
}

// Delete removes one of actorID's tasks.
func (s *TaskService) Delete(ctx context.Context, actorID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "task id is required")
	}
	if _, err := s.owned(ctx, actorID, id, "you can only delete your own tasks"); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/task: deleting task %s: %w", id, err)
	}
	s.logger.Info("task deleted", slog.String("id", id))
	return nil
}

func (s *TaskService) owned(ctx context.Context, actorID, id, denied string) (*model.Task, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, apperror.ValidationFailed("userId", "you must be signed in to manage tasks")
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/task: loading task %s: %w", id, err)
	}
	if task.UserID != actorID {
		s.logger.Warn("task change denied", slog.String("id", id), slog.String("actorID", actorID))
		return nil, apperror.Forbidden(denied)
	}
	return task, nil
}
