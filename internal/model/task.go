package model

import (
	"fmt"
	"time"
)

// TaskStatus is the column a task sits in on the board.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the three board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// ParseTaskStatus converts user input into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return status, nil
}

// Task is a card on the user's task board. Once created, only its Status moves.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TaskPatch lists the fields a task update may change.
type TaskPatch struct {
	Status *TaskStatus `json:"status,omitempty"`
}
