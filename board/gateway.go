package board

import (
	"context"

	"github.com/rajan-marasini/task-kanban/domain"
)

// Gateway is the only read and write path between the board and the store
// that owns the canonical columns and tasks.
type Gateway interface {
	FetchBoard(ctx context.Context) ([]domain.Column, []domain.Task, error)
	CreateTask(ctx context.Context, task domain.NewTask) (domain.Task, error)
	// PatchTask sends only the fields present in patch. It fails with
	// domain.ErrNotFound when the task no longer exists.
	PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}
