package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/rajan-marasini/task-kanban/domain"
)

// Repository is the persistence contract shared by every backend. Lists are
// returned in position order. Missing tasks are reported as domain.ErrNotFound.
type Repository interface {
	ListColumns(ctx context.Context) ([]domain.Column, error)
	CreateColumn(ctx context.Context, name string, position int) (domain.Column, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error)
	PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

func notFound(id string) error {
	return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}

func sortColumns(cols []domain.Column) {
	slices.SortStableFunc(cols, func(a, b domain.Column) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return compareTime(a.CreatedAt, b.CreatedAt)
	})
}

// sortTasks orders by position, breaking ties by creation time and id so
// that every backend lists colliding positions the same way.
func sortTasks(tasks []domain.Task) {
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		if c := compareTime(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func countInColumn(tasks []domain.Task, columnID string) int {
	n := 0
	for _, t := range tasks {
		if t.ColumnID == columnID {
			n++
		}
	}
	return n
}

// now is truncated to milliseconds, the resolution every backend stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func timeRef(t time.Time) *time.Time {
	return &t
}
