package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rajan-marasini/task-kanban/board"
	"github.com/rajan-marasini/task-kanban/domain"
)

type patchCall struct {
	id    string
	patch domain.TaskPatch
}

// stubGateway is a deterministic in-memory board: ids are t1, t2, ... and no
// timestamps are set.
type stubGateway struct {
	mu      sync.Mutex
	columns []domain.Column
	tasks   []domain.Task
	patches []patchCall
	deleted []string
	nextID  int
}

func newStubGateway() *stubGateway {
	desc := "README and API"
	return &stubGateway{
		columns: []domain.Column{
			{ID: "todo", Name: "To Do", Position: 0},
			{ID: "doing", Name: "In Progress", Position: 1},
			{ID: "done", Name: "Done", Position: 2},
		},
		tasks: []domain.Task{
			{ID: "t1", ColumnID: "todo", Title: "Write docs", Description: &desc, Position: 0},
			{ID: "t2", ColumnID: "todo", Title: "Review PR", Position: 1},
			{ID: "t3", ColumnID: "done", Title: "Ship it", Position: 0},
		},
		nextID: 3,
	}
}

func (g *stubGateway) FetchBoard(ctx context.Context) ([]domain.Column, []domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Column(nil), g.columns...), append([]domain.Task(nil), g.tasks...), nil
}

func (g *stubGateway) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	t := domain.Task{ID: fmt.Sprintf("t%d", g.nextID), ColumnID: n.ColumnID, Title: n.Title, Description: n.Description}
	if n.Position != nil {
		t.Position = *n.Position
	}
	g.tasks = append(g.tasks, t)
	return t, nil
}

func (g *stubGateway) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.patches = append(g.patches, patchCall{id: id, patch: patch})
	for i := range g.tasks {
		if g.tasks[i].ID == id {
			patch.Apply(&g.tasks[i], time.Time{})
			g.tasks[i].UpdatedAt = nil
			return g.tasks[i], nil
		}
	}
	return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (g *stubGateway) DeleteTask(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.tasks {
		if g.tasks[i].ID == id {
			g.tasks = append(g.tasks[:i], g.tasks[i+1:]...)
			g.deleted = append(g.deleted, id)
			return nil
		}
	}
	return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (g *stubGateway) patchCalls() []patchCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]patchCall(nil), g.patches...)
}

func (g *stubGateway) opener() GatewayOpener {
	return func(ctx context.Context, opts *RootOptions) (board.Gateway, func() error, error) {
		return g, func() error { return nil }, nil
	}
}
