package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rajan-marasini/task-kanban/domain"
)

// Memory keeps the board in process memory. It is used by tests and by the
// CLI's --memory mode.
type Memory struct {
	mu      sync.RWMutex
	columns map[string]domain.Column
	tasks   map[string]domain.Task
}

func NewMemory() *Memory {
	return &Memory{
		columns: make(map[string]domain.Column),
		tasks:   make(map[string]domain.Task),
	}
}

func (m *Memory) ListColumns(ctx context.Context) ([]domain.Column, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Column, 0, len(m.columns))
	for _, c := range m.columns {
		out = append(out, c)
	}
	sortColumns(out)
	return out, nil
}

func (m *Memory) CreateColumn(ctx context.Context, name string, position int) (domain.Column, error) {
	_ = ctx
	c := domain.Column{ID: uuid.NewString(), Name: name, Position: position, CreatedAt: timeRef(now())}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns[c.ID] = c
	return c, nil
}

func (m *Memory) ListTasks(ctx context.Context) ([]domain.Task, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(), nil
}

func (m *Memory) listLocked() []domain.Task {
	out := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sortTasks(out)
	return out
}

func (m *Memory) GetTask(ctx context.Context, id string) (domain.Task, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, notFound(id)
	}
	return t, nil
}

func (m *Memory) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := now()
	t := domain.Task{
		ID:          uuid.NewString(),
		ColumnID:    n.ColumnID,
		Title:       n.Title,
		Description: n.Description,
		CreatedAt:   timeRef(ts),
		UpdatedAt:   timeRef(ts),
	}
	if n.Position != nil {
		t.Position = *n.Position
	} else {
		t.Position = countInColumn(m.listLocked(), n.ColumnID)
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *Memory) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, notFound(id)
	}
	patch.Apply(&t, now())
	m.tasks[id] = t
	return t, nil
}

func (m *Memory) DeleteTask(ctx context.Context, id string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return notFound(id)
	}
	delete(m.tasks, id)
	return nil
}
