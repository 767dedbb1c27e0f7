package board

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rajan-marasini/task-kanban/domain"
)

type patchCall struct {
	id    string
	patch domain.TaskPatch
}

type fakeGateway struct {
	mu       sync.Mutex
	columns  []domain.Column
	tasks    map[string]domain.Task
	order    []string
	patches  []patchCall
	creates  []domain.NewTask
	deletes  []string
	fetches  int
	nextID   int
	patchErr error
	fetchErr error
	// patchGate, when set, blocks PatchTask until it is closed.
	patchGate chan struct{}
	// fetchHook runs after the board has been captured for the nth fetch.
	fetchHook func(n int)
}

func newFakeGateway(columns []domain.Column, tasks ...domain.Task) *fakeGateway {
	f := &fakeGateway{columns: columns, tasks: map[string]domain.Task{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
		f.order = append(f.order, t.ID)
	}
	return f
}

func (f *fakeGateway) FetchBoard(ctx context.Context) ([]domain.Column, []domain.Task, error) {
	f.mu.Lock()
	f.fetches++
	n := f.fetches
	if f.fetchErr != nil {
		err := f.fetchErr
		f.mu.Unlock()
		return nil, nil, err
	}
	cols := slices.Clone(f.columns)
	tasks := make([]domain.Task, 0, len(f.order))
	for _, id := range f.order {
		tasks = append(tasks, f.tasks[id])
	}
	hook := f.fetchHook
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return cols, tasks, nil
}

func (f *fakeGateway) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, n)
	f.nextID++
	t := domain.Task{ID: "new-" + strconv.Itoa(f.nextID), ColumnID: n.ColumnID, Title: n.Title, Description: n.Description}
	if n.Position != nil {
		t.Position = *n.Position
	}
	f.tasks[t.ID] = t
	f.order = append(f.order, t.ID)
	return t, nil
}

func (f *fakeGateway) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	f.mu.Lock()
	gate := f.patchGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Task{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{id: id, patch: patch})
	if f.patchErr != nil {
		return domain.Task{}, f.patchErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	patch.Apply(&t, time.Now())
	f.tasks[id] = t
	return t, nil
}

func (f *fakeGateway) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if _, ok := f.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	delete(f.tasks, id)
	f.order = slices.DeleteFunc(f.order, func(s string) bool { return s == id })
	return nil
}

func (f *fakeGateway) patchCalls() []patchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.patches)
}

func (f *fakeGateway) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// removeTask deletes a task behind the controller's back, as another client would.
func (f *fakeGateway) removeTask(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	f.order = slices.DeleteFunc(f.order, func(s string) bool { return s == id })
}
