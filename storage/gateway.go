package storage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rajan-marasini/task-kanban/domain"
)

// Gateway exposes a Repository through the board's persistence contract so
// the controller can run against a local store without the HTTP API.
type Gateway struct {
	repo Repository
}

func NewGateway(repo Repository) *Gateway {
	return &Gateway{repo: repo}
}

// FetchBoard loads columns and tasks concurrently.
func (g *Gateway) FetchBoard(ctx context.Context) ([]domain.Column, []domain.Task, error) {
	var (
		cols  []domain.Column
		tasks []domain.Task
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		cols, err = g.repo.ListColumns(ctx)
		return err
	})
	eg.Go(func() error {
		var err error
		tasks, err = g.repo.ListTasks(ctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return cols, tasks, nil
}

func (g *Gateway) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	return g.repo.CreateTask(ctx, n)
}

func (g *Gateway) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	return g.repo.PatchTask(ctx, id, patch)
}

func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	return g.repo.DeleteTask(ctx, id)
}
