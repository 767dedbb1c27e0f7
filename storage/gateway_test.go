package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rajan-marasini/task-kanban/domain"
)

func TestGatewayRoundTrip(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	if _, err := Seed(ctx, repo, DefaultColumns()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	gw := NewGateway(repo)

	cols, tasks, err := gw.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(cols) != 3 || len(tasks) != 0 {
		t.Fatalf("unexpected board: %d columns %d tasks", len(cols), len(tasks))
	}

	task, err := gw.CreateTask(ctx, domain.NewTask{Title: "ship", ColumnID: cols[0].ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	moved, err := gw.PatchTask(ctx, task.ID, domain.Move(cols[2].ID, 0))
	if err != nil || moved.ColumnID != cols[2].ID {
		t.Fatalf("patch: %#v %v", moved, err)
	}
	if err := gw.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := gw.PatchTask(ctx, task.ID, domain.Move(cols[0].ID, 0)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGatewayFetchFailure(t *testing.T) {
	gw := NewGateway(&stubRepository{
		listColumnsFn: func(ctx context.Context) ([]domain.Column, error) {
			return nil, errors.New("down")
		},
		listTasksFn: func(ctx context.Context) ([]domain.Task, error) {
			return nil, nil
		},
	})
	if _, _, err := gw.FetchBoard(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
