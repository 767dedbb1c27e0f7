package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/rajan-marasini/task-kanban/domain"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestTables() *Tables {
	return &Tables{columns: newFakeTable(), tasks: newFakeTable(), board: "board-1"}
}

func TestRepositories(t *testing.T) {
	backends := []struct {
		name string
		repo func(t *testing.T) Repository
	}{
		{name: "memory", repo: func(t *testing.T) Repository { return NewMemory() }},
		{name: "sqlite", repo: func(t *testing.T) Repository { return newTestSQLite(t) }},
		{name: "tables", repo: func(t *testing.T) Repository { return newTestTables() }},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			runRepositoryContract(t, b.repo(t))
		})
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func runRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()

	done, err := repo.CreateColumn(ctx, "Done", 1)
	if err != nil {
		t.Fatalf("create column: %v", err)
	}
	todo, err := repo.CreateColumn(ctx, "To Do", 0)
	if err != nil {
		t.Fatalf("create column: %v", err)
	}
	cols, err := repo.ListColumns(ctx)
	if err != nil {
		t.Fatalf("list columns: %v", err)
	}
	if len(cols) != 2 || cols[0].ID != todo.ID || cols[1].ID != done.ID {
		t.Fatalf("unexpected columns: %#v", cols)
	}
	if cols[0].Name != "To Do" || cols[0].CreatedAt == nil {
		t.Fatalf("unexpected column: %#v", cols[0])
	}

	first, err := repo.CreateTask(ctx, domain.NewTask{Title: "first", ColumnID: todo.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	second, err := repo.CreateTask(ctx, domain.NewTask{Title: "second", ColumnID: todo.ID, Description: strPtr("notes")})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	other, err := repo.CreateTask(ctx, domain.NewTask{Title: "other", ColumnID: done.ID, Position: intPtr(7)})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if first.Position != 0 || second.Position != 1 || other.Position != 7 {
		t.Fatalf("unexpected positions: %d %d %d", first.Position, second.Position, other.Position)
	}
	if first.ID == "" || first.CreatedAt == nil || first.UpdatedAt == nil {
		t.Fatalf("expected id and timestamps: %#v", first)
	}

	got, err := repo.GetTask(ctx, second.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "second" || got.DescriptionText() != "notes" || got.ColumnID != todo.ID || !got.CreatedAt.Equal(*second.CreatedAt) {
		t.Fatalf("unexpected task: %#v", got)
	}
	got, _ = repo.GetTask(ctx, first.ID)
	if got.Description != nil {
		t.Fatalf("expected nil description, got %q", *got.Description)
	}

	tasks, err := repo.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 || tasks[0].ID != first.ID || tasks[1].ID != second.ID || tasks[2].ID != other.ID {
		t.Fatalf("unexpected task order: %#v", tasks)
	}

	patched, err := repo.PatchTask(ctx, first.ID, domain.Move(done.ID, 0))
	if err != nil {
		t.Fatalf("patch task: %v", err)
	}
	if patched.ColumnID != done.ID || patched.Position != 0 || patched.Title != "first" {
		t.Fatalf("unexpected patched task: %#v", patched)
	}
	got, _ = repo.GetTask(ctx, first.ID)
	if got.ColumnID != done.ID || got.Position != 0 || got.Title != "first" {
		t.Fatalf("patch not persisted: %#v", got)
	}

	title := "renamed"
	if _, err := repo.PatchTask(ctx, second.ID, domain.TaskPatch{Title: &title}); err != nil {
		t.Fatalf("patch title: %v", err)
	}
	got, _ = repo.GetTask(ctx, second.ID)
	if got.Title != "renamed" || got.DescriptionText() != "notes" || got.Position != 1 {
		t.Fatalf("title patch changed other fields: %#v", got)
	}

	if _, err := repo.PatchTask(ctx, "missing", domain.TaskPatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on patch, got %v", err)
	}
	if err := repo.DeleteTask(ctx, other.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := repo.DeleteTask(ctx, other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := repo.GetTask(ctx, other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on get, got %v", err)
	}
	tasks, _ = repo.ListTasks(ctx)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestTablesEnsureTablesIsIdempotent(t *testing.T) {
	s := newTestTables()
	for i := 0; i < 2; i++ {
		if err := s.EnsureTables(context.Background()); err != nil {
			t.Fatalf("ensure tables (%d): %v", i, err)
		}
	}
}

func TestTablesPatchUsesMerge(t *testing.T) {
	s := newTestTables()
	ctx := context.Background()
	task, err := s.CreateTask(ctx, domain.NewTask{Title: "t", ColumnID: "c1", Description: strPtr("keep")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.PatchTask(ctx, task.ID, domain.Move("c2", 3)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	fake := s.tasks.(*fakeTable)
	if fake.updates != 1 {
		t.Fatalf("expected one merge update, got %d", fake.updates)
	}
	got, _ := s.GetTask(ctx, task.ID)
	if got.ColumnID != "c2" || got.Position != 3 || got.DescriptionText() != "keep" {
		t.Fatalf("unexpected merged task: %#v", got)
	}
	if got.UpdatedAt == nil || got.UpdatedAt.Before(*got.CreatedAt) {
		t.Fatalf("expected updatedAt to be stamped: %#v", got)
	}
}

func TestTablesPatchReportsConcurrentUpdate(t *testing.T) {
	s := newTestTables()
	ctx := context.Background()
	task, err := s.CreateTask(ctx, domain.NewTask{Title: "t", ColumnID: "c1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.tasks.(*fakeTable).conflicts = 1

	_, err = s.PatchTask(ctx, task.ID, domain.Move("c2", 0))
	if !errors.Is(err, domain.ErrConflict) || !domain.IsTransport(err) {
		t.Fatalf("expected a conflict transport error, got %v", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("conflict must not read as not found: %v", err)
	}
	got, _ := s.GetTask(ctx, task.ID)
	if got.ColumnID != "c1" {
		t.Fatalf("expected the task to be left unchanged, got %+v", got)
	}
}

func TestTaskEntityDecodesTableTimestamps(t *testing.T) {
	raw := []byte(`{"odata.etag":"W/\"1\"","PartitionKey":"b","RowKey":"t1","Timestamp":"2024-01-01T00:00:00Z",` +
		`"ColumnId":"c1","Title":"Write","Position":2,` +
		`"CreatedAt@odata.type":"Edm.Int64","CreatedAt":"1700000000000",` +
		`"UpdatedAt@odata.type":"Edm.Int64","UpdatedAt":"1700000000500"}`)
	var ent taskEntity
	if err := sonic.Unmarshal(raw, &ent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	task := ent.toDomain()
	if task.ID != "t1" || task.ColumnID != "c1" || task.Position != 2 || task.Description != nil {
		t.Fatalf("unexpected task: %#v", task)
	}
	if task.CreatedAt.UnixMilli() != 1700000000000 || task.UpdatedAt.UnixMilli() != 1700000000500 {
		t.Fatalf("unexpected timestamps: %v %v", task.CreatedAt, task.UpdatedAt)
	}
}

func TestSQLiteRejectsUnknownColumn(t *testing.T) {
	s := newTestSQLite(t)
	if _, err := s.CreateTask(context.Background(), domain.NewTask{Title: "t", ColumnID: "nope"}); err == nil {
		t.Fatalf("expected foreign key violation")
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	col, _ := s.CreateColumn(context.Background(), "To Do", 0)
	if _, err := s.CreateTask(context.Background(), domain.NewTask{Title: "persisted", ColumnID: col.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	tasks, _ := s.ListTasks(context.Background())
	if len(tasks) != 1 || tasks[0].Title != "persisted" {
		t.Fatalf("unexpected tasks after reopen: %#v", tasks)
	}
}
