package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rajan-marasini/task-kanban/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLite stores the board in a single SQLite file. Timestamps are unix
// milliseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) ListColumns(ctx context.Context) ([]domain.Column, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, position, created_at FROM board_columns`)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	cols := []domain.Column{}
	for rows.Next() {
		var (
			c       domain.Column
			created int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Position, &created); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.CreatedAt = fromMillis(created)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortColumns(cols)
	return cols, nil
}

func (s *SQLite) CreateColumn(ctx context.Context, name string, position int) (domain.Column, error) {
	c := domain.Column{ID: uuid.NewString(), Name: name, Position: position, CreatedAt: timeRef(now())}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO board_columns (id, name, position, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Position, c.CreatedAt.UnixMilli())
	if err != nil {
		return domain.Column{}, fmt.Errorf("insert column: %w", err)
	}
	return c, nil
}

const taskColumns = `id, column_id, title, description, position, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (domain.Task, error) {
	var (
		t                domain.Task
		desc             sql.NullString
		created, updated int64
	)
	if err := r.Scan(&t.ID, &t.ColumnID, &t.Title, &desc, &t.Position, &created, &updated); err != nil {
		return domain.Task{}, err
	}
	if desc.Valid {
		d := desc.String
		t.Description = &d
	}
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (s *SQLite) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *SQLite) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTask(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, q queryRower, id string) (domain.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, notFound(id)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *SQLite) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

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
	} else if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE column_id = ?`, n.ColumnID).Scan(&t.Position); err != nil {
		return domain.Task{}, fmt.Errorf("count tasks: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ColumnID, t.Title, t.Description, t.Position, ts.UnixMilli(), ts.UnixMilli())
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *SQLite) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}
	patch.Apply(&t, now())
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET column_id = ?, title = ?, description = ?, position = ?, updated_at = ? WHERE id = ?`,
		t.ColumnID, t.Title, t.Description, t.Position, t.UpdatedAt.UnixMilli(), id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *SQLite) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}
