package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/rajan-marasini/task-kanban/domain"
)

type tableClient interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// Tables stores one board in Azure Table Storage. Every entity of the board
// shares the board id as PartitionKey; RowKey is the column or task id.
type Tables struct {
	columns tableClient
	tasks   tableClient
	board   string
}

// NewTables creates a Tables backend from the given connection string.
func NewTables(connStr, columnsTable, tasksTable, boardID string) (*Tables, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Tables{
		columns: svc.NewClient(columnsTable),
		tasks:   svc.NewClient(tasksTable),
		board:   boardID,
	}, nil
}

// EnsureTables creates the column and task tables when they are missing.
func (s *Tables) EnsureTables(ctx context.Context) error {
	for _, c := range []tableClient{s.columns, s.tasks} {
		if _, err := c.CreateTable(ctx, nil); err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return err
			}
		}
	}
	return nil
}

func (s *Tables) partitionFilter() string {
	return "PartitionKey eq '" + strings.ReplaceAll(s.board, "'", "''") + "'"
}

func (s *Tables) ListColumns(ctx context.Context) ([]domain.Column, error) {
	filter := s.partitionFilter()
	pager := s.columns.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cols := []domain.Column{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent columnEntity
			if err := sonic.Unmarshal(e, &ent); err != nil {
				return nil, fmt.Errorf("decode column: %w", err)
			}
			cols = append(cols, ent.toDomain())
		}
	}
	sortColumns(cols)
	return cols, nil
}

func (s *Tables) CreateColumn(ctx context.Context, name string, position int) (domain.Column, error) {
	c := domain.Column{ID: uuid.NewString(), Name: name, Position: position, CreatedAt: timeRef(now())}
	payload, err := sonic.Marshal(columnEntity{
		entityKeys:    entityKeys{PartitionKey: s.board, RowKey: c.ID},
		Name:          c.Name,
		Position:      c.Position,
		CreatedAt:     c.CreatedAt.UnixMilli(),
		CreatedAtType: edmInt64,
	})
	if err != nil {
		return domain.Column{}, err
	}
	if _, err := s.columns.AddEntity(ctx, payload, nil); err != nil {
		return domain.Column{}, err
	}
	return c, nil
}

func (s *Tables) ListTasks(ctx context.Context) ([]domain.Task, error) {
	filter := s.partitionFilter()
	pager := s.tasks.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := sonic.Unmarshal(e, &ent); err != nil {
				return nil, fmt.Errorf("decode task: %w", err)
			}
			tasks = append(tasks, ent.toDomain())
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *Tables) getTask(ctx context.Context, id string) (taskEntity, azcore.ETag, error) {
	resp, err := s.tasks.GetEntity(ctx, s.board, id, nil)
	if err != nil {
		if isStatus(err, 404) {
			return taskEntity{}, "", notFound(id)
		}
		return taskEntity{}, "", err
	}
	var ent taskEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return taskEntity{}, "", fmt.Errorf("decode task: %w", err)
	}
	return ent, resp.ETag, nil
}

func (s *Tables) GetTask(ctx context.Context, id string) (domain.Task, error) {
	ent, _, err := s.getTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	return ent.toDomain(), nil
}

func (s *Tables) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
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
		existing, err := s.ListTasks(ctx)
		if err != nil {
			return domain.Task{}, err
		}
		t.Position = countInColumn(existing, n.ColumnID)
	}

	payload, err := sonic.Marshal(newTaskEntity(s.board, t))
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.tasks.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// PatchTask merges the patch into the stored entity, guarded by the ETag
// read just before, so a concurrent delete surfaces as NotFound and a
// concurrent update as domain.ErrConflict.
func (s *Tables) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	ent, etag, err := s.getTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	at := now()
	payload, err := sonic.Marshal(newTaskUpdate(s.board, id, patch, at))
	if err != nil {
		return domain.Task{}, err
	}
	_, err = s.tasks.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		if isStatus(err, 404) {
			return domain.Task{}, notFound(id)
		}
		if isStatus(err, 412) {
			return domain.Task{}, &domain.TransportError{Op: "patch task " + id, Err: fmt.Errorf("%w: %w", domain.ErrConflict, err)}
		}
		return domain.Task{}, err
	}
	t := ent.toDomain()
	patch.Apply(&t, at)
	return t, nil
}

func (s *Tables) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.tasks.DeleteEntity(ctx, s.board, id, nil); err != nil {
		if isStatus(err, 404) {
			return notFound(id)
		}
		return err
	}
	return nil
}
