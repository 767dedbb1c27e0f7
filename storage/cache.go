package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/rajan-marasini/task-kanban/domain"
)

// Cache wraps a Repository with Redis-backed caching of the column and task
// lists. Every write evicts the affected list.
type Cache struct {
	base  Repository
	redis *redis.Client
	ttl   time.Duration
	board string
}

// NewCache creates a caching Repository wrapper using the provided Redis client and TTL.
func NewCache(base Repository, client *redis.Client, ttl time.Duration, boardID string) *Cache {
	if base == nil {
		panic("storage.NewCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl, board: boardID}
}

func (c *Cache) ListColumns(ctx context.Context) ([]domain.Column, error) {
	var cols []domain.Column
	if c.load(ctx, c.columnsKey(), &cols) {
		return cols, nil
	}
	cols, err := c.base.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, c.columnsKey(), cols)
	return cols, nil
}

func (c *Cache) CreateColumn(ctx context.Context, name string, position int) (domain.Column, error) {
	col, err := c.base.CreateColumn(ctx, name, position)
	if err != nil {
		return domain.Column{}, err
	}
	c.evict(ctx, c.columnsKey())
	return col, nil
}

func (c *Cache) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if c.load(ctx, c.tasksKey(), &tasks) {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, c.tasksKey(), tasks)
	return tasks, nil
}

func (c *Cache) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	t, err := c.base.CreateTask(ctx, n)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, c.tasksKey())
	return t, nil
}

func (c *Cache) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	t, err := c.base.PatchTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, c.tasksKey())
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, c.tasksKey())
	return nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing repository without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, key).Result()
}

func (c *Cache) columnsKey() string {
	return "columns:" + c.board
}

func (c *Cache) tasksKey() string {
	return "tasks:" + c.board
}
