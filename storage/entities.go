package storage

import (
	"time"

	"github.com/rajan-marasini/task-kanban/domain"
)

const edmInt64 = "Edm.Int64"

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// Timestamps are stored as Edm.Int64 unix milliseconds.
type columnEntity struct {
	entityKeys
	Name          string `json:"Name"`
	Position      int    `json:"Position"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
}

type taskEntity struct {
	entityKeys
	ColumnID      string  `json:"ColumnId"`
	Title         string  `json:"Title"`
	Description   *string `json:"Description,omitempty"`
	Position      int     `json:"Position"`
	CreatedAt     int64   `json:"CreatedAt,string"`
	CreatedAtType string  `json:"CreatedAt@odata.type"`
	UpdatedAt     int64   `json:"UpdatedAt,string"`
	UpdatedAtType string  `json:"UpdatedAt@odata.type"`
}

// taskUpdate is merged into an existing entity; nil fields are left alone.
type taskUpdate struct {
	entityKeys
	ColumnID      *string `json:"ColumnId,omitempty"`
	Title         *string `json:"Title,omitempty"`
	Description   *string `json:"Description,omitempty"`
	Position      *int    `json:"Position,omitempty"`
	UpdatedAt     int64   `json:"UpdatedAt,string"`
	UpdatedAtType string  `json:"UpdatedAt@odata.type"`
}

func (e columnEntity) toDomain() domain.Column {
	return domain.Column{
		ID:        e.RowKey,
		Name:      e.Name,
		Position:  e.Position,
		CreatedAt: fromMillis(e.CreatedAt),
	}
}

func (e taskEntity) toDomain() domain.Task {
	return domain.Task{
		ID:          e.RowKey,
		ColumnID:    e.ColumnID,
		Title:       e.Title,
		Description: e.Description,
		Position:    e.Position,
		CreatedAt:   fromMillis(e.CreatedAt),
		UpdatedAt:   fromMillis(e.UpdatedAt),
	}
}

func newTaskEntity(board string, t domain.Task) taskEntity {
	return taskEntity{
		entityKeys:    entityKeys{PartitionKey: board, RowKey: t.ID},
		ColumnID:      t.ColumnID,
		Title:         t.Title,
		Description:   t.Description,
		Position:      t.Position,
		CreatedAt:     t.CreatedAt.UnixMilli(),
		CreatedAtType: edmInt64,
		UpdatedAt:     t.UpdatedAt.UnixMilli(),
		UpdatedAtType: edmInt64,
	}
}

func newTaskUpdate(board, id string, p domain.TaskPatch, at time.Time) taskUpdate {
	return taskUpdate{
		entityKeys:    entityKeys{PartitionKey: board, RowKey: id},
		ColumnID:      p.ColumnID,
		Title:         p.Title,
		Description:   p.Description,
		Position:      p.Position,
		UpdatedAt:     at.UnixMilli(),
		UpdatedAtType: edmInt64,
	}
}

func fromMillis(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
