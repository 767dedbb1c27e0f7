package api

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/rajan-marasini/task-kanban/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	ListColumns(ctx context.Context) ([]domain.Column, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error)
	PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper records idempotency keys of task creations.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, scope, key string) (bool, error)
	// Remove deletes a previously added key, used when creation fails.
	Remove(ctx context.Context, scope, key string) error
}

// ChangePublisher delivers change events to the change feed.
type ChangePublisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

// Deps holds the collaborators of the HTTP handlers. Auth, Deduper and
// Changes are optional.
type Deps struct {
	Store   Storage
	Auth    Authenticator
	Deduper Deduper
	Changes *Dispatcher
	Log     *log.Logger
}
