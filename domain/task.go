package domain

import (
	"strings"
	"time"
)

// Task represents a single card on the board.
type Task struct {
	ID          string     `json:"id"`
	ColumnID    string     `json:"columnId"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Position    int        `json:"position"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NewTask carries the fields accepted when creating a task. A nil Position
// appends the task to the end of its column.
type NewTask struct {
	Title       string  `json:"title"`
	ColumnID    string  `json:"columnId"`
	Description *string `json:"description,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// Validate rejects a create request that lacks a title or a column.
func (n NewTask) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if n.ColumnID == "" {
		return &ValidationError{Field: "columnId", Reason: "columnId is required"}
	}
	if n.Position != nil && *n.Position < 0 {
		return &ValidationError{Field: "position", Reason: "position must not be negative"}
	}
	return nil
}

// TaskPatch carries partial updates for a task. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ColumnID    *string `json:"columnId,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.ColumnID == nil && p.Position == nil
}

// Validate rejects values the store must never persist.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title must not be empty"}
	}
	if p.ColumnID != nil && *p.ColumnID == "" {
		return &ValidationError{Field: "columnId", Reason: "columnId must not be empty"}
	}
	if p.Position != nil && *p.Position < 0 {
		return &ValidationError{Field: "position", Reason: "position must not be negative"}
	}
	return nil
}

// Prune drops the fields whose value already matches cur, so that only
// changed fields are sent to the store.
func (p TaskPatch) Prune(cur Task) TaskPatch {
	out := p
	if out.Title != nil && *out.Title == cur.Title {
		out.Title = nil
	}
	if out.Description != nil && *out.Description == cur.DescriptionText() {
		out.Description = nil
	}
	if out.ColumnID != nil && *out.ColumnID == cur.ColumnID {
		out.ColumnID = nil
	}
	if out.Position != nil && *out.Position == cur.Position {
		out.Position = nil
	}
	return out
}

// Apply copies the patched fields onto t and stamps UpdatedAt.
func (p TaskPatch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	if p.ColumnID != nil {
		t.ColumnID = *p.ColumnID
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
	ts := now.UTC()
	t.UpdatedAt = &ts
}

// DescriptionText returns the description or an empty string.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// Move builds the patch persisted when a task is dropped.
func Move(columnID string, position int) TaskPatch {
	return TaskPatch{ColumnID: &columnID, Position: &position}
}
