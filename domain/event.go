package domain

const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
)

// ChangeEvent is published to the change feed after a successful write.
type ChangeEvent struct {
	Type     string `json:"type"`
	TaskID   string `json:"taskId"`
	ColumnID string `json:"columnId,omitempty"`
	Position int    `json:"position"`
	Time     int64  `json:"time"`
}
