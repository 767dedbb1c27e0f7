package api

const maxBodySize = 64 * 1024 // 64 KiB

// envelope wraps every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	msgRunning          = "API running"
	msgColumnsFailed    = "Failed to fetch columns"
	msgTodosFailed      = "Failed to fetch todos"
	msgTodoFailed       = "Failed to fetch todo"
	msgCreateFailed     = "Failed to create todo"
	msgUpdateFailed     = "Failed to update todo"
	msgDeleteFailed     = "Failed to delete todo"
	msgTodoNotFound     = "Todo not found"
	msgTodoConflict     = "Todo was modified concurrently"
	msgTodoDeleted      = "Todo deleted"
	msgRequired         = "Title and columnId are required"
	msgInvalidBody      = "invalid body"
	msgDuplicateRequest = "duplicate idempotency key"

	headerIdempotencyKey = "Idempotency-Key"
)
