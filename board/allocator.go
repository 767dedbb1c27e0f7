package board

import "github.com/rajan-marasini/task-kanban/domain"

// Placement is the durable location derived for a task at drop time.
type Placement struct {
	TaskID   string
	ColumnID string
	Position int
}

// Patch returns the partial update carrying the placement.
func (p Placement) Patch() domain.TaskPatch {
	return domain.Move(p.ColumnID, p.Position)
}

// Allocate derives the placement of a task from its index in its current
// lane. Positions are dense: the index itself is the new position, and
// siblings are not renumbered. Two tasks persisted from different views can
// therefore end up sharing a position until the next full refetch.
func Allocate(s *Store, taskID string) (Placement, bool) {
	col, idx, ok := s.Locate(taskID)
	if !ok {
		return Placement{}, false
	}
	return Placement{TaskID: taskID, ColumnID: col, Position: idx}, true
}

// AppendPosition is the position a new task gets when added at the bottom of
// a column.
func AppendPosition(s *Store, columnID string) int {
	return len(s.lanes[columnID])
}
