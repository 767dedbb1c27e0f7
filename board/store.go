package board

import (
	"cmp"
	"slices"

	"github.com/rajan-marasini/task-kanban/domain"
)

// Store holds the Board State: columns in position order and, per column,
// the ordered lane of tasks. While a drag is in progress the lane index is
// the only authoritative rank; Position values are refreshed by Resync.
//
// Store is not safe for concurrent use. Controller owns it.
type Store struct {
	columns []domain.Column
	lanes   map[string][]*domain.Task
}

// NewStore returns an empty board.
func NewStore() *Store {
	return &Store{lanes: map[string][]*domain.Task{}}
}

// Resync replaces the Board State wholesale. Columns and lanes are sorted by
// position, keeping fetch order for ties. Tasks referencing an unknown column
// and repeated task ids are skipped; the number skipped is returned.
func (s *Store) Resync(columns []domain.Column, tasks []domain.Task) int {
	cols := make([]domain.Column, 0, len(columns))
	lanes := make(map[string][]*domain.Task, len(columns))
	for _, c := range columns {
		if _, dup := lanes[c.ID]; dup {
			continue
		}
		lanes[c.ID] = nil
		cols = append(cols, c)
	}
	slices.SortStableFunc(cols, func(a, b domain.Column) int { return cmp.Compare(a.Position, b.Position) })

	skipped := 0
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		lane, ok := lanes[t.ColumnID]
		if !ok {
			skipped++
			continue
		}
		if _, dup := seen[t.ID]; dup {
			skipped++
			continue
		}
		seen[t.ID] = struct{}{}
		task := t
		lanes[t.ColumnID] = append(lane, &task)
	}
	for _, lane := range lanes {
		slices.SortStableFunc(lane, func(a, b *domain.Task) int { return cmp.Compare(a.Position, b.Position) })
	}

	s.columns = cols
	s.lanes = lanes
	return skipped
}

// MoveWithinColumn reinserts the task at toIndex inside its own lane. The
// index is clamped to the lane bounds. It reports whether anything moved.
func (s *Store) MoveWithinColumn(taskID string, toIndex int) bool {
	col, from, ok := s.Locate(taskID)
	if !ok {
		return false
	}
	lane := s.lanes[col]
	to := clamp(toIndex, 0, len(lane)-1)
	if to == from {
		return false
	}
	task := lane[from]
	rest := slices.Delete(slices.Clone(lane), from, from+1)
	s.lanes[col] = slices.Insert(rest, to, task)
	return true
}

// MoveAcrossColumns detaches the task from its lane, assigns it to
// targetColumnID and inserts it at toIndex (clamped) in the destination lane.
// An unknown target column leaves the board untouched.
func (s *Store) MoveAcrossColumns(taskID, targetColumnID string, toIndex int) bool {
	dst, ok := s.lanes[targetColumnID]
	if !ok {
		return false
	}
	src, from, ok := s.Locate(taskID)
	if !ok {
		return false
	}
	if src == targetColumnID {
		return s.MoveWithinColumn(taskID, toIndex)
	}
	task := s.lanes[src][from]
	s.lanes[src] = slices.Delete(slices.Clone(s.lanes[src]), from, from+1)
	task.ColumnID = targetColumnID
	s.lanes[targetColumnID] = slices.Insert(slices.Clone(dst), clamp(toIndex, 0, len(dst)), task)
	return true
}

// Snapshot returns every task, column by column in column order and lane
// order within a column.
func (s *Store) Snapshot() []domain.Task {
	out := make([]domain.Task, 0, s.Len())
	for _, c := range s.columns {
		for _, t := range s.lanes[c.ID] {
			out = append(out, *t)
		}
	}
	return out
}

// Columns returns the columns in position order.
func (s *Store) Columns() []domain.Column {
	return slices.Clone(s.columns)
}

// Column looks a column up by id.
func (s *Store) Column(id string) (domain.Column, bool) {
	for _, c := range s.columns {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Column{}, false
}

// HasColumn reports whether the column is part of the board.
func (s *Store) HasColumn(id string) bool {
	_, ok := s.lanes[id]
	return ok
}

// Lane returns the ordered tasks of one column.
func (s *Store) Lane(columnID string) []domain.Task {
	lane := s.lanes[columnID]
	out := make([]domain.Task, len(lane))
	for i, t := range lane {
		out[i] = *t
	}
	return out
}

// Task looks a task up by id.
func (s *Store) Task(id string) (domain.Task, bool) {
	col, idx, ok := s.Locate(id)
	if !ok {
		return domain.Task{}, false
	}
	return *s.lanes[col][idx], true
}

// Locate returns the column holding the task and its index in that lane.
func (s *Store) Locate(taskID string) (string, int, bool) {
	for _, c := range s.columns {
		for i, t := range s.lanes[c.ID] {
			if t.ID == taskID {
				return c.ID, i, true
			}
		}
	}
	return "", 0, false
}

// Len returns the number of tasks on the board.
func (s *Store) Len() int {
	n := 0
	for _, lane := range s.lanes {
		n += len(lane)
	}
	return n
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
