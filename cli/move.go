package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rajan-marasini/task-kanban/board"
	"github.com/rajan-marasini/task-kanban/domain"
)

// MoveOptions holds flags for the move command.
type MoveOptions struct {
	*RootOptions
	To     string
	Before string
}

type moveResult struct {
	Task     domain.Task `json:"task"`
	ColumnID string      `json:"columnId"`
	Position int         `json:"position"`
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task to a column, at the bottom or before another task",
		Long: `Move a task the way a drag and drop would: the task is picked up,
hovered over its destination and dropped there. Only the moved task is
saved.

Example:
  kanban-cli move 4f1c --to "In Progress" --before 9a2e`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts.RootOptions, true)
			if err != nil {
				return err
			}
			defer s.Close()

			drop, err := drag(s.ctrl, args[0], opts.To, opts.Before)
			if err != nil {
				return err
			}
			res, err := drop.Wait(cmd.Context())
			if err != nil {
				return err
			}
			if res.Err != nil {
				return fmt.Errorf("save move: %w", res.Err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			p := res.Placement
			return out.Success(
				moveResult{Task: res.Task, ColumnID: p.ColumnID, Position: p.Position},
				fmt.Sprintf("moved %s to %s at position %d\n", p.TaskID, columnName(s.ctrl, p.ColumnID), p.Position),
			)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "destination column id or name (required)")
	cmd.Flags().StringVar(&opts.Before, "before", "", "place the task right before this task")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// drag replays a pointer gesture on the controller: start on the task, hover
// until it sits at the requested place, then release over the last target.
func drag(ctrl *board.Controller, taskID, to, before string) (*board.Drop, error) {
	if _, ok := ctrl.Task(taskID); !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	col, err := resolveColumn(ctrl, to)
	if err != nil {
		return nil, err
	}
	if before == taskID {
		return nil, &domain.ValidationError{Field: "before", Reason: "a task cannot be placed before itself"}
	}
	if before != "" {
		beforeCol, _, ok := ctrl.Locate(before)
		if !ok {
			return nil, fmt.Errorf("task %s: %w", before, domain.ErrNotFound)
		}
		if beforeCol != col.ID {
			return nil, &domain.ValidationError{Field: "before", Reason: fmt.Sprintf("task %s is not in %s", before, col.Name)}
		}
	}

	if !ctrl.DragStart(taskID) {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	over := board.OverColumn(col.ID)
	hover := func(t board.Target) {
		ctrl.DragOver(taskID, t)
		over = t
	}

	cur, idx, _ := ctrl.Locate(taskID)
	switch {
	case before != "" && cur != col.ID:
		hover(board.OverTask(before))
	case before != "":
		_, beforeIdx, _ := ctrl.Locate(before)
		if idx > beforeIdx {
			hover(board.OverTask(before))
		} else if idx < beforeIdx-1 {
			// Moving down lands on the hovered index, so hover the task
			// right above the target.
			hover(board.OverTask(ctrl.Lane(col.ID)[beforeIdx-1].ID))
		}
	default:
		if cur != col.ID {
			hover(board.OverColumn(col.ID))
		}
		lane := ctrl.Lane(col.ID)
		if last := lane[len(lane)-1]; last.ID != taskID {
			hover(board.OverTask(last.ID))
		}
	}

	drop := ctrl.DragEnd(taskID, over)
	if drop == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return drop, nil
}
