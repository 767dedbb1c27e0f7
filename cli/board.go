package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rajan-marasini/task-kanban/board"
	"github.com/rajan-marasini/task-kanban/domain"
)

type columnView struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Position int           `json:"position"`
	Tasks    []domain.Task `json:"tasks"`
}

type boardView struct {
	Columns []columnView `json:"columns"`
}

// NewBoardCommand creates the board command.
func NewBoardCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show every column and its tasks in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts, true)
			if err != nil {
				return err
			}
			defer s.Close()

			view := snapshot(s.ctrl)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(view, renderBoard(view))
		},
	}
}

func snapshot(ctrl *board.Controller) boardView {
	cols := ctrl.Columns()
	view := boardView{Columns: make([]columnView, 0, len(cols))}
	for _, c := range cols {
		lane := ctrl.Lane(c.ID)
		if lane == nil {
			lane = []domain.Task{}
		}
		view.Columns = append(view.Columns, columnView{ID: c.ID, Name: c.Name, Position: c.Position, Tasks: lane})
	}
	return view
}

func renderBoard(view boardView) string {
	var b strings.Builder
	for _, c := range view.Columns {
		fmt.Fprintf(&b, "%s (%d)\n", c.Name, len(c.Tasks))
		if len(c.Tasks) == 0 {
			b.WriteString("  (empty)\n")
		}
		for i, t := range c.Tasks {
			fmt.Fprintf(&b, "  [%d] %s  %s\n", i, t.ID, t.Title)
			if d := t.DescriptionText(); d != "" {
				fmt.Fprintf(&b, "        %s\n", d)
			}
		}
	}
	return b.String()
}

// resolveColumn accepts a column id or a case-insensitive column name.
func resolveColumn(ctrl *board.Controller, ref string) (domain.Column, error) {
	cols := ctrl.Columns()
	for _, c := range cols {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return domain.Column{}, &domain.ValidationError{Field: "column", Reason: "unknown column " + ref}
}

func columnName(ctrl *board.Controller, id string) string {
	for _, c := range ctrl.Columns() {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}
