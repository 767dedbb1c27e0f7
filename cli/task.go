package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rajan-marasini/task-kanban/domain"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Column      string
	Description string
	Position    int
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Long: `Create a task at the bottom of a column, or at --position.

Example:
  kanban-cli add "Write release notes" --column "To Do"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts.RootOptions, true)
			if err != nil {
				return err
			}
			defer s.Close()

			col, err := resolveColumn(s.ctrl, opts.Column)
			if err != nil {
				return err
			}
			n := domain.NewTask{Title: args[0], ColumnID: col.ID}
			if cmd.Flags().Changed("description") {
				n.Description = &opts.Description
			}
			if cmd.Flags().Changed("position") {
				n.Position = &opts.Position
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()
			task, err := s.ctrl.CreateTask(ctx, n)
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(task, fmt.Sprintf("created %s %q in %s at position %d\n", task.ID, task.Title, col.Name, task.Position))
		},
	}

	cmd.Flags().StringVarP(&opts.Column, "column", "c", "", "column id or name (required)")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "task description")
	cmd.Flags().IntVar(&opts.Position, "position", 0, "position in the column (default: append)")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	Title       string
	Description string
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change the title or description of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &opts.Title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &opts.Description
			}
			if patch.Empty() {
				return NewExitError(ExitCommandError, "nothing to change: pass --title or --description")
			}

			s, err := newSession(cmd, opts.RootOptions, true)
			if err != nil {
				return err
			}
			defer s.Close()

			before, _ := s.ctrl.Task(args[0])
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()
			task, err := s.ctrl.UpdateTask(ctx, args[0], patch)
			if err != nil {
				return err
			}

			text := fmt.Sprintf("updated %s\n", task.ID)
			if patch.Prune(before).Empty() {
				text = fmt.Sprintf("no changes to %s\n", task.ID)
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(task, text)
		},
	}

	cmd.Flags().StringVarP(&opts.Title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "new description")

	return cmd
}

// NewRmCommand creates the rm command.
func NewRmCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()
			if err := s.ctrl.DeleteTask(ctx, args[0]); err != nil {
				return err
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(map[string]string{"id": args[0]}, fmt.Sprintf("deleted %s\n", args[0]))
		},
	}
}
