package cli

import (
	"github.com/spf13/cobra"

	"github.com/rajan-marasini/task-kanban/tui"
)

// NewTUICommand creates the interactive board command.
func NewTUICommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board",
		Long: `Open the interactive board.

Keys: h/j/k/l or arrows move, space grabs a task, moving while grabbed drags
it, enter drops, esc releases without saving, r refreshes, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			return tui.Run(cmd.Context(), s.ctrl)
		},
	}
}
