// Package cli implements the kanban command line client.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rajan-marasini/task-kanban/board"
	"github.com/rajan-marasini/task-kanban/client"
	"github.com/rajan-marasini/task-kanban/storage"
)

const defaultAPIURL = "http://localhost:3000"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// GatewayOpener returns the persistence gateway for a command and a func
// releasing it.
type GatewayOpener func(ctx context.Context, opts *RootOptions) (board.Gateway, func() error, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	API     string
	Token   string
	DB      string
	Memory  bool
	Format  string
	Timeout time.Duration
	Verbose bool

	open GatewayOpener
}

// NewRootCommand creates the root command for kanban-cli.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openGateway)
}

func newRootCommand(open GatewayOpener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "kanban-cli",
		Short: "Work with a kanban board from the terminal",
		Long: `Work with a kanban board from the terminal.

By default the board is read from and written to the API service at
--api (or KANBAN_API_URL). --db uses a local SQLite file instead and
--memory a throwaway in-memory board.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Memory && opts.DB != "" {
				return NewExitError(ExitCommandError, "--memory and --db are mutually exclusive")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.API, "api", envOr("KANBAN_API_URL", defaultAPIURL), "API base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("KANBAN_TOKEN"), "bearer token for the API")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "use a local SQLite board at this path")
	cmd.PersistentFlags().BoolVar(&opts.Memory, "memory", false, "use a throwaway in-memory board")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "timeout for each request")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewBoardCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewRmCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewTUICommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// session is an open gateway with a controller over it.
type session struct {
	ctrl  *board.Controller
	close func() error
}

// newSession opens the gateway and, when load is set, fetches the board.
func newSession(cmd *cobra.Command, opts *RootOptions, load bool) (*session, error) {
	logger := log.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(log.WarnLevel)
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	ctx := cmd.Context()
	gw, closeFn, err := opts.open(ctx, opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open board", err)
	}
	ctrl := board.NewController(gw, board.WithLogger(logger), board.WithPersistTimeout(opts.Timeout))
	s := &session{ctrl: ctrl, close: closeFn}
	if load {
		lctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		if err := ctrl.Load(lctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close waits for pending drops and releases the gateway.
func (s *session) Close() error {
	s.ctrl.Wait()
	return s.close()
}

func openGateway(ctx context.Context, opts *RootOptions) (board.Gateway, func() error, error) {
	noop := func() error { return nil }
	switch {
	case opts.Memory:
		mem := storage.NewMemory()
		if _, err := storage.Seed(ctx, mem, storage.DefaultColumns()); err != nil {
			return nil, nil, err
		}
		return storage.NewGateway(mem), noop, nil
	case opts.DB != "":
		db, err := storage.OpenSQLite(opts.DB)
		if err != nil {
			return nil, nil, err
		}
		if _, err := storage.Seed(ctx, db, storage.DefaultColumns()); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return storage.NewGateway(db), db.Close, nil
	}
	return client.New(opts.API, opts.Token, opts.Timeout), noop, nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
