// Package cli implements the command line programs that run migrations and manage the
// application schema.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/executor"
	"github.com/Jokerealm/ai-slides/internal/state"
)

// ErrMigrationFailed is returned when a migration ran but did not succeed.
var ErrMigrationFailed = errors.New("migration failed")

// Version is printed by the version command.
var Version = "1.0.0"

// IO holds the streams commands read from and write to
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO returns the process streams
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Execute runs cmd with args and returns the process exit status. Errors are printed
// to the error stream as "Error: ...".
func Execute(cmd *cobra.Command, streams IO, args []string) int {
	cmd.SetArgs(args)
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(streams.Err, "Error: %v\n", err)
		return 1
	}
	return 0
}

type runOptions struct {
	configPath string
	test       bool
	method     string
}

// runMigration runs one direction of a migration the way the standalone programs do:
// optional confirmation, execution, per-statement report, final status.
func runMigration(cmd *cobra.Command, name string, direction backends.Direction, opts runOptions) error {
	out := cmd.OutOrStdout()
	if opts.test && !Confirm(cmd.InOrStdin(), out) {
		fmt.Fprintln(out, "Migration cancelled")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := OpenRuntime(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx = executor.SetExecutionContext(ctx, currentUser(), opts.method, map[string]interface{}{
		"command": cmd.CommandPath(),
		"test":    opts.test,
	})
	result, err := rt.Executor.Execute(ctx, name, direction)
	if err != nil {
		return err
	}

	Report(out, result)
	if !result.Success {
		return fmt.Errorf("%w: %s %s: %s", ErrMigrationFailed, name, direction.Verb(), result.FirstError())
	}
	fmt.Fprintln(out, "Migration completed!")
	return nil
}

// NewScriptCommand builds the command of a standalone migration program. Without flags
// it runs the upgrade of the named migration.
func NewScriptCommand(use, migration, short string) *cobra.Command {
	opts := runOptions{method: state.MethodScript}
	var down bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := backends.Up
			if down {
				direction = backends.Down
			}
			return runMigration(cmd, migration, direction, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.test, "test", false, "Ask for confirmation before touching the database")
	cmd.Flags().BoolVar(&down, "down", false, "Run the downgrade instead of the upgrade")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the configuration file (default: $SLIDES_CONFIG or ./config.yaml)")
	return cmd
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "system"
}
