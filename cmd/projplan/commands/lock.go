package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// NewLockCommand returns the parent command of the data file lock.
func NewLockCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("lock", "Inspect and manage the shared data file lock.")
}

// LockStatusCommand shows the lock status of the data file.
type LockStatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewLockStatusCommand returns the lock status command.
func NewLockStatusCommand(rootCmd *RootCommand, lockCmd *kingpin.CmdClause) *LockStatusCommand {
	c := &LockStatusCommand{rootCmd: rootCmd}

	c.Cmd = lockCmd.Command("status", "Show who holds the data file lock.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c LockStatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockStatusCommand) Run(ctx context.Context) error {
	sess, err := c.rootCmd.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	status, err := sess.locker.Status(ctx)
	if err != nil {
		return fmt.Errorf("could not get lock status: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintLockStatus(status); err != nil {
		return fmt.Errorf("could not print lock status: %w", err)
	}

	return nil
}

// LockAcquireCommand takes the data file lock until it's released.
type LockAcquireCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewLockAcquireCommand returns the lock acquire command.
func NewLockAcquireCommand(rootCmd *RootCommand, lockCmd *kingpin.CmdClause) *LockAcquireCommand {
	c := &LockAcquireCommand{rootCmd: rootCmd}
	c.Cmd = lockCmd.Command("acquire", "Take the data file lock, use the printed session to release it.")
	return c
}

func (c LockAcquireCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockAcquireCommand) Run(ctx context.Context) error {
	sess, err := c.rootCmd.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	ok, renewed, err := sess.locker.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("could not acquire lock: %w", err)
	}

	p := c.rootCmd.printer(formatTable)
	if !ok {
		return p.PrintMessage("Lock not acquired, the session proceeds unlocked")
	}
	if renewed {
		return p.PrintMessage(fmt.Sprintf("Lock renewed by %s (session %s)", sess.locker.Owner(), sess.locker.Session()))
	}

	return p.PrintMessage(fmt.Sprintf("Lock acquired by %s (session %s)", sess.locker.Owner(), sess.locker.Session()))
}

// LockReleaseCommand releases the data file lock of a session.
type LockReleaseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewLockReleaseCommand returns the lock release command.
func NewLockReleaseCommand(rootCmd *RootCommand, lockCmd *kingpin.CmdClause) *LockReleaseCommand {
	c := &LockReleaseCommand{rootCmd: rootCmd}
	c.Cmd = lockCmd.Command("release", "Release the data file lock if it belongs to this owner and session.")
	return c
}

func (c LockReleaseCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockReleaseCommand) Run(ctx context.Context) error {
	sess, err := c.rootCmd.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	p := c.rootCmd.printer(formatTable)
	if !sess.locker.Release(ctx) {
		return p.PrintMessage("Lock not released, it's missing or it belongs to another session")
	}

	return p.PrintMessage("Lock released")
}
