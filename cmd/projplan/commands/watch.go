package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"
)

// WatchCommand shows the schedule and refreshes it when another session changes the data file.
type WatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	interval     time.Duration
	format       string
	criticalOnly bool
}

// NewWatchCommand returns the watch command.
func NewWatchCommand(rootCmd *RootCommand, app *kingpin.Application) *WatchCommand {
	c := &WatchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("watch", "Show the schedule and refresh it on external changes.")
	c.Cmd.Flag("interval", "Data file poll interval (defaults to the settings poll interval).").DurationVar(&c.interval)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)
	c.Cmd.Flag("critical-only", "Show only the tasks on the critical path.").BoolVar(&c.criticalOnly)

	return c
}

func (c WatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c WatchCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sess, err := c.rootCmd.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	show := func(ctx context.Context) error {
		res, err := sess.openPlan(ctx, logger)
		if err != nil {
			return err
		}
		return c.rootCmd.printSchedule(ctx, sess, res.Store, c.format, c.criticalOnly)
	}

	if err := show(ctx); err != nil {
		return err
	}

	interval := c.interval
	if interval <= 0 {
		interval = sess.settings.Lock.PollInterval
	}

	logger.Infof("Watching %s every %s", sess.dataPath, interval)
	return sess.freshness.Watch(ctx, interval, func(ctx context.Context) error {
		if err := c.rootCmd.printer(c.format).PrintMessage(fmt.Sprintf("Project data changed at %s", time.Now().Format("15:04:05"))); err != nil {
			return err
		}
		return show(ctx)
	})
}
