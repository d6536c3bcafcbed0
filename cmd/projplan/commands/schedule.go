package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/projplan/internal/app/analyze"
	"github.com/slok/projplan/internal/plan"
)

// ScheduleCommand shows the project schedule.
type ScheduleCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format       string
	criticalOnly bool
}

// NewScheduleCommand returns the schedule command.
func NewScheduleCommand(rootCmd *RootCommand, app *kingpin.Application) *ScheduleCommand {
	c := &ScheduleCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("schedule", "Show the project schedule with the critical path and progress.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)
	c.Cmd.Flag("critical-only", "Show only the tasks on the critical path.").BoolVar(&c.criticalOnly)

	return c
}

func (c ScheduleCommand) Name() string { return c.Cmd.FullCommand() }

func (c ScheduleCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sess, err := c.rootCmd.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.openPlan(ctx, logger)
	if err != nil {
		return err
	}

	return c.rootCmd.printSchedule(ctx, sess, res.Store, c.format, c.criticalOnly)
}

// printSchedule analyzes the plan of a store and prints the report.
func (c RootCommand) printSchedule(ctx context.Context, sess *session, store *plan.Store, format string, criticalOnly bool) error {
	svc, err := analyze.NewService(analyze.ServiceConfig{
		Holidays: sess.settings.Holidays,
		Logger:   c.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	report, err := svc.Run(ctx, analyze.Request{
		Store:        store,
		CriticalOnly: criticalOnly,
	})
	if err != nil {
		return fmt.Errorf("could not analyze schedule: %w", err)
	}

	if err := c.printer(format).PrintSchedule(*report); err != nil {
		return fmt.Errorf("could not print schedule: %w", err)
	}

	return nil
}
