package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/projplan/internal/app/baselinecompare"
	"github.com/slok/projplan/internal/app/baselinelist"
	"github.com/slok/projplan/internal/app/baselinesave"
)

// NewBaselineCommand returns the parent command of the baselines.
func NewBaselineCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("baseline", "Manage the named schedule baselines.")
}

// BaselineSaveCommand stores the current schedule as a named baseline.
type BaselineSaveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name  string
	force bool
}

// NewBaselineSaveCommand returns the baseline save command.
func NewBaselineSaveCommand(rootCmd *RootCommand, baselineCmd *kingpin.CmdClause) *BaselineSaveCommand {
	c := &BaselineSaveCommand{rootCmd: rootCmd}

	c.Cmd = baselineCmd.Command("save", "Save the current schedule as a baseline, existing entries are replaced.")
	c.Cmd.Arg("name", "Baseline name ([a-zA-Z0-9._ -]).").Required().StringVar(&c.name)
	c.Cmd.Flag("force", "Overwrite changes made by other sessions since the plan was loaded.").BoolVar(&c.force)

	return c
}

func (c BaselineSaveCommand) Name() string { return c.Cmd.FullCommand() }

func (c BaselineSaveCommand) Run(ctx context.Context) error {
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

	svc, err := baselinesave.NewService(baselinesave.ServiceConfig{
		Repository: sess.repo,
		Guard:      sess.guard,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	n, err := svc.Run(ctx, baselinesave.Request{
		Store: res.Store,
		Name:  c.name,
		Force: c.force,
	})
	if err != nil {
		return fmt.Errorf("could not save baseline: %w", err)
	}

	return c.rootCmd.printer(formatTable).PrintMessage(fmt.Sprintf("Baseline %q saved with %d tasks", c.name, n))
}

// BaselineCompareCommand compares the current schedule with a baseline.
type BaselineCompareCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name   string
	format string
}

// NewBaselineCompareCommand returns the baseline compare command.
func NewBaselineCompareCommand(rootCmd *RootCommand, baselineCmd *kingpin.CmdClause) *BaselineCompareCommand {
	c := &BaselineCompareCommand{rootCmd: rootCmd}

	c.Cmd = baselineCmd.Command("compare", "Show the business day slips against a baseline.")
	c.Cmd.Arg("name", "Baseline name.").Required().StringVar(&c.name)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c BaselineCompareCommand) Name() string { return c.Cmd.FullCommand() }

func (c BaselineCompareCommand) Run(ctx context.Context) error {
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

	svc, err := baselinecompare.NewService(baselinecompare.ServiceConfig{
		Repository: sess.repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, baselinecompare.Request{Store: res.Store, Name: c.name})
	if err != nil {
		return fmt.Errorf("could not compare baseline: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintBaselineCompare(*result); err != nil {
		return fmt.Errorf("could not print baseline comparison: %w", err)
	}

	return nil
}

// BaselineListCommand lists the stored baselines.
type BaselineListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewBaselineListCommand returns the baseline list command.
func NewBaselineListCommand(rootCmd *RootCommand, baselineCmd *kingpin.CmdClause) *BaselineListCommand {
	c := &BaselineListCommand{rootCmd: rootCmd}

	c.Cmd = baselineCmd.Command("list", "List the stored baselines.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c BaselineListCommand) Name() string { return c.Cmd.FullCommand() }

func (c BaselineListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sess, err := c.rootCmd.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	svc, err := baselinelist.NewService(baselinelist.ServiceConfig{
		Repository: sess.repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	names, err := svc.Run(ctx, baselinelist.Request{})
	if err != nil {
		return fmt.Errorf("could not list baselines: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintBaselineList(names); err != nil {
		return fmt.Errorf("could not print baseline list: %w", err)
	}

	return nil
}
