package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/projplan/internal/app/save"
	"github.com/slok/projplan/internal/app/taskedit"
	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/plan"
)

// NewTaskCommand returns the parent command of the task edits.
func NewTaskCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("task", "Edit the project tasks.")
}

// savePlan persists the plan of a session with the write guard.
func (s *session) savePlan(ctx context.Context, store *plan.Store, force bool, logger log.Logger) error {
	svc, err := save.NewService(save.ServiceConfig{
		Repository: s.repo,
		Guard:      s.guard,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	if err := svc.Run(ctx, save.Request{Store: store, Force: force}); err != nil {
		return fmt.Errorf("could not save project plan: %w", err)
	}

	return nil
}

// printEdited prints the result of an edit, dry runs show the resulting schedule
// because nothing is persisted.
func (c RootCommand) printEdited(ctx context.Context, sess *session, store *plan.Store, msg string) error {
	if c.DryRun {
		return c.printSchedule(ctx, sess, store, formatTable, false)
	}
	return c.printer(formatTable).PrintMessage(msg)
}

// TaskAddCommand adds a task to the plan.
type TaskAddCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name         string
	parent       string
	start        string
	duration     int
	durationSet  bool
	dependencies string
	force        bool
}

// NewTaskAddCommand returns the task add command.
func NewTaskAddCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskAddCommand {
	c := &TaskAddCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("add", "Add a task.")
	c.Cmd.Arg("name", "Task name.").Required().StringVar(&c.name)
	c.Cmd.Flag("parent", "Parent task name.").StringVar(&c.parent)
	c.Cmd.Flag("start", "Start date (YYYY-MM-DD).").StringVar(&c.start)
	c.Cmd.Flag("duration", "Duration in business days.").IsSetByUser(&c.durationSet).IntVar(&c.duration)
	c.Cmd.Flag("depends-on", "Comma separated predecessor task names.").StringVar(&c.dependencies)
	c.Cmd.Flag("force", "Overwrite changes made by other sessions since the plan was loaded.").BoolVar(&c.force)

	return c
}

func (c TaskAddCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskAddCommand) Run(ctx context.Context) error {
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

	svc, err := taskedit.NewService(taskedit.ServiceConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	req := taskedit.AddRequest{
		Store:        res.Store,
		Name:         c.name,
		Parent:       c.parent,
		Start:        c.start,
		Dependencies: c.dependencies,
	}
	if c.durationSet {
		req.Duration = &c.duration
	}

	task, err := svc.Add(ctx, req)
	if err != nil {
		return fmt.Errorf("could not add task: %w", err)
	}

	if err := sess.savePlan(ctx, res.Store, c.force, logger); err != nil {
		return err
	}

	return c.rootCmd.printEdited(ctx, sess, res.Store, fmt.Sprintf("Task %q added", task.Name))
}

// TaskSetCommand edits a task of the plan.
type TaskSetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name  string
	force bool

	rename          string
	renameSet       bool
	parent          string
	parentSet       bool
	start           string
	startSet        bool
	duration        int
	durationSet     bool
	dependencies    string
	dependenciesSet bool
	percent         int
	percentSet      bool
	status          string
	statusSet       bool
}

// NewTaskSetCommand returns the task set command.
func NewTaskSetCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskSetCommand {
	c := &TaskSetCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("set", "Edit a task, only the provided fields are changed.")
	c.Cmd.Arg("name", "Task name.").Required().StringVar(&c.name)
	c.Cmd.Flag("rename", "New task name, references are updated.").IsSetByUser(&c.renameSet).StringVar(&c.rename)
	c.Cmd.Flag("parent", "Parent task name (empty for top level).").IsSetByUser(&c.parentSet).StringVar(&c.parent)
	c.Cmd.Flag("start", "Start date (YYYY-MM-DD, empty clears it).").IsSetByUser(&c.startSet).StringVar(&c.start)
	c.Cmd.Flag("duration", "Duration in business days.").IsSetByUser(&c.durationSet).IntVar(&c.duration)
	c.Cmd.Flag("depends-on", "Comma separated predecessor task names (empty clears them).").IsSetByUser(&c.dependenciesSet).StringVar(&c.dependencies)
	c.Cmd.Flag("percent", "Percent complete [0,100].").IsSetByUser(&c.percentSet).IntVar(&c.percent)
	c.Cmd.Flag("status", "Status (Planned, In Progress, Blocked, Done, Deferred).").IsSetByUser(&c.statusSet).StringVar(&c.status)
	c.Cmd.Flag("force", "Overwrite changes made by other sessions since the plan was loaded.").BoolVar(&c.force)

	return c
}

func (c TaskSetCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskSetCommand) Run(ctx context.Context) error {
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

	svc, err := taskedit.NewService(taskedit.ServiceConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	req := taskedit.SetRequest{Store: res.Store, Name: c.name}
	if c.renameSet {
		req.Rename = &c.rename
	}
	if c.parentSet {
		req.Parent = &c.parent
	}
	if c.startSet {
		req.Start = &c.start
	}
	if c.durationSet {
		req.Duration = &c.duration
	}
	if c.dependenciesSet {
		req.Dependencies = &c.dependencies
	}
	if c.percentSet {
		req.Percent = &c.percent
	}
	if c.statusSet {
		req.Status = &c.status
	}

	task, err := svc.Set(ctx, req)
	if err != nil {
		return fmt.Errorf("could not edit task: %w", err)
	}

	if err := sess.savePlan(ctx, res.Store, c.force, logger); err != nil {
		return err
	}

	return c.rootCmd.printEdited(ctx, sess, res.Store, fmt.Sprintf("Task %q updated", task.Name))
}

// TaskRmCommand removes a task and its descendants from the plan.
type TaskRmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name  string
	force bool
}

// NewTaskRmCommand returns the task rm command.
func NewTaskRmCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskRmCommand {
	c := &TaskRmCommand{rootCmd: rootCmd}

	c.Cmd = taskCmd.Command("rm", "Remove a task and all its subtasks.")
	c.Cmd.Arg("name", "Task name.").Required().StringVar(&c.name)
	c.Cmd.Flag("force", "Overwrite changes made by other sessions since the plan was loaded.").BoolVar(&c.force)

	return c
}

func (c TaskRmCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskRmCommand) Run(ctx context.Context) error {
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

	svc, err := taskedit.NewService(taskedit.ServiceConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	removed, err := svc.Remove(ctx, taskedit.RemoveRequest{Store: res.Store, Name: c.name})
	if err != nil {
		return fmt.Errorf("could not remove task: %w", err)
	}

	if err := sess.savePlan(ctx, res.Store, c.force, logger); err != nil {
		return err
	}

	return c.rootCmd.printEdited(ctx, sess, res.Store, fmt.Sprintf("Removed %d tasks", len(removed)))
}
