package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/slok/projplan/cmd/projplan/commands"
	"github.com/slok/projplan/internal/log"
	loglogrus "github.com/slok/projplan/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("projplan", "Project schedule and progress tool over a shared data file.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	scheduleCmd := commands.NewScheduleCommand(rootCmd, app)
	watchCmd := commands.NewWatchCommand(rootCmd, app)

	// Task subcommands share a parent command.
	taskCmd := commands.NewTaskCommand(app)
	taskAddCmd := commands.NewTaskAddCommand(rootCmd, taskCmd)
	taskSetCmd := commands.NewTaskSetCommand(rootCmd, taskCmd)
	taskRmCmd := commands.NewTaskRmCommand(rootCmd, taskCmd)

	// Baseline subcommands share a parent command.
	baselineCmd := commands.NewBaselineCommand(app)
	baselineSaveCmd := commands.NewBaselineSaveCommand(rootCmd, baselineCmd)
	baselineCompareCmd := commands.NewBaselineCompareCommand(rootCmd, baselineCmd)
	baselineListCmd := commands.NewBaselineListCommand(rootCmd, baselineCmd)

	// Lock subcommands share a parent command.
	lockCmd := commands.NewLockCommand(app)
	lockStatusCmd := commands.NewLockStatusCommand(rootCmd, lockCmd)
	lockAcquireCmd := commands.NewLockAcquireCommand(rootCmd, lockCmd)
	lockReleaseCmd := commands.NewLockReleaseCommand(rootCmd, lockCmd)

	cmds := map[string]commands.Command{
		scheduleCmd.Name():        scheduleCmd,
		watchCmd.Name():           watchCmd,
		taskAddCmd.Name():         taskAddCmd,
		taskSetCmd.Name():         taskSetCmd,
		taskRmCmd.Name():          taskRmCmd,
		baselineSaveCmd.Name():    baselineSaveCmd,
		baselineCompareCmd.Name(): baselineCompareCmd,
		baselineListCmd.Name():    baselineListCmd,
		lockStatusCmd.Name():      lockStatusCmd,
		lockAcquireCmd.Name():     lockAcquireCmd,
		lockReleaseCmd.Name():     lockReleaseCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that produce structured output (table/JSON)
	// to prevent log noise from mixing with printer output in the terminal.
	// Users can still enable logging with --debug.
	printerCommands := map[string]bool{
		"schedule":         true,
		"baseline compare": true,
		"baseline list":    true,
		"lock status":      true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// A process without a session flag gets its own, lock records and logs share it.
	if rootCmd.Session == "" {
		rootCmd.Session = ulid.Make().String()
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
		"session": config.Session,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
