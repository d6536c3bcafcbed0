package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/projplan/internal/app/open"
	"github.com/slok/projplan/internal/conventions"
	"github.com/slok/projplan/internal/lock"
	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/printer"
	"github.com/slok/projplan/internal/storage"
	storageio "github.com/slok/projplan/internal/storage/io"
	"github.com/slok/projplan/internal/storage/memory"
	"github.com/slok/projplan/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string
	ConfigPath string
	ReadOnly   bool
	Owner      string
	Session    string
	DryRun     bool

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger and output color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("db-path", "Path to the shared project data file.").Envar(conventions.DBPathEnvVar).Default(conventions.DefaultDataPath()).StringVar(&c.DBPath)
	app.Flag("config", "Path to the settings file.").Default(conventions.DefaultConfigPath()).StringVar(&c.ConfigPath)
	app.Flag("read-only", "Open the data file without write access, the lock is never taken.").BoolVar(&c.ReadOnly)
	app.Flag("owner", "Lock owner identity (defaults to user@host).").StringVar(&c.Owner)
	app.Flag("session", "Lock session identifier, reuse it to keep a lock taken with 'lock acquire'.").StringVar(&c.Session)
	app.Flag("dry-run", "Apply the edits on an in-memory copy of the data file, nothing is written.").BoolVar(&c.DryRun)

	return c
}

// session has the shared dependencies of the commands that work on the data file.
type session struct {
	repo      storage.Repository
	closer    func() error
	settings  model.Settings
	locker    *lock.Coordinator
	freshness *lock.Freshness
	guard     *lock.Guard
	dataPath  string
}

func (s *session) Close() error { return s.closer() }

// newSession opens the data file and sets up the lock coordination of this process.
func (c RootCommand) newSession(ctx context.Context) (*session, error) {
	logger := c.Logger

	settings, err := c.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	dataPath, err := filepath.Abs(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve data file path: %w", err)
	}

	sqliteRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath:   dataPath,
		ReadOnly: c.ReadOnly || c.DryRun,
		Logger:   logger,
	})
	if err != nil && !(c.DryRun && errors.Is(err, model.ErrNotFound)) {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	var repo storage.Repository = sqliteRepo
	closer := func() error { return nil }
	if sqliteRepo != nil {
		closer = sqliteRepo.Close
	}

	if c.DryRun {
		memRepo, err := newDryRunRepository(ctx, sqliteRepo, logger)
		if err != nil {
			closer()
			return nil, err
		}
		repo = memRepo
	}

	locker, err := lock.NewCoordinator(lock.CoordinatorConfig{
		DataPath:       dataPath,
		Owner:          c.Owner,
		Session:        c.Session,
		StaleAfter:     settings.Lock.StaleAfter,
		PromptTakeover: settings.Lock.PromptTakeover,
		ReadOnly:       c.ReadOnly || c.DryRun,
		Confirmer:      newPromptConfirmer(c.Stdin, c.Stderr),
		Logger:         logger,
	})
	if err != nil {
		closer()
		return nil, fmt.Errorf("could not create lock coordinator: %w", err)
	}

	freshness := lock.NewFreshness(dataPath, logger)
	guardCfg := lock.GuardConfig{
		Locker:    locker,
		Freshness: freshness,
		ReadOnly:  c.ReadOnly,
		Logger:    logger,
	}
	// Dry runs only write in memory, the shared file coordination is not needed.
	if c.DryRun {
		guardCfg = lock.GuardConfig{Logger: logger}
	}

	guard, err := lock.NewGuard(guardCfg)
	if err != nil {
		closer()
		return nil, fmt.Errorf("could not create write guard: %w", err)
	}

	return &session{
		repo:      repo,
		closer:    closer,
		settings:  settings,
		locker:    locker,
		freshness: freshness,
		guard:     guard,
		dataPath:  dataPath,
	}, nil
}

// newDryRunRepository returns an in-memory repository with the contents of src,
// a missing data file gives an empty repository.
func newDryRunRepository(ctx context.Context, src *sqlite.Repository, logger log.Logger) (*memory.Repository, error) {
	repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create dry run repository: %w", err)
	}

	if src == nil {
		return repo, nil
	}

	if err := repo.Seed(ctx, src); err != nil {
		return nil, fmt.Errorf("could not load data file: %w", err)
	}

	return repo, nil
}

func (c RootCommand) loadSettings(ctx context.Context) (model.Settings, error) {
	configPath, err := filepath.Abs(c.ConfigPath)
	if err != nil {
		return model.Settings{}, fmt.Errorf("could not resolve settings path: %w", err)
	}

	repo := storageio.NewSettingsYAMLRepository(os.DirFS("/"))
	settings, err := repo.GetSettings(ctx, configPath[1:])
	if err != nil {
		return model.Settings{}, fmt.Errorf("could not load settings: %w", err)
	}

	return settings, nil
}

// openPlan loads the project plan of the session.
func (s *session) openPlan(ctx context.Context, logger log.Logger) (*open.Result, error) {
	svc, err := open.NewService(open.ServiceConfig{
		Repository: s.repo,
		Marker:     s.guard,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, open.Request{})
	if err != nil {
		return nil, fmt.Errorf("could not open project plan: %w", err)
	}

	return res, nil
}

func (c RootCommand) printer(format string) printer.Printer {
	switch format {
	case formatJSON:
		return printer.NewJSONPrinter(c.Stdout)
	default:
		return printer.NewTablePrinter(c.Stdout, c.NoColor)
	}
}
