package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/storage/sqlite/migrations"
)

// BusyTimeout is the time a connection waits on a locked database before failing.
const BusyTimeout = 5 * time.Second

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	// ReadOnly opens the database without write access and doesn't run migrations.
	ReadOnly bool
	Logger   log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db       *sql.DB
	readOnly bool
	logger   log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	busy := BusyTimeout.Milliseconds()
	var dsn string
	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.DBPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("database %s: %w", cfg.DBPath, model.ErrNotFound)
			}
			return nil, fmt.Errorf("could not stat database: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", cfg.DBPath, busy)
	} else {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create db directory: %w", err)
		}
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", cfg.DBPath, busy)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if !cfg.ReadOnly {
		migrator, err := migrations.NewMigrator(db, cfg.Logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("could not create migrator: %w", err)
		}
		if err := migrator.Up(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not run migrations: %w", err)
		}

		version, _, err := migrator.Version(ctx)
		if err != nil {
			cfg.Logger.Warningf("Could not get schema version: %s", err)
		} else {
			cfg.Logger.Debugf("Data file schema at version %d", version)
		}
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s (read-only: %t)", cfg.DBPath, cfg.ReadOnly)

	return &Repository{db: db, readOnly: cfg.ReadOnly, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// ListTasks returns all the tasks in insertion order.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	query := `
		SELECT
			name, parent,
			start_date, duration_days, calculated_end_date,
			dependencies,
			percent_complete, status,
			actual_start_date, actual_finish_date,
			baseline_start_date, baseline_end_date
		FROM project_parts
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

// ReplaceTasks deletes all the stored tasks and inserts the new ones in a single transaction.
func (r *Repository) ReplaceTasks(ctx context.Context, tasks []model.Task) error {
	if r.readOnly {
		return fmt.Errorf("could not replace tasks: %w", model.ErrReadOnly)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_parts`); err != nil {
		return fmt.Errorf("could not delete tasks: %w", err)
	}

	insertQuery := `
		INSERT INTO project_parts (
			name, parent,
			start_date, duration_days, calculated_end_date,
			dependencies,
			percent_complete, status,
			actual_start_date, actual_finish_date,
			baseline_start_date, baseline_end_date
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		var duration *int64
		if t.DurationDays != nil {
			d := int64(*t.DurationDays)
			duration = &d
		}

		_, err := stmt.ExecContext(ctx,
			string(t.Name),
			string(t.Parent),
			nullDate(t.StartDate),
			duration,
			nullDate(t.CalculatedEndDate),
			model.FormatDependencies(t.Dependencies),
			t.PercentComplete,
			string(t.Status),
			nullDate(t.ActualStartDate),
			nullDate(t.ActualFinishDate),
			nullDate(t.BaselineStartDate),
			nullDate(t.BaselineEndDate),
		)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return fmt.Errorf("task %q: %w", t.Name, model.ErrAlreadyExists)
			}
			return fmt.Errorf("could not insert task %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Replaced stored tasks with %d tasks", len(tasks))
	return nil
}

// SaveBaseline upserts baseline entries by baseline and task name.
func (r *Repository) SaveBaseline(ctx context.Context, entries []model.BaselineEntry) error {
	if r.readOnly {
		return fmt.Errorf("could not save baseline: %w", model.ErrReadOnly)
	}

	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO baselines (baseline_name, task_name, start_date, end_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(baseline_name, task_name) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if err := model.ValidateBaselineName(e.BaselineName); err != nil {
			return err
		}

		_, err := stmt.ExecContext(ctx, e.BaselineName, string(e.TaskName), nullDate(e.Start), nullDate(e.End))
		if err != nil {
			return fmt.Errorf("could not upsert baseline entry %q: %w", e.TaskName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Saved %d baseline entries", len(entries))
	return nil
}

// GetBaseline returns the spans stored for a baseline. Unknown baselines return an empty map.
func (r *Repository) GetBaseline(ctx context.Context, name string) (map[model.TaskName]model.BaselineSpan, error) {
	query := `
		SELECT task_name, start_date, end_date
		FROM baselines
		WHERE baseline_name = ?
	`

	rows, err := r.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("could not query baseline: %w", err)
	}
	defer rows.Close()

	res := map[model.TaskName]model.BaselineSpan{}
	for rows.Next() {
		var taskName string
		var start, end sql.NullString
		if err := rows.Scan(&taskName, &start, &end); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}

		res[model.TaskName(taskName)] = model.BaselineSpan{
			Start: r.parseDate(start, "start_date", taskName),
			End:   r.parseDate(end, "end_date", taskName),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return res, nil
}

// ListBaselines returns the sorted names of the stored baselines.
func (r *Repository) ListBaselines(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT baseline_name FROM baselines ORDER BY baseline_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("could not query baselines: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return names, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanTask(s scanner) (model.Task, error) {
	var name, parent, deps string
	var start, calcEnd, actualStart, actualFinish, baselineStart, baselineEnd, status sql.NullString
	var duration, percent sql.NullInt64

	err := s.Scan(
		&name,
		&parent,
		&start,
		&duration,
		&calcEnd,
		&deps,
		&percent,
		&status,
		&actualStart,
		&actualFinish,
		&baselineStart,
		&baselineEnd,
	)
	if err != nil {
		return model.Task{}, err
	}

	t := model.Task{
		Name:              model.TaskName(name),
		Parent:            model.TaskName(parent),
		StartDate:         r.parseDate(start, "start_date", name),
		CalculatedEndDate: r.parseDate(calcEnd, "calculated_end_date", name),
		Dependencies:      model.ParseDependencies(deps),
		ActualStartDate:   r.parseDate(actualStart, "actual_start_date", name),
		ActualFinishDate:  r.parseDate(actualFinish, "actual_finish_date", name),
		BaselineStartDate: r.parseDate(baselineStart, "baseline_start_date", name),
		BaselineEndDate:   r.parseDate(baselineEnd, "baseline_end_date", name),
		// Rows written before the progress columns existed have them as NULL.
		PercentComplete: 0,
		Status:          model.TaskStatusPlanned,
	}

	if duration.Valid {
		d := int(duration.Int64)
		t.DurationDays = &d
	}
	if percent.Valid {
		t.PercentComplete = int(percent.Int64)
	}
	if status.Valid {
		t.Status = model.ParseTaskStatus(status.String)
	}

	return t, nil
}

func (r *Repository) parseDate(v sql.NullString, column, task string) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}

	d := model.ParseDate(v.String)
	if d == nil {
		r.logger.Warningf("Ignoring unparsable %s %q on task %q", column, v.String, task)
	}
	return d
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: model.FormatDate(t), Valid: true}
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed: project_parts.")
}
