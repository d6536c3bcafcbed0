package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/storage"
	"github.com/slok/projplan/internal/storage/sqlite"
	"github.com/slok/projplan/internal/storage/sqlite/migrations"
)

var _ storage.Repository = &sqlite.Repository{}

func date(s string) *time.Time {
	d := model.ParseDate(s)
	if d == nil {
		panic("invalid test date " + s)
	}
	return d
}

func intp(i int) *int { return &i }

func newRepo(t *testing.T, path string, readOnly bool) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath:   path,
		ReadOnly: readOnly,
		Logger:   log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func taskFixture(name string) model.Task {
	return model.Task{
		Name:              model.TaskName(name),
		Parent:            "root",
		StartDate:         date("2024-01-01"),
		DurationDays:      intp(3),
		CalculatedEndDate: date("2024-01-04"),
		Dependencies:      []model.TaskName{"a", "b"},
		PercentComplete:   40,
		Status:            model.TaskStatusInProgress,
		ActualStartDate:   date("2024-01-02"),
		BaselineStartDate: date("2024-01-01"),
		BaselineEndDate:   date("2024-01-04"),
	}
}

func TestRepositoryReplaceAndListTasks(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, filepath.Join(t.TempDir(), "project_data.db"), false)

	tasks, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	t1 := taskFixture("t1")
	t2 := model.Task{Name: "t2", Status: model.TaskStatusPlanned}
	require.NoError(t, repo.ReplaceTasks(ctx, []model.Task{t1, t2}))

	got, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Task{t1, t2}, got)

	// A replace is a full delete and reinsert.
	t3 := model.Task{Name: "t3", Status: model.TaskStatusDone, PercentComplete: 100}
	require.NoError(t, repo.ReplaceTasks(ctx, []model.Task{t3}))

	got, err = repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Task{t3}, got)
}

func TestRepositoryReplaceTasksIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, filepath.Join(t.TempDir(), "project_data.db"), false)

	require.NoError(t, repo.ReplaceTasks(ctx, []model.Task{{Name: "keep", Status: model.TaskStatusPlanned}}))

	err := repo.ReplaceTasks(ctx, []model.Task{{Name: "dup"}, {Name: "dup"}})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	got, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.TaskName("keep"), got[0].Name)
}

func TestRepositoryNormalizesLegacyRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "project_data.db")
	repo := newRepo(t, path, false)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO project_parts (name, parent, start_date, duration_days, dependencies)
		VALUES ('legacy', '', '01/15/2024', NULL, 'x,  y ,'), ('broken', '', 'not a date', 2, '')`)
	require.NoError(t, err)

	got, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.Task{
		Name:         "legacy",
		StartDate:    date("2024-01-15"),
		Dependencies: []model.TaskName{"x", "y"},
		Status:       model.TaskStatusPlanned,
	}, got[0])

	assert.Nil(t, got[1].StartDate)
	assert.Equal(t, intp(2), got[1].DurationDays)
	assert.Equal(t, model.TaskStatusPlanned, got[1].Status)
	assert.Equal(t, 0, got[1].PercentComplete)
}

func TestRepositoryBaselines(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, filepath.Join(t.TempDir(), "project_data.db"), false)

	got, err := repo.GetBaseline(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, repo.SaveBaseline(ctx, []model.BaselineEntry{
		{BaselineName: "v1", TaskName: "a", Start: date("2024-01-01"), End: date("2024-01-03")},
		{BaselineName: "v1", TaskName: "b"},
		{BaselineName: "initial", TaskName: "a", Start: date("2023-12-01"), End: date("2023-12-05")},
	}))

	// Upsert by baseline and task name.
	require.NoError(t, repo.SaveBaseline(ctx, []model.BaselineEntry{
		{BaselineName: "v1", TaskName: "a", Start: date("2024-02-01"), End: date("2024-02-05")},
	}))

	got, err = repo.GetBaseline(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, map[model.TaskName]model.BaselineSpan{
		"a": {Start: date("2024-02-01"), End: date("2024-02-05")},
		"b": {},
	}, got)

	names, err := repo.ListBaselines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"initial", "v1"}, names)

	err = repo.SaveBaseline(ctx, []model.BaselineEntry{{BaselineName: "bad/name", TaskName: "a"}})
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestRepositoryReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "project_data.db")

	_, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: path, ReadOnly: true})
	assert.ErrorIs(t, err, model.ErrNotFound)

	rw := newRepo(t, path, false)
	require.NoError(t, rw.ReplaceTasks(ctx, []model.Task{{Name: "a", Status: model.TaskStatusPlanned}}))

	ro := newRepo(t, path, true)
	got, err := ro.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	err = ro.ReplaceTasks(ctx, nil)
	assert.ErrorIs(t, err, model.ErrReadOnly)
	err = ro.SaveBaseline(ctx, []model.BaselineEntry{{BaselineName: "v1", TaskName: "a"}})
	assert.ErrorIs(t, err, model.ErrReadOnly)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "project_data.db")

	// Opening twice runs the migrations twice.
	_ = newRepo(t, path, false)
	_ = newRepo(t, path, false)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	m, err := migrations.NewMigrator(db, log.Noop)
	require.NoError(t, err)

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(4), version)
}
