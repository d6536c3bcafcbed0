package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/projplan/internal/model"
)

func TestParseTaskStatus(t *testing.T) {
	tests := map[string]struct {
		in  string
		exp model.TaskStatus
	}{
		"empty should be planned":        {in: "", exp: model.TaskStatusPlanned},
		"unknown should be planned":      {in: "whatever", exp: model.TaskStatusPlanned},
		"spaced in progress":             {in: "In Progress", exp: model.TaskStatusInProgress},
		"hyphenated in progress":         {in: "in-progress", exp: model.TaskStatusInProgress},
		"camel case in progress":         {in: "InProgress", exp: model.TaskStatusInProgress},
		"done with spaces and uppercase": {in: "  DONE ", exp: model.TaskStatusDone},
		"blocked":                        {in: "blocked", exp: model.TaskStatusBlocked},
		"deferred":                       {in: "Deferred", exp: model.TaskStatusDeferred},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, model.ParseTaskStatus(test.in))
		})
	}
}

func TestNewTaskDefaults(t *testing.T) {
	assert := assert.New(t)

	task := model.NewTask("t1")
	require.NotNil(t, task.DurationDays)
	assert.Equal(1, *task.DurationDays)
	assert.Equal(model.TaskStatusPlanned, task.Status)
	assert.Equal(0, task.PercentComplete)
	assert.NoError(task.Validate())
}

func TestTaskValidate(t *testing.T) {
	neg := -1
	tests := map[string]struct {
		task       model.Task
		expErr     bool
		expEditErr bool
	}{
		"valid task": {
			task: model.NewTask("a"),
		},
		"missing name": {
			task:       model.Task{Name: "  ", Status: model.TaskStatusPlanned},
			expErr:     true,
			expEditErr: true,
		},
		"own parent is tolerated on load but not on edit": {
			task:       model.Task{Name: "a", Parent: "a", Status: model.TaskStatusPlanned},
			expEditErr: true,
		},
		"negative duration is tolerated on load but not on edit": {
			task:       model.Task{Name: "a", DurationDays: &neg, Status: model.TaskStatusPlanned},
			expEditErr: true,
		},
		"percent out of bounds is tolerated on load but not on edit": {
			task:       model.Task{Name: "a", PercentComplete: 101, Status: model.TaskStatusPlanned},
			expEditErr: true,
		},
		"unknown status is tolerated on load but not on edit": {
			task:       model.Task{Name: "a", Status: "wat"},
			expEditErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			err := test.task.Validate()
			if test.expErr {
				assert.ErrorIs(err, model.ErrNotValid)
			} else {
				assert.NoError(err)
			}

			err = test.task.ValidateEdit()
			if test.expEditErr {
				assert.ErrorIs(err, model.ErrNotValid)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestTaskEffectiveSpan(t *testing.T) {
	assert := assert.New(t)

	start := model.ParseDate("2024-01-01")
	end := model.ParseDate("2024-01-05")
	autoStart := model.ParseDate("2023-12-01")
	autoEnd := model.ParseDate("2024-02-01")

	task := model.Task{Name: "a", StartDate: start, CalculatedEndDate: end}
	assert.Equal(start, task.EffectiveStart())
	assert.Equal(end, task.EffectiveEnd())

	task.AutoStart, task.AutoEnd = autoStart, autoEnd
	assert.Equal(autoStart, task.EffectiveStart())
	assert.Equal(autoEnd, task.EffectiveEnd())
}

func TestTaskTransitions(t *testing.T) {
	today := time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)
	day := model.DateOf(today)
	earlier := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		task      func() model.Task
		edit      func(t *model.Task)
		expStatus model.TaskStatus
		expPct    int
		expStart  *time.Time
		expFinish *time.Time
	}{
		"setting percent to 100 should mark done and stamp both dates": {
			task:      func() model.Task { return model.NewTask("a") },
			edit:      func(t *model.Task) { t.SetPercentComplete(100, today) },
			expStatus: model.TaskStatusDone,
			expPct:    100,
			expStart:  &day,
			expFinish: &day,
		},
		"setting percent over 100 should clamp and mark done": {
			task:      func() model.Task { return model.NewTask("a") },
			edit:      func(t *model.Task) { t.SetPercentComplete(250, today) },
			expStatus: model.TaskStatusDone,
			expPct:    100,
			expStart:  &day,
			expFinish: &day,
		},
		"setting a partial percent should not change status nor stamp": {
			task:      func() model.Task { return model.NewTask("a") },
			edit:      func(t *model.Task) { t.SetPercentComplete(40, today) },
			expStatus: model.TaskStatusPlanned,
			expPct:    40,
		},
		"setting done should force 100 and stamp": {
			task:      func() model.Task { return model.NewTask("a") },
			edit:      func(t *model.Task) { t.SetStatus(model.TaskStatusDone, today) },
			expStatus: model.TaskStatusDone,
			expPct:    100,
			expStart:  &day,
			expFinish: &day,
		},
		"setting done should keep a previous actual start": {
			task: func() model.Task {
				t := model.NewTask("a")
				t.ActualStartDate = &earlier
				return t
			},
			edit:      func(t *model.Task) { t.SetStatus(model.TaskStatusDone, today) },
			expStatus: model.TaskStatusDone,
			expPct:    100,
			expStart:  &earlier,
			expFinish: &day,
		},
		"setting in progress should stamp only the start": {
			task:      func() model.Task { return model.NewTask("a") },
			edit:      func(t *model.Task) { t.SetStatus(model.TaskStatusInProgress, today) },
			expStatus: model.TaskStatusInProgress,
			expStart:  &day,
		},
		"setting blocked should not stamp": {
			task:      func() model.Task { return model.NewTask("a") },
			edit:      func(t *model.Task) { t.SetStatus(model.TaskStatusBlocked, today) },
			expStatus: model.TaskStatusBlocked,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			task := test.task()
			test.edit(&task)

			assert.Equal(test.expStatus, task.Status)
			assert.Equal(test.expPct, task.PercentComplete)
			assert.Equal(test.expStart, task.ActualStartDate)
			assert.Equal(test.expFinish, task.ActualFinishDate)
		})
	}
}

func TestTaskAuditStampsAreWriteOnce(t *testing.T) {
	assert := assert.New(t)

	day1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	task := model.NewTask("a")
	task.SetPercentComplete(100, day1)
	assert.Equal(&day1, task.ActualFinishDate)

	// Lowering the percent keeps the stamp.
	task.SetPercentComplete(30, day2)
	assert.Equal(30, task.PercentComplete)
	assert.Equal(&day1, task.ActualFinishDate)
	assert.Equal(&day1, task.ActualStartDate)

	// Reverting status keeps the stamps, completing again doesn't move them.
	task.SetStatus(model.TaskStatusInProgress, day2)
	task.SetStatus(model.TaskStatusDone, day2)
	assert.Equal(&day1, task.ActualFinishDate)
	assert.Equal(&day1, task.ActualStartDate)
}

func TestDependencies(t *testing.T) {
	assert := assert.New(t)

	deps := model.ParseDependencies(" a, b ,,c ")
	assert.Equal([]model.TaskName{"a", "b", "c"}, deps)
	assert.Equal("a, b, c", model.FormatDependencies(deps))
	assert.Nil(model.ParseDependencies(""))

	task := model.Task{Name: "x", Dependencies: deps}
	assert.True(task.DependsOn("b"))
	assert.False(task.DependsOn("z"))
}
