package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
	"github.com/slok/projplan/internal/schedule"
)

func leaf(name, parent, start, end string) model.Task {
	t := model.Task{Name: model.TaskName(name), Parent: model.TaskName(parent)}
	if start != "" {
		t.StartDate = d(start)
	}
	if end != "" {
		t.CalculatedEndDate = d(end)
	}
	return t
}

func TestAggregateSpansIsCommutative(t *testing.T) {
	c1 := leaf("c1", "p", "2024-01-01", "2024-01-04")
	c2 := leaf("c2", "p", "2024-01-10", "2024-01-12")
	p := model.Task{Name: "p", StartDate: d("2025-01-01"), CalculatedEndDate: d("2025-02-01")}

	orders := map[string][]model.Task{
		"parent first, c1 then c2": {p, c1, c2},
		"parent first, c2 then c1": {p, c2, c1},
		"children first":           {c2, c1, p},
		"parent in the middle":     {c1, p, c2},
	}

	for name, tasks := range orders {
		t.Run(name, func(t *testing.T) {
			s, err := plan.NewStore(tasks)
			require.NoError(t, err)

			schedule.AggregateSpans(s)

			got, _ := s.Get("p")
			assert.Equal(t, d("2024-01-01"), got.AutoStart)
			assert.Equal(t, d("2024-01-12"), got.AutoEnd)
			assert.Equal(t, d("2024-01-01"), got.EffectiveStart())
			assert.Equal(t, d("2024-01-12"), got.EffectiveEnd())
		})
	}
}

func TestAggregateSpans(t *testing.T) {
	tests := map[string]struct {
		tasks    []model.Task
		task     model.TaskName
		expStart string
		expEnd   string
	}{
		"nested parents aggregate descendants": {
			tasks: []model.Task{
				{Name: "root"},
				{Name: "mid", Parent: "root"},
				leaf("x", "mid", "2024-03-01", "2024-03-05"),
				leaf("y", "root", "2024-02-01", "2024-02-02"),
			},
			task:     "root",
			expStart: "2024-02-01",
			expEnd:   "2024-03-05",
		},
		"children without dates are ignored": {
			tasks: []model.Task{
				{Name: "p"},
				leaf("a", "p", "2024-01-01", "2024-01-02"),
				leaf("b", "p", "", ""),
				leaf("c", "p", "2024-01-05", ""),
			},
			task:     "p",
			expStart: "2024-01-01",
			expEnd:   "2024-01-02",
		},
		"no resolved children give no span": {
			tasks: []model.Task{
				{Name: "p"},
				leaf("a", "p", "", ""),
			},
			task: "p",
		},
		"leaf tasks don't get an auto span": {
			tasks: []model.Task{
				leaf("a", "", "2024-01-01", "2024-01-02"),
			},
			task: "a",
		},
		"parent cycles are truncated": {
			tasks: []model.Task{
				{Name: "a", Parent: "b"},
				{Name: "b", Parent: "a"},
				leaf("c", "a", "2024-01-01", "2024-01-03"),
			},
			task:     "a",
			expStart: "2024-01-01",
			expEnd:   "2024-01-03",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			s, err := plan.NewStore(test.tasks)
			require.NoError(t, err)

			schedule.AggregateSpans(s)

			got, _ := s.Get(test.task)
			if test.expStart == "" {
				assert.Nil(got.AutoStart)
			} else {
				assert.Equal(d(test.expStart), got.AutoStart)
			}
			if test.expEnd == "" {
				assert.Nil(got.AutoEnd)
			} else {
				assert.Equal(d(test.expEnd), got.AutoEnd)
			}
		})
	}
}

func TestAggregateSpansIsIdempotent(t *testing.T) {
	s, err := plan.NewStore([]model.Task{
		{Name: "p"},
		leaf("a", "p", "2024-01-01", "2024-01-04"),
		leaf("b", "p", "2024-01-10", "2024-01-12"),
	})
	require.NoError(t, err)

	schedule.AggregateSpans(s)
	first := s.Snapshot()
	schedule.AggregateSpans(s)
	assert.Equal(t, first, s.Snapshot())
}

func TestAggregateSpansClearsFormerParents(t *testing.T) {
	s, err := plan.NewStore([]model.Task{
		{Name: "p"},
		leaf("a", "p", "2024-01-01", "2024-01-04"),
	})
	require.NoError(t, err)

	schedule.AggregateSpans(s)
	require.NoError(t, s.SetParent("a", ""))
	schedule.AggregateSpans(s)

	p, _ := s.Get("p")
	assert.Nil(t, p.AutoStart)
	assert.Nil(t, p.AutoEnd)
}
