package schedule

import (
	"time"

	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
)

type visitedSet map[model.TaskName]struct{}

// with returns a copy of the set including name, branches never share their sets.
func (v visitedSet) with(name model.TaskName) visitedSet {
	c := make(visitedSet, len(v)+1)
	for k := range v {
		c[k] = struct{}{}
	}
	c[name] = struct{}{}
	return c
}

func (v visitedSet) has(name model.TaskName) bool {
	_, ok := v[name]
	return ok
}

// AggregateSpans sets the auto start and end of every parent task to the
// min start and max end of its descendants. Cycles in the parent graph are
// tolerated: a name repeated on a branch stops that branch.
func AggregateSpans(s *plan.Store) {
	for _, t := range s.Tasks() {
		if !s.HasChildren(t.Name) {
			t.AutoStart, t.AutoEnd = nil, nil
			continue
		}

		t.AutoStart, t.AutoEnd = aggregatedSpan(s, t.Name, visitedSet{})
	}
}

func aggregatedSpan(s *plan.Store, name model.TaskName, visited visitedSet) (start, end *time.Time) {
	if visited.has(name) {
		return nil, nil
	}
	visited = visited.with(name)

	children := s.Children(name)
	if len(children) == 0 {
		t, ok := s.Get(name)
		if !ok || t.StartDate == nil || t.CalculatedEndDate == nil {
			return nil, nil
		}
		return t.StartDate, t.CalculatedEndDate
	}

	for _, c := range children {
		cs, ce := aggregatedSpan(s, c.Name, visited)
		if cs == nil || ce == nil {
			continue
		}
		if start == nil || cs.Before(*start) {
			start = cs
		}
		if end == nil || ce.After(*end) {
			end = ce
		}
	}

	return copyTime(start), copyTime(end)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
