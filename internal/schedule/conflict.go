package schedule

import (
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
)

// Conflict is a dependency whose predecessor doesn't finish before the dependent starts.
type Conflict struct {
	Task        model.TaskName
	Predecessor model.TaskName
}

// HasConflict returns true when the predecessor effective end is on or after the
// dependent effective start. Tasks without dates never conflict.
func HasConflict(dependent, predecessor *model.Task) bool {
	start, end := dependent.EffectiveStart(), predecessor.EffectiveEnd()
	if start == nil || end == nil {
		return false
	}
	return !end.Before(*start)
}

// Conflicts returns the conflicting dependencies in task and dependency order.
func Conflicts(s *plan.Store) []Conflict {
	var res []Conflict
	for _, t := range s.Tasks() {
		for _, dep := range t.Dependencies {
			pred, ok := s.Get(dep)
			if !ok || dep == t.Name {
				continue
			}
			if HasConflict(t, pred) {
				res = append(res, Conflict{Task: t.Name, Predecessor: dep})
			}
		}
	}
	return res
}
