package schedule

import (
	"math"

	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
)

// RollUp recomputes the percent complete and status of every parent task from
// its children, and normalizes leaf tasks. After a roll up every task percent
// is in [0,100].
func RollUp(s *plan.Store) {
	reached := map[model.TaskName]bool{}
	for _, r := range s.Roots() {
		rollUp(s, r, visitedSet{}, reached)
	}

	// Tasks only reachable through a parent cycle are never visited from a root.
	for _, t := range s.Tasks() {
		if !reached[t.Name] {
			t.PercentComplete = model.ClampPercent(t.PercentComplete)
		}
	}
}

// rollUp returns false when the task was truncated by a parent cycle.
func rollUp(s *plan.Store, t *model.Task, visited visitedSet, reached map[model.TaskName]bool) bool {
	if visited.has(t.Name) {
		return false
	}
	visited = visited.with(t.Name)
	reached[t.Name] = true

	children := s.Children(t.Name)
	if len(children) == 0 {
		t.PercentComplete = model.ClampPercent(t.PercentComplete)
		if t.Status == model.TaskStatusDone {
			t.PercentComplete = model.MaxPercentComplete
		}
		return true
	}

	resolved := make([]*model.Task, 0, len(children))
	for _, c := range children {
		if rollUp(s, c, visited, reached) {
			resolved = append(resolved, c)
		}
	}

	t.PercentComplete = weightedPercent(resolved)
	t.Status = deriveStatus(t.Status, resolved)
	return true
}

// weightedPercent is the duration weighted mean of the percentages, or the plain
// mean when there is no duration at all.
func weightedPercent(tasks []*model.Task) int {
	if len(tasks) == 0 {
		return 0
	}

	var weighted, totalDuration, sum float64
	for _, t := range tasks {
		p := float64(model.ClampPercent(t.PercentComplete))
		dur := float64(t.Duration())
		weighted += p * dur
		totalDuration += dur
		sum += p
	}

	if totalDuration > 0 {
		return model.ClampPercent(int(math.Round(weighted / totalDuration)))
	}
	return model.ClampPercent(int(math.Round(sum / float64(len(tasks)))))
}

func deriveStatus(current model.TaskStatus, children []*model.Task) model.TaskStatus {
	if len(children) > 0 {
		allDone, anyBlocked, anyInProgress := true, false, false
		for _, c := range children {
			switch c.Status {
			case model.TaskStatusDone:
			case model.TaskStatusBlocked:
				anyBlocked = true
			case model.TaskStatusInProgress:
				anyInProgress = true
			}
			if c.Status != model.TaskStatusDone {
				allDone = false
			}
		}

		switch {
		case allDone:
			return model.TaskStatusDone
		case anyBlocked && !anyInProgress:
			return model.TaskStatusBlocked
		case anyInProgress:
			return model.TaskStatusInProgress
		}
	}

	if !current.Valid() {
		return model.TaskStatusPlanned
	}
	return current
}

// OverallProgress returns the duration weighted percent complete of the top level tasks.
func OverallProgress(s *plan.Store) int {
	return weightedPercent(s.Roots())
}
