package schedule

import (
	"time"

	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
)

// CaptureInitialBaselines fills the missing baseline dates of the tasks that have a
// resolvable start and duration. Existing baselines are never overwritten. Returns
// the number of tasks that changed.
func CaptureInitialBaselines(s *plan.Store) int {
	changed := 0
	for _, t := range s.Tasks() {
		end := CalculatedEndDate(t.StartDate, t.DurationDays)
		if end == nil {
			continue
		}

		updated := false
		if t.BaselineStartDate == nil {
			t.BaselineStartDate = copyTime(t.StartDate)
			updated = true
		}
		if t.BaselineEndDate == nil {
			t.BaselineEndDate = end
			updated = true
		}
		if updated {
			changed++
		}
	}

	return changed
}

// BaselineEntries returns the current effective span of every task as entries of
// the named baseline.
func BaselineEntries(s *plan.Store, name string) []model.BaselineEntry {
	tasks := s.Tasks()
	res := make([]model.BaselineEntry, 0, len(tasks))
	for _, t := range tasks {
		span := currentSpan(t)
		res = append(res, model.BaselineEntry{
			BaselineName: name,
			TaskName:     t.Name,
			Start:        span.Start,
			End:          span.End,
		})
	}
	return res
}

// Variance compares the current spans with a baseline map. Tasks missing on the
// baseline are returned without slips.
func Variance(s *plan.Store, baseline map[model.TaskName]model.BaselineSpan) []model.BaselineVariance {
	tasks := s.Tasks()
	res := make([]model.BaselineVariance, 0, len(tasks))
	for _, t := range tasks {
		v := model.BaselineVariance{
			Task:    t.Name,
			Current: currentSpan(t),
		}

		if b, ok := baseline[t.Name]; ok {
			v.HasBaseline = true
			v.Baseline = b
			v.StartSlip = slip(b.Start, v.Current.Start)
			v.EndSlip = slip(b.End, v.Current.End)
		}

		res = append(res, v)
	}
	return res
}

func currentSpan(t *model.Task) model.BaselineSpan {
	start := copyTime(t.EffectiveStart())
	end := copyTime(t.EffectiveEnd())
	if end == nil {
		end = CalculatedEndDate(start, t.DurationDays)
	}
	return model.BaselineSpan{Start: start, End: end}
}

func slip(planned, current *time.Time) *int {
	if planned == nil || current == nil {
		return nil
	}
	days := BusinessDaysBetween(*planned, *current)
	return &days
}
