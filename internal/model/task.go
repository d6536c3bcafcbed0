package model

import (
	"fmt"
	"strings"
	"time"
)

// TaskName is the identity of a task. It's unique and used as the foreign key
// on parents, dependencies and baselines.
type TaskName string

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPlanned    TaskStatus = "Planned"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusBlocked    TaskStatus = "Blocked"
	TaskStatusDone       TaskStatus = "Done"
	TaskStatusDeferred   TaskStatus = "Deferred"
)

// Valid returns true if the status is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPlanned, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone, TaskStatusDeferred:
		return true
	}
	return false
}

// ParseTaskStatus parses a status leniently, unknown values are Planned.
func ParseTaskStatus(s string) TaskStatus {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)

	switch norm {
	case "inprogress":
		return TaskStatusInProgress
	case "blocked":
		return TaskStatusBlocked
	case "done":
		return TaskStatusDone
	case "deferred":
		return TaskStatusDeferred
	default:
		return TaskStatusPlanned
	}
}

const (
	// DefaultTaskDurationDays is the duration in business days of a new task.
	DefaultTaskDurationDays = 1
	// MaxPercentComplete is the upper bound of the completion percentage.
	MaxPercentComplete = 100
)

// Task represents a part of the project plan.
type Task struct {
	Name         TaskName
	Parent       TaskName // Empty for top level tasks.
	StartDate    *time.Time
	DurationDays *int // Business days.

	CalculatedEndDate *time.Time
	Dependencies      []TaskName // Predecessors.

	PercentComplete int
	Status          TaskStatus

	// Audit stamps, written once and never cleared.
	ActualStartDate  *time.Time
	ActualFinishDate *time.Time

	BaselineStartDate *time.Time
	BaselineEndDate   *time.Time

	// Only set on parent tasks by the hierarchy aggregation.
	AutoStart *time.Time
	AutoEnd   *time.Time
}

// NewTask returns a task with the defaults of a freshly created project part.
func NewTask(name TaskName) Task {
	d := DefaultTaskDurationDays
	return Task{
		Name:         name,
		DurationDays: &d,
		Status:       TaskStatusPlanned,
	}
}

// Validate validates the task identity. Loaded tasks only need a name, the
// rest of the fields are tolerated and fixed or ignored by the computations.
func (t Task) Validate() error {
	if strings.TrimSpace(string(t.Name)) == "" {
		return fmt.Errorf("task name is required: %w", ErrNotValid)
	}

	return nil
}

// ValidateEdit validates a task that has been edited by the user.
func (t Task) ValidateEdit() error {
	if err := t.Validate(); err != nil {
		return err
	}

	if t.Parent == t.Name {
		return fmt.Errorf("task %q can't be its own parent: %w", t.Name, ErrNotValid)
	}

	if t.DurationDays != nil && *t.DurationDays < 0 {
		return fmt.Errorf("task %q duration can't be negative: %w", t.Name, ErrNotValid)
	}

	if t.PercentComplete < 0 || t.PercentComplete > MaxPercentComplete {
		return fmt.Errorf("task %q percent complete must be in [0,100]: %w", t.Name, ErrNotValid)
	}

	if !t.Status.Valid() {
		return fmt.Errorf("task %q status %q is unknown: %w", t.Name, t.Status, ErrNotValid)
	}

	return nil
}

// EffectiveStart returns the start used by every downstream consumer.
func (t Task) EffectiveStart() *time.Time {
	if t.AutoStart != nil {
		return t.AutoStart
	}
	return t.StartDate
}

// EffectiveEnd returns the end used by every downstream consumer.
func (t Task) EffectiveEnd() *time.Time {
	if t.AutoEnd != nil {
		return t.AutoEnd
	}
	return t.CalculatedEndDate
}

// Duration returns the duration in business days, missing durations are 0.
func (t Task) Duration() int {
	if t.DurationDays == nil || *t.DurationDays < 0 {
		return 0
	}
	return *t.DurationDays
}

// DependsOn returns true if name is one of the task predecessors.
func (t Task) DependsOn(name TaskName) bool {
	for _, d := range t.Dependencies {
		if d == name {
			return true
		}
	}
	return false
}

// SetPercentComplete sets the completion percentage applying the transition
// side effects of a direct edit.
func (t *Task) SetPercentComplete(percent int, today time.Time) {
	t.PercentComplete = ClampPercent(percent)
	if t.PercentComplete == MaxPercentComplete {
		t.Status = TaskStatusDone
		t.stampFinish(today)
	}
}

// SetStatus sets the status applying the transition side effects of a direct edit.
func (t *Task) SetStatus(status TaskStatus, today time.Time) {
	t.Status = status
	switch status {
	case TaskStatusDone:
		t.PercentComplete = MaxPercentComplete
		t.stampFinish(today)
	case TaskStatusInProgress:
		t.stampStart(today)
	}
}

func (t *Task) stampStart(today time.Time) {
	if t.ActualStartDate == nil {
		t.ActualStartDate = DatePtr(today)
	}
}

func (t *Task) stampFinish(today time.Time) {
	t.stampStart(today)
	if t.ActualFinishDate == nil {
		t.ActualFinishDate = DatePtr(today)
	}
}

// ClampPercent clamps a percentage to [0,100].
func ClampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > MaxPercentComplete:
		return MaxPercentComplete
	}
	return p
}

// ParseDependencies splits the free text dependency list (comma separated).
func ParseDependencies(s string) []TaskName {
	var deps []TaskName
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		deps = append(deps, TaskName(part))
	}
	return deps
}

// FormatDependencies joins dependencies into its free text representation.
func FormatDependencies(deps []TaskName) string {
	parts := make([]string, 0, len(deps))
	for _, d := range deps {
		parts = append(parts, string(d))
	}
	return strings.Join(parts, ", ")
}
