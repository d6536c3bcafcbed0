package model

import (
	"fmt"
	"regexp"
	"time"
)

var baselineNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9._ -]+$`)

// BaselineSpan is the planned span of a task stored on a baseline.
type BaselineSpan struct {
	Start *time.Time
	End   *time.Time
}

// BaselineEntry is a single row of a named baseline snapshot.
type BaselineEntry struct {
	BaselineName string
	TaskName     TaskName
	Start        *time.Time
	End          *time.Time
}

// BaselineVariance is the slip of a task against a baseline, in business days.
// Positive values mean the task moved later than planned.
type BaselineVariance struct {
	Task        TaskName
	Baseline    BaselineSpan
	Current     BaselineSpan
	StartSlip   *int
	EndSlip     *int
	HasBaseline bool
}

// ValidateBaselineName validates a baseline name.
func ValidateBaselineName(name string) error {
	if name == "" {
		return fmt.Errorf("baseline name is required: %w", ErrNotValid)
	}

	if !baselineNameRegexp.MatchString(name) {
		return fmt.Errorf("baseline name %q is invalid (allowed: [a-zA-Z0-9._ -]): %w", name, ErrNotValid)
	}

	return nil
}
