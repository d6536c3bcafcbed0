package taskedit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
)

// ServiceConfig is the configuration for the task edit service.
type ServiceConfig struct {
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TaskEdit"})
	return nil
}

// Service applies user edits on the tasks of a plan. Edits are validated strictly,
// unlike loaded data.
type Service struct {
	timeNow func() time.Time
	logger  log.Logger
}

// NewService creates a new task edit service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		timeNow: cfg.TimeNow,
		logger:  cfg.Logger,
	}, nil
}

// AddRequest represents a task creation.
type AddRequest struct {
	Store        *plan.Store
	Name         string
	Parent       string
	Start        string
	Duration     *int
	Dependencies string
}

// Add creates a new task with the defaults of a new project part.
func (s *Service) Add(ctx context.Context, req AddRequest) (*model.Task, error) {
	if req.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	t := model.NewTask(model.TaskName(strings.TrimSpace(req.Name)))
	if req.Duration != nil {
		d := *req.Duration
		t.DurationDays = &d
	}
	t.Dependencies = model.ParseDependencies(req.Dependencies)

	start, err := parseOptionalDate(req.Start)
	if err != nil {
		return nil, err
	}
	t.StartDate = start

	parent := model.TaskName(strings.TrimSpace(req.Parent))
	if parent != "" {
		if _, ok := req.Store.Get(parent); !ok {
			return nil, fmt.Errorf("parent %q: %w", parent, model.ErrNotFound)
		}
		t.Parent = parent
	}

	if err := t.ValidateEdit(); err != nil {
		return nil, err
	}

	if err := req.Store.Add(t); err != nil {
		return nil, fmt.Errorf("could not add task: %w", err)
	}

	s.logger.Debugf("Task %q added", t.Name)

	added, _ := req.Store.Get(t.Name)
	return added, nil
}

// SetRequest represents a task edit, nil fields are not changed.
type SetRequest struct {
	Store  *plan.Store
	Name   string
	Rename *string
	Parent *string
	// Start is a date, empty clears it.
	Start    *string
	Duration *int
	// Dependencies is a comma separated list, empty clears them.
	Dependencies *string
	Percent      *int
	Status       *string
}

// Set edits an existing task. Percent and status edits apply the transition stamps,
// when both are set they must agree on the task being done.
func (s *Service) Set(ctx context.Context, req SetRequest) (*model.Task, error) {
	if req.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	name := model.TaskName(strings.TrimSpace(req.Name))
	t, ok := req.Store.Get(name)
	if !ok {
		return nil, fmt.Errorf("task %q: %w", name, model.ErrNotFound)
	}

	// Validate everything before mutating the task.
	var start *time.Time
	if req.Start != nil {
		d, err := parseOptionalDate(*req.Start)
		if err != nil {
			return nil, err
		}
		start = d
	}

	if req.Duration != nil && *req.Duration < 0 {
		return nil, fmt.Errorf("duration can't be negative: %w", model.ErrNotValid)
	}

	if req.Percent != nil && (*req.Percent < 0 || *req.Percent > model.MaxPercentComplete) {
		return nil, fmt.Errorf("percent complete must be in [0,100]: %w", model.ErrNotValid)
	}

	var status model.TaskStatus
	if req.Status != nil {
		st, err := parseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		status = st
	}

	if req.Status != nil && req.Percent != nil {
		done := status == model.TaskStatusDone
		complete := *req.Percent == model.MaxPercentComplete
		if done != complete {
			return nil, fmt.Errorf("status %s and percent complete %d disagree: %w", status, *req.Percent, model.ErrNotValid)
		}
	}

	var parent model.TaskName
	if req.Parent != nil {
		parent = model.TaskName(strings.TrimSpace(*req.Parent))
		if err := req.Store.CheckParent(name, parent); err != nil {
			return nil, fmt.Errorf("could not set parent: %w", err)
		}
	}

	var newName model.TaskName
	if req.Rename != nil {
		newName = model.TaskName(strings.TrimSpace(*req.Rename))
		if err := req.Store.CheckRename(name, newName); err != nil {
			return nil, fmt.Errorf("could not rename task: %w", err)
		}
	}

	if req.Parent != nil {
		if err := req.Store.SetParent(name, parent); err != nil {
			return nil, fmt.Errorf("could not set parent: %w", err)
		}
	}

	if req.Rename != nil {
		if err := req.Store.Rename(name, newName); err != nil {
			return nil, fmt.Errorf("could not rename task: %w", err)
		}
		name = newName
	}

	today := s.timeNow()
	if req.Start != nil {
		t.StartDate = start
	}
	if req.Duration != nil {
		d := *req.Duration
		t.DurationDays = &d
	}
	if req.Dependencies != nil {
		t.Dependencies = model.ParseDependencies(*req.Dependencies)
	}
	if req.Percent != nil {
		t.SetPercentComplete(*req.Percent, today)
	}
	if req.Status != nil {
		t.SetStatus(status, today)
	}

	s.logger.Debugf("Task %q edited", name)
	return t, nil
}

// RemoveRequest represents a task removal.
type RemoveRequest struct {
	Store *plan.Store
	Name  string
}

// Remove deletes a task and all its descendants, returning the removed names.
func (s *Service) Remove(ctx context.Context, req RemoveRequest) ([]model.TaskName, error) {
	if req.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	removed, err := req.Store.Delete(model.TaskName(strings.TrimSpace(req.Name)))
	if err != nil {
		return nil, fmt.Errorf("could not remove task: %w", err)
	}

	s.logger.Debugf("Removed %d tasks", len(removed))
	return removed, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	d := model.ParseDate(s)
	if d == nil {
		return nil, fmt.Errorf("date %q is invalid (expected %s): %w", s, model.DateFormat, model.ErrNotValid)
	}
	return d, nil
}

func parseStatus(s string) (model.TaskStatus, error) {
	st := model.ParseTaskStatus(s)
	if st == model.TaskStatusPlanned && !strings.EqualFold(strings.TrimSpace(s), string(model.TaskStatusPlanned)) {
		return "", fmt.Errorf("status %q is unknown: %w", s, model.ErrNotValid)
	}
	return st, nil
}
