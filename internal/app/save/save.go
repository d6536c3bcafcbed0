package save

import (
	"context"
	"fmt"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/plan"
	"github.com/slok/projplan/internal/schedule"
	"github.com/slok/projplan/internal/storage"
)

// Guard runs the writes on the shared data file.
type Guard interface {
	Write(ctx context.Context, force bool, fn func(ctx context.Context) error) error
}

// ServiceConfig is the configuration for the save service.
type ServiceConfig struct {
	Repository storage.Repository
	Guard      Guard
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Guard == nil {
		return fmt.Errorf("guard is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Save"})
	return nil
}

// Service persists the project plan.
type Service struct {
	repo   storage.Repository
	guard  Guard
	logger log.Logger
}

// NewService creates a new save service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		guard:  cfg.Guard,
		logger: cfg.Logger,
	}, nil
}

// Request represents a save request.
type Request struct {
	Store *plan.Store
	// Force overwrites external changes not seen by this session.
	Force bool
}

// Run recomputes the derived fields of the plan and replaces the stored tasks with it.
func (s *Service) Run(ctx context.Context, req Request) error {
	if req.Store == nil {
		return fmt.Errorf("store is required")
	}

	err := s.guard.Write(ctx, req.Force, func(ctx context.Context) error {
		schedule.UpdateCalculatedEndDates(req.Store)
		schedule.AggregateSpans(req.Store)
		schedule.RollUp(req.Store)

		if err := s.repo.ReplaceTasks(ctx, req.Store.Snapshot()); err != nil {
			return fmt.Errorf("could not replace tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not save plan: %w", err)
	}

	s.logger.Infof("Saved %d tasks", req.Store.Len())
	return nil
}
