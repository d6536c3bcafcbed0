package baselinesave

import (
	"context"
	"fmt"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
	"github.com/slok/projplan/internal/schedule"
	"github.com/slok/projplan/internal/storage"
)

// Guard runs the writes on the shared data file.
type Guard interface {
	Write(ctx context.Context, force bool, fn func(ctx context.Context) error) error
}

// ServiceConfig is the configuration for the baseline save service.
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

	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.BaselineSave"})
	return nil
}

// Service stores named baseline snapshots of the plan.
type Service struct {
	repo   storage.Repository
	guard  Guard
	logger log.Logger
}

// NewService creates a new baseline save service.
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

// Request represents a baseline save request.
type Request struct {
	Store *plan.Store
	Name  string
	Force bool
}

// Run upserts the current effective span of every task under the baseline name.
// It returns the number of stored entries.
func (s *Service) Run(ctx context.Context, req Request) (int, error) {
	if err := model.ValidateBaselineName(req.Name); err != nil {
		return 0, fmt.Errorf("invalid baseline name: %w", err)
	}

	if req.Store == nil {
		return 0, fmt.Errorf("store is required")
	}

	entries := schedule.BaselineEntries(req.Store, req.Name)
	err := s.guard.Write(ctx, req.Force, func(ctx context.Context) error {
		return s.repo.SaveBaseline(ctx, entries)
	})
	if err != nil {
		return 0, fmt.Errorf("could not save baseline: %w", err)
	}

	s.logger.Infof("Saved baseline %q with %d tasks", req.Name, len(entries))
	return len(entries), nil
}
