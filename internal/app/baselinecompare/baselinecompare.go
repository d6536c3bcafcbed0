package baselinecompare

import (
	"context"
	"fmt"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
	"github.com/slok/projplan/internal/schedule"
	"github.com/slok/projplan/internal/storage"
)

// ServiceConfig is the configuration for the baseline compare service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.BaselineCompare"})
	return nil
}

// Service compares the plan against a stored baseline.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new baseline compare service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents a baseline compare request.
type Request struct {
	Store *plan.Store
	Name  string
}

// Result is the comparison of the plan against a baseline.
type Result struct {
	Name      string
	Found     bool
	Variances []model.BaselineVariance
}

// Run loads the baseline and computes the slip of every task. A missing baseline is
// not an error, the result is marked as not found and no task has slips.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := model.ValidateBaselineName(req.Name); err != nil {
		return nil, fmt.Errorf("invalid baseline name: %w", err)
	}

	if req.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	spans, err := s.repo.GetBaseline(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("could not get baseline: %w", err)
	}

	if len(spans) == 0 {
		s.logger.Warningf("Baseline %q has no entries", req.Name)
	}

	return &Result{
		Name:      req.Name,
		Found:     len(spans) > 0,
		Variances: schedule.Variance(req.Store, spans),
	}, nil
}
