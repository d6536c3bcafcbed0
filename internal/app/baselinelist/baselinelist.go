package baselinelist

import (
	"context"
	"fmt"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/storage"
)

// ServiceConfig is the configuration for the baseline list service.
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

	return nil
}

// Service lists baselines.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new baseline list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the baseline list request parameters.
type Request struct{}

// Run lists all the baseline names.
func (s *Service) Run(ctx context.Context, req Request) ([]string, error) {
	s.logger.Debugf("listing baselines")

	names, err := s.repo.ListBaselines(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list baselines: %w", err)
	}

	s.logger.Debugf("found %d baselines", len(names))
	return names, nil
}
