package open

import (
	"context"
	"fmt"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/plan"
	"github.com/slok/projplan/internal/schedule"
	"github.com/slok/projplan/internal/storage"
)

// Marker records the data file state as seen by the session.
type Marker interface {
	Mark()
}

// ServiceConfig is the configuration for the open service.
type ServiceConfig struct {
	Repository storage.Repository
	// Marker is optional.
	Marker Marker
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Open"})
	return nil
}

// Service loads the project plan and computes its derived fields.
type Service struct {
	repo   storage.Repository
	marker Marker
	logger log.Logger
}

// NewService creates a new open service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		marker: cfg.Marker,
		logger: cfg.Logger,
	}, nil
}

// Request represents the open request parameters.
type Request struct{}

// Result is the loaded project plan.
type Result struct {
	Store *plan.Store
	// CapturedBaselines is the number of tasks that got their initial baseline on this load.
	CapturedBaselines int
	// Skipped are the stored rows that could not be loaded.
	Skipped int
}

// Run loads the stored tasks, computes the calculated end dates and the parent
// spans, and captures the missing initial baselines.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	store, err := plan.NewStore(nil)
	if err != nil {
		return nil, fmt.Errorf("could not create store: %w", err)
	}

	skipped := 0
	for _, t := range tasks {
		if err := store.Add(t); err != nil {
			s.logger.Warningf("Skipping stored task %q: %s", t.Name, err)
			skipped++
		}
	}

	schedule.UpdateCalculatedEndDates(store)
	schedule.AggregateSpans(store)
	captured := schedule.CaptureInitialBaselines(store)

	if s.marker != nil {
		s.marker.Mark()
	}

	s.logger.Debugf("Loaded %d tasks (%d skipped, %d initial baselines captured)", store.Len(), skipped, captured)

	return &Result{
		Store:             store,
		CapturedBaselines: captured,
		Skipped:           skipped,
	}, nil
}
