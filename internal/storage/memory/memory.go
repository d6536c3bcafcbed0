package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	tasks     []model.Task
	baselines map[string]map[model.TaskName]model.BaselineSpan
	mu        sync.RWMutex
	logger    log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		baselines: make(map[string]map[model.TaskName]model.BaselineSpan),
		logger:    cfg.Logger,
	}, nil
}

// ListTasks returns all the tasks in insertion order.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return copyTasks(r.tasks), nil
}

// ReplaceTasks replaces all the stored tasks.
func (r *Repository) ReplaceTasks(ctx context.Context, tasks []model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[model.TaskName]struct{}, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.Name]; ok {
			return fmt.Errorf("task %q: %w", t.Name, model.ErrAlreadyExists)
		}
		seen[t.Name] = struct{}{}
	}

	r.tasks = copyTasks(tasks)
	r.logger.Debugf("Replaced stored tasks with %d tasks", len(tasks))

	return nil
}

// SaveBaseline upserts baseline entries.
func (r *Repository) SaveBaseline(ctx context.Context, entries []model.BaselineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		if err := model.ValidateBaselineName(e.BaselineName); err != nil {
			return err
		}
	}

	for _, e := range entries {
		b, ok := r.baselines[e.BaselineName]
		if !ok {
			b = map[model.TaskName]model.BaselineSpan{}
			r.baselines[e.BaselineName] = b
		}
		b[e.TaskName] = model.BaselineSpan{Start: e.Start, End: e.End}
	}

	r.logger.Debugf("Saved %d baseline entries", len(entries))
	return nil
}

// GetBaseline returns a copy of the baseline spans, empty when missing.
func (r *Repository) GetBaseline(ctx context.Context, name string) (map[model.TaskName]model.BaselineSpan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := map[model.TaskName]model.BaselineSpan{}
	for k, v := range r.baselines[name] {
		res[k] = v
	}
	return res, nil
}

// ListBaselines returns the sorted baseline names.
func (r *Repository) ListBaselines(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.baselines))
	for name := range r.baselines {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Seed replaces the repository contents with the tasks and baselines of src.
func (r *Repository) Seed(ctx context.Context, src storage.Repository) error {
	tasks, err := src.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	names, err := src.ListBaselines(ctx)
	if err != nil {
		return fmt.Errorf("could not list baselines: %w", err)
	}

	var entries []model.BaselineEntry
	for _, name := range names {
		spans, err := src.GetBaseline(ctx, name)
		if err != nil {
			return fmt.Errorf("could not get baseline %q: %w", name, err)
		}
		for task, span := range spans {
			entries = append(entries, model.BaselineEntry{BaselineName: name, TaskName: task, Start: span.Start, End: span.End})
		}
	}

	r.mu.Lock()
	r.baselines = make(map[string]map[model.TaskName]model.BaselineSpan)
	r.mu.Unlock()

	if err := r.ReplaceTasks(ctx, tasks); err != nil {
		return err
	}

	return r.SaveBaseline(ctx, entries)
}

func copyTasks(tasks []model.Task) []model.Task {
	if tasks == nil {
		return nil
	}

	res := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		t.Dependencies = append([]model.TaskName(nil), t.Dependencies...)
		res = append(res, t)
	}
	return res
}
