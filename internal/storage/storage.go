package storage

import (
	"context"

	"github.com/slok/projplan/internal/model"
)

// Repository is the interface for the project plan persistence.
type Repository interface {
	// ListTasks returns every stored task in insertion order.
	ListTasks(ctx context.Context) ([]model.Task, error)
	// ReplaceTasks deletes every stored task and inserts the new ones atomically.
	ReplaceTasks(ctx context.Context, tasks []model.Task) error
	// SaveBaseline upserts the entries keyed by baseline and task name.
	SaveBaseline(ctx context.Context, entries []model.BaselineEntry) error
	// GetBaseline returns the spans of a baseline, empty when the baseline doesn't exist.
	GetBaseline(ctx context.Context, name string) (map[model.TaskName]model.BaselineSpan, error)
	// ListBaselines returns the sorted baseline names.
	ListBaselines(ctx context.Context) ([]string, error)
}
