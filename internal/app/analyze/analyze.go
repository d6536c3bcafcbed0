package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/projplan/internal/log"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
	"github.com/slok/projplan/internal/schedule"
)

// ServiceConfig is the configuration for the analyze service.
type ServiceConfig struct {
	Holidays model.HolidayCalendar
	TimeNow  func() time.Time
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Analyze"})
	return nil
}

// Service computes the schedule report of a project plan.
type Service struct {
	holidays model.HolidayCalendar
	timeNow  func() time.Time
	logger   log.Logger
}

// NewService creates a new analyze service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		holidays: cfg.Holidays,
		timeNow:  cfg.TimeNow,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the analyze request parameters.
type Request struct {
	Store *plan.Store
	// CriticalOnly keeps only the critical tasks on the report rows.
	CriticalOnly bool
}

// Row is the schedule of a single task.
type Row struct {
	Task           model.Task
	Depth          int
	EarliestStart  time.Time
	EarliestFinish time.Time
	LatestStart    time.Time
	LatestFinish   time.Time
	Float          int
	Critical       bool
	// Conflicting is true when any of the task dependencies is in conflict.
	Conflicting bool
	// Holidays are the holidays inside the task effective span.
	Holidays []time.Time
	// StartsOnHoliday is true when the task effective start is a holiday.
	StartsOnHoliday bool
}

// Report is the schedule analysis of the project plan.
type Report struct {
	Rows             []Row
	ProjectFinish    time.Time
	OverallProgress  int
	CriticalProgress int
	Conflicts        []schedule.Conflict
	CycleEdges       []schedule.Edge
}

// Run analyzes the plan. The request store is not modified, progress is rolled
// up on a copy.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	if req.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	store, err := plan.NewStore(req.Store.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("could not copy store: %w", err)
	}

	schedule.UpdateCalculatedEndDates(store)
	schedule.AggregateSpans(store)
	schedule.RollUp(store)

	if n := s.holidays.Len(); n > 0 {
		s.logger.Debugf("Annotating schedule with %d holidays", n)
	}

	cp := schedule.ComputeCriticalPath(store, s.timeNow())
	conflicts := schedule.Conflicts(store)
	if len(cp.CycleEdges) > 0 {
		s.logger.Warningf("Ignored %d dependencies that close a cycle", len(cp.CycleEdges))
	}

	conflicting := map[model.TaskName]bool{}
	for _, c := range conflicts {
		conflicting[c.Task] = true
	}

	tasks := store.Tasks()
	if req.CriticalOnly {
		tasks = cp.CriticalOnly(tasks)
	}

	depths := depths(store)
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		float, _ := cp.Float(t.Name)
		row := Row{
			Task:           *t,
			Depth:          depths[t.Name],
			EarliestStart:  cp.EarliestStart[t.Name],
			EarliestFinish: cp.EarliestFinish[t.Name],
			LatestStart:    cp.LatestStart[t.Name],
			LatestFinish:   cp.LatestFinish[t.Name],
			Float:          float,
			Critical:       cp.IsCritical(t.Name),
			Conflicting:    conflicting[t.Name],
		}

		if start, end := t.EffectiveStart(), t.EffectiveEnd(); start != nil && end != nil {
			row.Holidays = s.holidays.Within(*start, *end)
			row.StartsOnHoliday = s.holidays.Contains(*start)
		}

		rows = append(rows, row)
	}

	return &Report{
		Rows:             rows,
		ProjectFinish:    cp.ProjectFinish,
		OverallProgress:  schedule.OverallProgress(store),
		CriticalProgress: schedule.CriticalProgress(store, cp),
		Conflicts:        conflicts,
		CycleEdges:       cp.CycleEdges,
	}, nil
}

// depths returns the hierarchy depth of every task, cycles are cut on revisit.
func depths(s *plan.Store) map[model.TaskName]int {
	res := make(map[model.TaskName]int, s.Len())
	var walk func(t *model.Task, depth int)
	walk = func(t *model.Task, depth int) {
		if _, ok := res[t.Name]; ok {
			return
		}
		res[t.Name] = depth
		for _, c := range s.Children(t.Name) {
			walk(c, depth+1)
		}
	}

	for _, r := range s.Roots() {
		walk(r, 0)
	}
	return res
}
