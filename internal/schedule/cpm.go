package schedule

import (
	"math"
	"time"

	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
)

// Edge is a dependency edge from a predecessor to a dependent task.
type Edge struct {
	From model.TaskName
	To   model.TaskName
}

// CriticalPath is the result of the critical path method over the dependency graph.
type CriticalPath struct {
	// Order is the topological order used by the passes.
	Order          []model.TaskName
	EarliestStart  map[model.TaskName]time.Time
	EarliestFinish map[model.TaskName]time.Time
	LatestStart    map[model.TaskName]time.Time
	LatestFinish   map[model.TaskName]time.Time
	ProjectFinish  time.Time
	Critical       map[model.TaskName]bool
	// CycleEdges are the dependency edges ignored to break cycles.
	CycleEdges []Edge

	float map[model.TaskName]int
}

// IsCritical returns true if the task has zero float.
func (c CriticalPath) IsCritical(name model.TaskName) bool { return c.Critical[name] }

// Float returns the float of a task in business days.
func (c CriticalPath) Float(name model.TaskName) (int, bool) {
	f, ok := c.float[name]
	return f, ok
}

// CriticalOnly filters the tasks that are on the critical path, keeping the order.
func (c CriticalPath) CriticalOnly(tasks []*model.Task) []*model.Task {
	var res []*model.Task
	for _, t := range tasks {
		if c.Critical[t.Name] {
			res = append(res, t)
		}
	}
	return res
}

type graph struct {
	preds map[model.TaskName][]model.TaskName
	succs map[model.TaskName][]model.TaskName
}

func buildGraph(s *plan.Store) graph {
	g := graph{
		preds: map[model.TaskName][]model.TaskName{},
		succs: map[model.TaskName][]model.TaskName{},
	}
	for _, t := range s.Tasks() {
		seen := map[model.TaskName]bool{}
		for _, dep := range t.Dependencies {
			if _, ok := s.Get(dep); !ok || dep == t.Name || seen[dep] {
				continue
			}
			seen[dep] = true
			g.preds[t.Name] = append(g.preds[t.Name], dep)
			g.succs[dep] = append(g.succs[dep], t.Name)
		}
	}
	return g
}

// topoOrder returns a DFS post-order over the predecessors. Edges closing a
// cycle are skipped and returned.
func (g graph) topoOrder(s *plan.Store) ([]model.TaskName, map[Edge]bool) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := map[model.TaskName]int{}
	cycleEdges := map[Edge]bool{}
	order := make([]model.TaskName, 0, s.Len())

	var visit func(n model.TaskName)
	visit = func(n model.TaskName) {
		state[n] = visiting
		for _, p := range g.preds[n] {
			switch state[p] {
			case visiting:
				cycleEdges[Edge{From: p, To: n}] = true
			case unvisited:
				visit(p)
			}
		}
		state[n] = done
		order = append(order, n)
	}

	for _, t := range s.Tasks() {
		if state[t.Name] == unvisited {
			visit(t.Name)
		}
	}

	return order, cycleEdges
}

// ComputeCriticalPath runs the forward and backward passes of the critical path
// method. Tasks without start nor predecessors start at now, or the next business
// day when now is on a weekend.
func ComputeCriticalPath(s *plan.Store, now time.Time) CriticalPath {
	g := buildGraph(s)
	order, cycleEdges := g.topoOrder(s)

	duration := func(n model.TaskName) int {
		t, _ := s.Get(n)
		return t.Duration()
	}

	es := make(map[model.TaskName]int, len(order))
	ef := make(map[model.TaskName]int, len(order))
	projectFinish := math.MinInt
	for _, n := range order {
		start, hasPred := 0, false
		for _, p := range g.preds[n] {
			if cycleEdges[Edge{From: p, To: n}] {
				continue
			}
			if !hasPred || ef[p] > start {
				start = ef[p]
			}
			hasPred = true
		}

		if !hasPred {
			t, _ := s.Get(n)
			if st := t.EffectiveStart(); st != nil {
				start = businessOrdinal(*st)
			} else {
				start = businessOrdinal(nextBusinessDay(now))
			}
		}

		es[n] = start
		ef[n] = start + duration(n)
		if ef[n] > projectFinish {
			projectFinish = ef[n]
		}
	}

	ls := make(map[model.TaskName]int, len(order))
	lf := make(map[model.TaskName]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		finish, hasSucc := projectFinish, false
		for _, sc := range g.succs[n] {
			if cycleEdges[Edge{From: n, To: sc}] {
				continue
			}
			if !hasSucc || ls[sc] < finish {
				finish = ls[sc]
			}
			hasSucc = true
		}

		lf[n] = finish
		ls[n] = finish - duration(n)
	}

	cp := CriticalPath{
		Order:          order,
		EarliestStart:  make(map[model.TaskName]time.Time, len(order)),
		EarliestFinish: make(map[model.TaskName]time.Time, len(order)),
		LatestStart:    make(map[model.TaskName]time.Time, len(order)),
		LatestFinish:   make(map[model.TaskName]time.Time, len(order)),
		Critical:       make(map[model.TaskName]bool, len(order)),
		float:          make(map[model.TaskName]int, len(order)),
	}
	if len(order) > 0 {
		cp.ProjectFinish = fromBusinessOrdinal(projectFinish)
	}

	for _, n := range order {
		cp.EarliestStart[n] = fromBusinessOrdinal(es[n])
		cp.EarliestFinish[n] = fromBusinessOrdinal(ef[n])
		cp.LatestStart[n] = fromBusinessOrdinal(ls[n])
		cp.LatestFinish[n] = fromBusinessOrdinal(lf[n])
		cp.float[n] = ls[n] - es[n]
		if es[n] == ls[n] {
			cp.Critical[n] = true
		}
	}

	for _, t := range s.Tasks() {
		for _, p := range g.preds[t.Name] {
			e := Edge{From: p, To: t.Name}
			if cycleEdges[e] {
				cp.CycleEdges = append(cp.CycleEdges, e)
			}
		}
	}

	return cp
}

// CriticalProgress returns the duration weighted percent complete of the leaf
// tasks on the critical path.
func CriticalProgress(s *plan.Store, cp CriticalPath) int {
	var tasks []*model.Task
	for _, t := range cp.CriticalOnly(s.Tasks()) {
		if !s.HasChildren(t.Name) {
			tasks = append(tasks, t)
		}
	}
	return weightedPercent(tasks)
}
