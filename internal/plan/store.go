// Package plan has the in-memory task store shared by all the schedule computations.
//
// The store is the single owner of the tasks, computations receive it explicitly
// and mutate the derived fields of its tasks in place.
package plan

import (
	"fmt"

	"github.com/slok/projplan/internal/model"
)

// Store is an ordered collection of tasks with unique names.
type Store struct {
	tasks []*model.Task
	index map[model.TaskName]int
}

// NewStore returns a store with the tasks in the same order. Task names must be unique.
func NewStore(tasks []model.Task) (*Store, error) {
	s := &Store{index: make(map[model.TaskName]int, len(tasks))}
	for _, t := range tasks {
		if err := s.Add(t); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Add appends a task to the store.
func (s *Store) Add(t model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	if _, ok := s.index[t.Name]; ok {
		return fmt.Errorf("task %q: %w", t.Name, model.ErrAlreadyExists)
	}

	tc := t
	tc.Dependencies = append([]model.TaskName(nil), t.Dependencies...)
	s.tasks = append(s.tasks, &tc)
	s.index[t.Name] = len(s.tasks) - 1

	return nil
}

// Len returns the number of tasks.
func (s *Store) Len() int { return len(s.tasks) }

// Get returns the task with the name.
func (s *Store) Get(name model.TaskName) (*model.Task, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.tasks[i], true
}

// Tasks returns the tasks in store order. Mutations on the returned tasks
// are applied to the store.
func (s *Store) Tasks() []*model.Task {
	res := make([]*model.Task, len(s.tasks))
	copy(res, s.tasks)
	return res
}

// Children returns the direct children of a task in store order.
func (s *Store) Children(name model.TaskName) []*model.Task {
	var res []*model.Task
	for _, t := range s.tasks {
		if t.Parent == name && t.Name != name {
			res = append(res, t)
		}
	}
	return res
}

// HasChildren returns true if any task references name as its parent.
func (s *Store) HasChildren(name model.TaskName) bool {
	for _, t := range s.tasks {
		if t.Parent == name && t.Name != name {
			return true
		}
	}
	return false
}

// Roots returns the top level tasks. Tasks whose parent doesn't exist are
// considered top level too.
func (s *Store) Roots() []*model.Task {
	var res []*model.Task
	for _, t := range s.tasks {
		if t.Parent == "" {
			res = append(res, t)
			continue
		}
		if _, ok := s.index[t.Parent]; !ok {
			res = append(res, t)
		}
	}
	return res
}

// SetParent reparents a task. Unlike loading, this rejects edits that would
// create a cycle in the parent graph.
func (s *Store) SetParent(name, parent model.TaskName) error {
	if err := s.CheckParent(name, parent); err != nil {
		return err
	}

	t, _ := s.Get(name)
	t.Parent = parent
	return nil
}

// CheckParent returns the error SetParent would return, without changing the store.
func (s *Store) CheckParent(name, parent model.TaskName) error {
	if _, ok := s.Get(name); !ok {
		return fmt.Errorf("task %q: %w", name, model.ErrNotFound)
	}

	if parent == "" {
		return nil
	}
	if _, ok := s.Get(parent); !ok {
		return fmt.Errorf("parent %q: %w", parent, model.ErrNotFound)
	}
	if s.isAncestorOrSelf(name, parent) {
		return fmt.Errorf("setting %q as parent of %q would create a cycle: %w", parent, name, model.ErrNotValid)
	}

	return nil
}

// isAncestorOrSelf returns true if candidate is name or one of name's descendants,
// walking up from candidate.
func (s *Store) isAncestorOrSelf(name, candidate model.TaskName) bool {
	visited := map[model.TaskName]bool{}
	for cur := candidate; cur != ""; {
		if cur == name {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true

		t, ok := s.Get(cur)
		if !ok {
			return false
		}
		cur = t.Parent
	}
	return false
}

// Rename renames a task updating every parent and dependency reference.
func (s *Store) Rename(oldName, newName model.TaskName) error {
	if err := s.CheckRename(oldName, newName); err != nil {
		return err
	}

	if oldName == newName {
		return nil
	}

	t, _ := s.Get(oldName)
	i := s.index[oldName]
	delete(s.index, oldName)
	s.index[newName] = i
	t.Name = newName

	for _, o := range s.tasks {
		if o.Parent == oldName {
			o.Parent = newName
		}
		for j, d := range o.Dependencies {
			if d == oldName {
				o.Dependencies[j] = newName
			}
		}
	}

	return nil
}

// CheckRename returns the error Rename would return, without changing the store.
func (s *Store) CheckRename(oldName, newName model.TaskName) error {
	t, ok := s.Get(oldName)
	if !ok {
		return fmt.Errorf("task %q: %w", oldName, model.ErrNotFound)
	}

	if oldName == newName {
		return nil
	}

	if _, ok := s.index[newName]; ok {
		return fmt.Errorf("task %q: %w", newName, model.ErrAlreadyExists)
	}

	candidate := *t
	candidate.Name = newName
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	return nil
}

// Delete removes a task and all its descendants. Returns the removed task names.
func (s *Store) Delete(name model.TaskName) ([]model.TaskName, error) {
	if _, ok := s.Get(name); !ok {
		return nil, fmt.Errorf("task %q: %w", name, model.ErrNotFound)
	}

	remove := map[model.TaskName]bool{}
	var removed []model.TaskName
	var collect func(n model.TaskName)
	collect = func(n model.TaskName) {
		if remove[n] {
			return
		}
		remove[n] = true
		removed = append(removed, n)
		for _, c := range s.Children(n) {
			collect(c.Name)
		}
	}
	collect(name)

	kept := make([]*model.Task, 0, len(s.tasks)-len(removed))
	for _, t := range s.tasks {
		if !remove[t.Name] {
			kept = append(kept, t)
		}
	}

	s.tasks = kept
	s.index = make(map[model.TaskName]int, len(kept))
	for i, t := range kept {
		s.index[t.Name] = i
	}

	return removed, nil
}

// Snapshot returns a copy of the tasks in store order.
func (s *Store) Snapshot() []model.Task {
	res := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tc := *t
		tc.Dependencies = append([]model.TaskName(nil), t.Dependencies...)
		res = append(res, tc)
	}
	return res
}
