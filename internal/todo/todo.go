// Package todo holds the process-wide to-do list mutated by the agent's
// function tools. Insertion order is display order; duplicates are allowed.
package todo

import (
	"strings"
	"sync"
)

// Store is an ordered, append-only (plus clear) list of task strings.
// It is shared by every in-flight request, so access is mutex-guarded.
type Store struct {
	mu    sync.Mutex
	tasks []string
}

func NewStore() *Store {
	return &Store{}
}

// Add appends the trimmed task and returns the new length.
// Empty (after trimming) tasks are rejected with ok=false and leave the list unchanged.
func (s *Store) Add(task string) (count int, ok bool) {
	task = strings.TrimSpace(task)
	if task == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.tasks), false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return len(s.tasks), true
}

// List returns a copy of the current tasks in insertion order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Clear empties the list unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	s.tasks = nil
	s.mu.Unlock()
}

// Len reports the current number of tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
