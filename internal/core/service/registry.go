package service

import (
	"fmt"
	"sync"
)

// Registry tracks the live coordinators by device entry id.
type Registry struct {
	mu           sync.RWMutex
	coordinators map[string]*Coordinator
}

func NewRegistry() *Registry {
	return &Registry{
		coordinators: map[string]*Coordinator{},
	}
}

func (r *Registry) Add(id string, c *Coordinator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coordinators[id]; ok {
		return fmt.Errorf("coordinator %q already registered", id)
	}
	r.coordinators[id] = c
	return nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.coordinators[id]
	delete(r.coordinators, id)
	return ok
}

func (r *Registry) Get(id string) (*Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coordinators[id]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.coordinators)
}
