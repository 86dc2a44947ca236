package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds the live pipelines for the process, one per storyboard.
// Pipelines live for the duration of a session; nothing is persisted.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[uuid.UUID]*Pipeline
	factory   func() *Pipeline
}

func NewRegistry(factory func() *Pipeline) *Registry {
	return &Registry{
		pipelines: make(map[uuid.UUID]*Pipeline),
		factory:   factory,
	}
}

// Create builds a fresh pipeline and registers it.
func (r *Registry) Create() *Pipeline {
	p := r.factory()
	r.mu.Lock()
	r.pipelines[p.ID] = p
	r.mu.Unlock()
	return p
}

// Get looks a pipeline up by storyboard id.
func (r *Registry) Get(id uuid.UUID) (*Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[id]
	return p, ok
}

// Remove drops a pipeline from the registry.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.pipelines, id)
	r.mu.Unlock()
}
