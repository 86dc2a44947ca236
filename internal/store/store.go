package store

import (
	"sort"
	"sync"

	"storythingy/storyboard-api/models"
)

// Store is the single source of truth for pipeline progress. Scenes are
// keyed by id; every mutation is scoped to one scene's record via Update,
// so runners for different scenes never contend on the same sub-record.
// The lock is held only for the read-modify-write itself, never across a
// gateway call or backoff wait.
type Store struct {
	mu     sync.RWMutex
	scenes map[int]*models.Scene
	order  []int
}

func New() *Store {
	return &Store{scenes: make(map[int]*models.Scene)}
}

// Publish installs the segmenter's scene batch. It is called exactly once
// per storyboard; scenes are never added or removed afterwards.
func (s *Store) Publish(scenes []models.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes = make(map[int]*models.Scene, len(scenes))
	s.order = s.order[:0]
	for i := range scenes {
		sc := scenes[i]
		s.scenes[sc.ID] = &sc
		s.order = append(s.order, sc.ID)
	}
	sort.Ints(s.order)
}

// Get returns a copy of the scene record.
func (s *Store) Get(id int) (models.Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenes[id]
	if !ok {
		return models.Scene{}, false
	}
	return *sc, true
}

// Update applies fn to the scene's record under the lock. fn must not
// block; gateway calls and waits happen outside the store.
func (s *Store) Update(id int, fn func(*models.Scene)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenes[id]
	if !ok {
		return false
	}
	fn(sc)
	return true
}

// Snapshot returns copies of all scenes in id order (= narration order).
func (s *Store) Snapshot() []models.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Scene, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.scenes[id])
	}
	return out
}

// Len returns the number of scenes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}
